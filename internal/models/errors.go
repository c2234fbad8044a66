package models

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthorized      = errors.New("unauthorized")
	ErrEmptyCart         = errors.New("cart is empty")
	ErrInvalidShipping   = errors.New("shipping details require address and phone")
	ErrInvalidCart       = errors.New("cart contains an invalid item")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrGatewayRejected   = errors.New("payment gateway rejected the transaction")
	ErrPaymentNotFound   = errors.New("payment not found")
	ErrAlreadyProcessed  = errors.New("payment already processed")
	ErrStorage           = errors.New("storage failure")
	ErrRefMismatch       = errors.New("callback reference does not match transaction")
	ErrNotFound          = errors.New("not found")
)

// GatewayError porte la raison donnée (ou déduite) du refus de la passerelle
type GatewayError struct {
	Reason string
	Err    error
}

func (e *GatewayError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("gateway rejected: %s: %v", e.Reason, e.Err)
	}
	return "gateway rejected: " + e.Reason
}

func (e *GatewayError) Is(target error) bool { return target == ErrGatewayRejected }

func (e *GatewayError) Unwrap() error { return e.Err }

// StorageError enveloppe une erreur de persistance
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return fmt.Sprintf("storage %s: %v", e.Op, e.Err) }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }

func (e *StorageError) Unwrap() error { return e.Err }

// Storage enveloppe err dans une StorageError, sauf nil et ErrNotFound
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrStorage) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}
