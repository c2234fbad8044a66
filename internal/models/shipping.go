package models

import "strings"

// ShippingDetails correspond au formulaire de livraison envoyé au checkout
type ShippingDetails struct {
	Address  string `json:"address"`
	Address2 string `json:"address2,omitempty"`
	City     string `json:"city"`
	State    string `json:"state,omitempty"`
	Postcode string `json:"postcode"`
	Country  string `json:"country,omitempty"`
	Phone    string `json:"phone"`
	FullName string `json:"fullName,omitempty"`
}

// Validate vérifie les champs minimum exigés par la passerelle
func (s ShippingDetails) Validate() error {
	if strings.TrimSpace(s.Address) == "" || strings.TrimSpace(s.Phone) == "" {
		return ErrInvalidShipping
	}
	return nil
}

// CountryOrDefault retourne le pays, ou le pays par défaut de la boutique
func (s ShippingDetails) CountryOrDefault(def string) string {
	if strings.TrimSpace(s.Country) == "" {
		return def
	}
	return s.Country
}
