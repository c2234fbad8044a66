// Package gateway est le client de la passerelle de paiement hébergée (API de type SSLCommerz).
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"cedra_checkout/internal/models"

	"github.com/shopspring/decimal"
)

const (
	sessionPath   = "/gwprocess/v4/api.php"
	validatorPath = "/validator/api/validationserverAPI.php"
)

// ErrTransport signale que la passerelle n'a pas répondu (timeout, réseau).
// Le résultat de la requête est alors inconnu.
var ErrTransport = errors.New("payment gateway unreachable")

type Config struct {
	BaseURL       string
	StoreID       string
	StorePassword string
	Timeout       time.Duration
}

type Client struct {
	cfg  Config
	http *http.Client
}

func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{cfg: cfg, http: &http.Client{Timeout: cfg.Timeout}}
}

// Request décrit une session de paiement à ouvrir
type Request struct {
	Amount      decimal.Decimal
	Currency    string
	TranID      string
	URLs        CallbackSet
	UserID      string
	Customer    Customer
	Shipping    models.ShippingDetails
	ProductName string
	NumItems    int
}

type Customer struct {
	Name    string
	Email   string
	Phone   string
	Country string
}

// Option est un moyen de paiement proposé par la passerelle, renvoyé tel quel au client
type Option struct {
	Name               string `json:"name"`
	Type               string `json:"type"`
	Logo               string `json:"logo"`
	Gw                 string `json:"gw"`
	RFlag              string `json:"r_flag"`
	RedirectGatewayURL string `json:"redirectGatewayURL"`
}

type Result struct {
	Status     string
	SessionKey string
	GatewayURL string
	Options    []Option
}

type sessionResponse struct {
	Status         string   `json:"status"`
	FailedReason   string   `json:"failedreason"`
	SessionKey     string   `json:"sessionkey"`
	GatewayPageURL string   `json:"GatewayPageURL"`
	Desc           []Option `json:"desc"`
}

func (c *Client) CreateTransaction(ctx context.Context, req Request) (*Result, error) {
	form := url.Values{}
	form.Set("store_id", c.cfg.StoreID)
	form.Set("store_passwd", c.cfg.StorePassword)
	form.Set("total_amount", req.Amount.StringFixed(2))
	form.Set("currency", req.Currency)
	form.Set("tran_id", req.TranID)
	form.Set("success_url", req.URLs.Success)
	form.Set("fail_url", req.URLs.Fail)
	form.Set("cancel_url", req.URLs.Cancel)
	form.Set("ipn_url", req.URLs.IPN)

	form.Set("cus_name", req.Customer.Name)
	form.Set("cus_email", req.Customer.Email)
	form.Set("cus_phone", req.Customer.Phone)
	form.Set("cus_add1", req.Shipping.Address)
	form.Set("cus_add2", req.Shipping.Address2)
	form.Set("cus_city", req.Shipping.City)
	form.Set("cus_state", req.Shipping.State)
	form.Set("cus_postcode", req.Shipping.Postcode)
	form.Set("cus_country", req.Customer.Country)

	form.Set("shipping_method", "Courier")
	form.Set("ship_name", firstNonEmpty(req.Shipping.FullName, req.Customer.Name))
	form.Set("ship_add1", req.Shipping.Address)
	form.Set("ship_add2", req.Shipping.Address2)
	form.Set("ship_city", req.Shipping.City)
	form.Set("ship_state", req.Shipping.State)
	form.Set("ship_postcode", req.Shipping.Postcode)
	form.Set("ship_country", req.Customer.Country)

	form.Set("product_name", req.ProductName)
	form.Set("product_category", "General")
	form.Set("product_profile", "general")
	form.Set("num_of_item", strconv.Itoa(req.NumItems))
	form.Set("value_a", req.UserID)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+sessionPath, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	body, status, err := c.do(httpReq)
	if err != nil {
		return nil, err
	}
	if status < 200 || status > 299 {
		return nil, &models.GatewayError{Reason: fmt.Sprintf("http %d", status)}
	}

	var resp sessionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &models.GatewayError{Reason: "malformed response", Err: err}
	}
	if !strings.EqualFold(resp.Status, "SUCCESS") {
		reason := resp.FailedReason
		if reason == "" {
			reason = "missing status"
			if resp.Status != "" {
				reason = "status " + resp.Status
			}
		}
		return nil, &models.GatewayError{Reason: reason}
	}

	return &Result{
		Status:     resp.Status,
		SessionKey: resp.SessionKey,
		GatewayURL: resp.GatewayPageURL,
		Options:    resp.Desc,
	}, nil
}

// Validation est la réponse de l'API de validation d'un val_id
type Validation struct {
	Status   models.GatewayStatus
	TranID   string
	ValID    string
	Amount   decimal.Decimal
	Currency string
}

type validationResponse struct {
	Status   string `json:"status"`
	TranID   string `json:"tran_id"`
	ValID    string `json:"val_id"`
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

// ValidatePayment interroge la passerelle pour confirmer un val_id reçu par callback
func (c *Client) ValidatePayment(ctx context.Context, valID string) (*Validation, error) {
	q := url.Values{}
	q.Set("val_id", valID)
	q.Set("store_id", c.cfg.StoreID)
	q.Set("store_passwd", c.cfg.StorePassword)
	q.Set("format", "json")

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+validatorPath+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	body, status, err := c.do(httpReq)
	if err != nil {
		return nil, err
	}
	if status < 200 || status > 299 {
		return nil, fmt.Errorf("%w: validator returned http %d", ErrTransport, status)
	}

	var resp validationResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: malformed validator response: %v", ErrTransport, err)
	}

	v := &Validation{
		Status:   models.ParseGatewayStatus(resp.Status),
		TranID:   resp.TranID,
		ValID:    resp.ValID,
		Currency: resp.Currency,
	}
	if resp.Amount != "" {
		if amt, err := decimal.NewFromString(resp.Amount); err == nil {
			v.Amount = amt
		}
	}
	return v, nil
}

func (c *Client) do(req *http.Request) ([]byte, int, error) {
	res, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	return body, res.StatusCode, nil
}

// IsTimeout indique si une erreur de transport est due à un dépassement de délai
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
