package gateway

import (
	"net/url"
	"strings"
)

// Chemins des callbacks, partagés avec le routeur
const (
	SuccessPath = "/api/payment/success"
	FailPath    = "/api/payment/fail"
	CancelPath  = "/api/payment/cancel"
	IPNPath     = "/api/payment/ipn"
)

type CallbackSet struct {
	Success string
	Fail    string
	Cancel  string
	IPN     string
}

// CallbackURLs construit les quatre URLs de retour portant la référence externe
func CallbackURLs(baseURL, ref string) CallbackSet {
	base := strings.TrimRight(baseURL, "/")
	q := "?id=" + url.QueryEscape(ref)
	return CallbackSet{
		Success: base + SuccessPath + q,
		Fail:    base + FailPath + q,
		Cancel:  base + CancelPath + q,
		IPN:     base + IPNPath + q,
	}
}
