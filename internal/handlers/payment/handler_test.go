package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"cedra_checkout/internal/cart"
	"cedra_checkout/internal/checkout"
	"cedra_checkout/internal/discount"
	"cedra_checkout/internal/gateway"
	"cedra_checkout/internal/middleware"
	"cedra_checkout/internal/models"
	"cedra_checkout/internal/reconcile"
	"cedra_checkout/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const front = "http://front.test"

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeGateway struct {
	err   error
	calls int
}

func (g *fakeGateway) CreateTransaction(_ context.Context, req gateway.Request) (*gateway.Result, error) {
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	return &gateway.Result{
		Status:     "SUCCESS",
		GatewayURL: "https://pay.test/session/" + req.TranID,
		Options:    []gateway.Option{{Name: "visa", Type: "card"}},
	}, nil
}

// fakeValidator confirme les val_id de la forme "V-<ref>" pour le montant enregistré
type fakeValidator struct {
	store *store.MemoryStore
}

func (v fakeValidator) ValidatePayment(ctx context.Context, valID string) (*gateway.Validation, error) {
	ref := strings.TrimPrefix(valID, "V-")
	rec, err := v.store.FindTransactionByRef(ctx, ref)
	if err != nil {
		return &gateway.Validation{Status: models.GatewayStatus("INVALID_TRANSACTION"), ValID: valID}, nil
	}
	return &gateway.Validation{
		Status:   models.GatewayValid,
		TranID:   ref,
		ValID:    valID,
		Amount:   rec.PayableAmount,
		Currency: rec.Currency,
	}, nil
}

type fakeSignatures struct{ ok bool }

func (f fakeSignatures) VerifyIPNSignature(url.Values) bool { return f.ok }

type fixture struct {
	store   *store.MemoryStore
	gateway *fakeGateway
	carts   *cart.Store
	router  *gin.Engine
}

// asUser remplace AuthRequired : l'identité vient de l'en-tête X-Test-User
func asUser(c *gin.Context) {
	if id := c.GetHeader("X-Test-User"); id != "" {
		c.Set(middleware.ContextUserID, id)
	}
	c.Next()
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s := store.NewMemoryStore()
	s.PutUser(models.User{ID: "u1", Name: "Ada", Email: "ada@cedra.test", Phone: "0600000000"})
	s.PutUser(models.User{ID: "u2", Name: "Bob", Email: "bob@cedra.test"})
	s.PutProduct(models.Product{ID: "p1", Name: "Lampe", Price: decimal.NewFromInt(100), DiscountPercent: decimal.NewFromInt(10), Stock: 5})
	s.PutDiscount(models.Discount{ID: "d1", Code: "SPRING10", Percent: decimal.NewFromInt(10), MaxDiscountAmount: decimal.NewFromInt(50), Active: true})

	gw := &fakeGateway{}
	initiator := checkout.NewInitiator(s, s, gw, checkout.Config{BaseURL: "http://api.test", Currency: "BDT", RefPrefix: "CEDRA"})
	rec := reconcile.NewReconciler(s, fakeValidator{store: s}, nil, reconcile.Config{RequireValidation: true})
	carts := cart.NewStore(cart.NewMemoryPersistence(), s)

	h := NewHandler(Deps{
		Initiator:    initiator,
		Reconciler:   rec,
		Transactions: s,
		Signatures:   fakeSignatures{ok: true},
		Discounts:    discount.NewValidator(discount.NewStoreSource(s)),
		Carts:        carts,
		TaxRate:      decimal.RequireFromString("0.09"),
		FrontendURL:  front,
	})

	r := gin.New()
	r.Use(asUser)
	r.POST("/api/checkout", h.Checkout)
	r.POST(gateway.SuccessPath, h.Success)
	r.GET(gateway.SuccessPath, h.Success)
	r.POST(gateway.FailPath, h.Fail)
	r.POST(gateway.CancelPath, h.Cancel)
	r.POST(gateway.IPNPath, h.IPN)
	r.GET("/api/payment/status", h.Status)
	r.POST("/api/discount/validate", h.ValidateDiscount)
	r.GET("/api/cart", h.GetCart)
	r.POST("/api/cart/items", h.AddToCart)
	r.PATCH("/api/cart/items/:productId", h.UpdateCartItem)
	r.DELETE("/api/cart/items/:productId", h.RemoveCartItem)
	r.DELETE("/api/cart", h.ClearCart)

	return &fixture{store: s, gateway: gw, carts: carts, router: r}
}

func (f *fixture) do(method, target, user, contentType, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if user != "" {
		req.Header.Set("X-Test-User", user)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *fixture) json(method, target, user, body string) *httptest.ResponseRecorder {
	return f.do(method, target, user, "application/json", body)
}

func (f *fixture) form(target string, values url.Values) *httptest.ResponseRecorder {
	return f.do(http.MethodPost, target, "", "application/x-www-form-urlencoded", values.Encode())
}

const checkoutBody = `{"items":[{"productId":"p1","quantity":2,"unitPrice":"1"}],
	"shippingDetails":{"address":"1 rue de la Paix","city":"Dhaka","postcode":"1207","phone":"0600000000"}}`

func (f *fixture) checkout(t *testing.T) string {
	t.Helper()
	w := f.json(http.MethodPost, "/api/checkout", "u1", checkoutBody)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Data struct {
			Status        string           `json:"status"`
			TransactionID string           `json:"transactionId"`
			GatewayURL    string           `json:"gatewayUrl"`
			Desc          []gateway.Option `json:"desc"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "SUCCESS", resp.Data.Status)
	assert.Len(t, resp.Data.Desc, 1)
	assert.Contains(t, resp.Data.GatewayURL, resp.Data.TransactionID)
	return resp.Data.TransactionID
}

func location(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	require.Equal(t, http.StatusFound, w.Code, w.Body.String())
	return w.Header().Get("Location")
}

func TestCheckoutThenSuccessThenDuplicateIPN(t *testing.T) {
	f := newFixture(t)
	ref := f.checkout(t)

	// Le prix envoyé par le client est ignoré : 2 x 100 - 10% + 9%
	rec, err := f.store.FindTransactionByRef(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, "196.20", rec.PayableAmount.StringFixed(2))

	w := f.form(gateway.SuccessPath+"?id="+url.QueryEscape(ref), url.Values{"val_id": {"V-" + ref}, "status": {"VALID"}})
	assert.Equal(t, front+"/order/success?id="+url.QueryEscape(ref), location(t, w))

	w = f.form(gateway.IPNPath, url.Values{"tran_id": {ref}, "val_id": {"V-" + ref}, "status": {"VALID"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"status":"SUCCESS","alreadyProcessed":true}`, w.Body.String())

	p, err := f.store.GetProduct(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, 3, p.Stock)

	w = f.do(http.MethodGet, "/api/payment/status?id="+url.QueryEscape(ref), "u1", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"SUCCESS"`)
	assert.Contains(t, w.Body.String(), `"payable":"196.20"`)

	// Un autre utilisateur ne voit pas ce paiement
	w = f.do(http.MethodGet, "/api/payment/status?id="+url.QueryEscape(ref), "u2", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCheckoutUsesServerCartWhenItemsOmitted(t *testing.T) {
	f := newFixture(t)
	_, err := f.carts.Add(context.Background(), "u1", models.CartItem{ProductID: "p1", Quantity: 1})
	require.NoError(t, err)

	w := f.json(http.MethodPost, "/api/checkout", "u1",
		`{"shippingDetails":{"address":"1 rue de la Paix","phone":"0600000000"}}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 1, f.gateway.calls)
}

func TestCheckoutErrors(t *testing.T) {
	cases := []struct {
		name string
		user string
		body string
		code int
	}{
		{"anonymous", "", checkoutBody, http.StatusUnauthorized},
		{"empty cart", "u1", `{"items":[],"shippingDetails":{"address":"a","phone":"1"}}`, http.StatusBadRequest},
		{"missing phone", "u1", `{"items":[{"productId":"p1","quantity":1}],"shippingDetails":{"address":"a"}}`, http.StatusBadRequest},
		{"unknown product", "u1", `{"items":[{"productId":"zz","quantity":1}],"shippingDetails":{"address":"a","phone":"1"}}`, http.StatusBadRequest},
		{"out of stock", "u1", `{"items":[{"productId":"p1","quantity":9}],"shippingDetails":{"address":"a","phone":"1"}}`, http.StatusConflict},
		{"malformed", "u1", `{`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			w := f.json(http.MethodPost, "/api/checkout", tc.user, tc.body)
			assert.Equal(t, tc.code, w.Code, w.Body.String())
			assert.Contains(t, w.Body.String(), `"error"`)
			assert.Zero(t, f.gateway.calls)
		})
	}
}

func TestCheckoutGatewayRejection(t *testing.T) {
	f := newFixture(t)
	f.gateway.err = &models.GatewayError{Reason: "Store Credential Error"}

	w := f.json(http.MethodPost, "/api/checkout", "u1", checkoutBody)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "Store Credential Error")
}

func TestFailAndCancelRedirect(t *testing.T) {
	f := newFixture(t)

	ref := f.checkout(t)
	w := f.form(gateway.FailPath+"?id="+url.QueryEscape(ref), nil)
	assert.Equal(t, front+"/order/failed?id="+url.QueryEscape(ref), location(t, w))

	// Un succès tardif ne ressuscite pas une transaction échouée
	w = f.form(gateway.SuccessPath+"?id="+url.QueryEscape(ref), url.Values{"val_id": {"V-" + ref}})
	assert.Equal(t, front+"/order/failed?id="+url.QueryEscape(ref), location(t, w))

	ref = f.checkout(t)
	w = f.form(gateway.CancelPath+"?id="+url.QueryEscape(ref), nil)
	assert.Equal(t, front+"/order/cancelled?id="+url.QueryEscape(ref), location(t, w))
}

func TestSuccessWithoutValidationStaysPending(t *testing.T) {
	f := newFixture(t)
	ref := f.checkout(t)

	w := f.do(http.MethodGet, gateway.SuccessPath+"?id="+url.QueryEscape(ref), "", "", "")
	assert.Equal(t, front+"/order/pending?id="+url.QueryEscape(ref), location(t, w))
}

func TestCallbacksUnknownRef(t *testing.T) {
	f := newFixture(t)

	for _, path := range []string{gateway.SuccessPath, gateway.FailPath, gateway.CancelPath} {
		w := f.form(path+"?id=NOPE", nil)
		assert.Equal(t, http.StatusNotFound, w.Code, path)
	}
	w := f.form(gateway.SuccessPath, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.form(gateway.IPNPath, url.Values{"tran_id": {"NOPE"}, "status": {"VALID"}, "val_id": {"V-NOPE"}})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestIPNRefMismatchAndBadSignature(t *testing.T) {
	f := newFixture(t)
	ref := f.checkout(t)

	w := f.form(gateway.IPNPath+"?id="+url.QueryEscape(ref), url.Values{"tran_id": {"OTHER"}, "status": {"FAILED"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	rec, err := f.store.FindTransactionByRef(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, models.TransactionPending, rec.Status)

	h := NewHandler(Deps{Reconciler: nil, Signatures: fakeSignatures{ok: false}})
	r := gin.New()
	r.POST(gateway.IPNPath, h.IPN)
	req := httptest.NewRequest(http.MethodPost, gateway.IPNPath,
		strings.NewReader(url.Values{"tran_id": {ref}, "status": {"VALID"}, "verify_sign": {"x"}, "verify_key": {"status"}}.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rw := httptest.NewRecorder()
	r.ServeHTTP(rw, req)
	assert.Equal(t, http.StatusBadRequest, rw.Code)
	assert.Contains(t, rw.Body.String(), "Signature IPN invalide")
}

func TestIPNVerifiedSuccessWithoutValID(t *testing.T) {
	f := newFixture(t)
	ref := f.checkout(t)

	w := f.form(gateway.IPNPath, url.Values{
		"tran_id": {ref}, "status": {"VALID"}, "verify_sign": {"sig"}, "verify_key": {"status,tran_id"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"status":"SUCCESS"`)
}

func TestValidateDiscount(t *testing.T) {
	f := newFixture(t)

	w := f.json(http.MethodPost, "/api/discount/validate", "", `{"code":"spring10"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"success":true`)
	assert.Contains(t, w.Body.String(), `"code":"SPRING10"`)

	assert.Equal(t, http.StatusNotFound, f.json(http.MethodPost, "/api/discount/validate", "", `{"code":"NOPE"}`).Code)
	assert.Equal(t, http.StatusBadRequest, f.json(http.MethodPost, "/api/discount/validate", "", `{}`).Code)
}

func TestCartEndpoints(t *testing.T) {
	f := newFixture(t)

	w := f.json(http.MethodPost, "/api/cart/items", "u1", `{"productId":"p1","quantity":1,"color":"red"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = f.json(http.MethodPost, "/api/cart/items", "u1", `{"productId":"p1","quantity":2,"color":"red"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Items []models.CartItem `json:"items"`
		Count int               `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Items, 1)
	assert.Equal(t, 3, body.Items[0].Quantity)
	assert.Equal(t, "Lampe", body.Items[0].Title)

	w = f.json(http.MethodPatch, "/api/cart/items/p1", "u1", `{"quantity":5,"color":"red"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"quantity":5`)

	w = f.json(http.MethodPatch, "/api/cart/items/p1", "u1", `{"quantity":1,"color":"blue"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(http.MethodDelete, "/api/cart/items/p1?color=red", "u1", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"items":[]`)

	_, err := f.carts.Add(context.Background(), "u1", models.CartItem{ProductID: "p1", Quantity: 1})
	require.NoError(t, err)
	w = f.do(http.MethodDelete, "/api/cart", "u1", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":0`)
}

func TestCheckoutResultLabels(t *testing.T) {
	assert.Equal(t, "ok", checkoutResult(nil))
	assert.Equal(t, "gateway_timeout", checkoutResult(&models.GatewayError{Reason: "timeout"}))
	assert.Equal(t, "out_of_stock", checkoutResult(models.ErrInsufficientStock))
	assert.Equal(t, "storage_error", checkoutResult(models.Storage("x", assert.AnError)))
	assert.Equal(t, "invalid", checkoutResult(models.ErrEmptyCart))
}
