package gateway

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func signedForm(password string) url.Values {
	form := url.Values{}
	form.Set("tran_id", "TXN-1")
	form.Set("val_id", "val-1")
	form.Set("amount", "109.00")
	form.Set("status", "VALID")
	form.Set("verify_key", "amount,status,tran_id,val_id")
	form.Set("verify_sign", ipnDigest(form, form.Get("verify_key"), password))
	return form
}

func TestVerifyIPNSignature(t *testing.T) {
	c := NewClient(Config{StorePassword: "secret"})

	assert.True(t, c.VerifyIPNSignature(signedForm("secret")))
	assert.False(t, c.VerifyIPNSignature(signedForm("other")))

	tampered := signedForm("secret")
	tampered.Set("amount", "1.00")
	assert.False(t, c.VerifyIPNSignature(tampered))

	unsigned := signedForm("secret")
	unsigned.Del("verify_sign")
	assert.False(t, c.VerifyIPNSignature(unsigned))
}

func TestIPNDigestMatchesKnownValue(t *testing.T) {
	form := url.Values{}
	form.Set("a", "1")
	// md5("a=1&store_passwd=" + md5("p") + "&")
	want := md5Hex("a=1&store_passwd=" + md5Hex("p") + "&")
	assert.Equal(t, want, ipnDigest(form, "a", "p"))
}
