package gateway

import (
	"crypto/md5"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"
)

// VerifyIPNSignature contrôle verify_sign : md5 des champs listés dans verify_key,
// triés, auxquels s'ajoute store_passwd haché en md5.
func (c *Client) VerifyIPNSignature(form url.Values) bool {
	sign := form.Get("verify_sign")
	keys := form.Get("verify_key")
	if sign == "" || keys == "" {
		return false
	}
	return strings.EqualFold(sign, ipnDigest(form, keys, c.cfg.StorePassword))
}

func ipnDigest(form url.Values, verifyKey, storePassword string) string {
	fields := map[string]string{}
	for _, k := range strings.Split(verifyKey, ",") {
		k = strings.TrimSpace(k)
		if k != "" {
			fields[k] = form.Get(k)
		}
	}
	fields["store_passwd"] = md5Hex(storePassword)

	names := make([]string, 0, len(fields))
	for k := range fields {
		names = append(names, k)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, k := range names {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(fields[k])
		b.WriteByte('&')
	}
	return md5Hex(b.String())
}

func md5Hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}
