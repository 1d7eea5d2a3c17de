package urlpay

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"
)

// Sign вычисляет подпись запроса на создание платежа.
//
// UrlPay expects SHA-1 over lower(currency) + amount + shopID + secret,
// rendered as lowercase hex. The algorithm is fixed by the provider and
// is recomputed on their side with their copy of the secret.
func Sign(currency, amount, shopID, secret string) string {
	payload := strings.ToLower(currency) + amount + shopID + secret
	sum := sha1.Sum([]byte(payload))
	return hex.EncodeToString(sum[:])
}
