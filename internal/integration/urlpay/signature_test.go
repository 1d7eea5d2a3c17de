package urlpay_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mrtesla07/3xui-shop/internal/integration/urlpay"
)

func TestSign(t *testing.T) {
	t.Run("known vector", func(t *testing.T) {
		// sha1("rub10.00shop123secret")
		require.Equal(t,
			"3c4bdd95da92bd22282b10bfbd367ea75a470ced",
			urlpay.Sign("RUB", "10.00", "shop123", "secret"),
		)
	})

	t.Run("deterministic", func(t *testing.T) {
		first := urlpay.Sign("RUB", "199.00", "shop123", "secret")
		second := urlpay.Sign("RUB", "199.00", "shop123", "secret")
		require.Equal(t, first, second)
	})

	t.Run("currency is lowercased before hashing", func(t *testing.T) {
		require.Equal(t,
			urlpay.Sign("rub", "10.00", "shop123", "secret"),
			urlpay.Sign("RUB", "10.00", "shop123", "secret"),
		)
	})

	t.Run("changing any input changes the digest", func(t *testing.T) {
		base := urlpay.Sign("RUB", "10.00", "shop123", "secret")

		require.NotEqual(t, base, urlpay.Sign("USD", "10.00", "shop123", "secret"))
		require.NotEqual(t, base, urlpay.Sign("RUB", "10.01", "shop123", "secret"))
		require.NotEqual(t, base, urlpay.Sign("RUB", "10.00", "shop124", "secret"))
		require.NotEqual(t, base, urlpay.Sign("RUB", "10.00", "shop123", "secret2"))
	})
}
