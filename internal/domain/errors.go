package domain

import (
	"errors"
	"fmt"
)

// ErrGatewayNotConfigured возвращается, когда не заданы учетные данные платежного шлюза.
var ErrGatewayNotConfigured = errors.New("payment gateway credentials are not configured")

// ProviderError ошибка исходящего запроса к платежному провайдеру.
// Carries the HTTP status and raw body returned by the provider.
type ProviderError struct {
	StatusCode int
	Body       string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider request failed: status=%d, body=%s", e.StatusCode, e.Body)
}
