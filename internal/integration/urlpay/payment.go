package urlpay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/mrtesla07/3xui-shop/internal/domain"
)

// PaymentRequest представляет тело запроса на создание платежа UrlPay
type PaymentRequest struct {
	Currency    string `json:"currency"`
	Amount      string `json:"amount"`
	UUID        string `json:"uuid"`
	ShopID      string `json:"shopId"`
	Description string `json:"description"`
	WebsiteURL  string `json:"website_url"`
	Language    string `json:"language"`
	Sign        string `json:"sign"`
	Items       []Item `json:"items"`
}

// Item позиция чека, зеркалит сумму платежа
type Item struct {
	Description    string `json:"description"`
	Quantity       int    `json:"quantity"`
	Price          string `json:"price"`
	VatCode        int    `json:"vat_code"`
	PaymentSubject int    `json:"payment_subject"`
	PaymentMode    int    `json:"payment_mode"`
}

// Payment представляет платеж со стороны провайдера
type Payment struct {
	ID     json.Number `json:"id"`
	UUID   string      `json:"uuid"`
	Status int         `json:"status"`
}

type createResponse struct {
	Success    bool   `json:"success"`
	ID         any    `json:"id"` // провайдер присылает как строку или число
	PaymentURL string `json:"paymentUrl"`
}

type fetchResponse struct {
	Success bool     `json:"success"`
	Payment *Payment `json:"payment"`
}

// CreatePayment создает платеж в UrlPay.
//
// Success requires HTTP 201 and success=true in the body; anything else,
// including a missing paymentUrl, is a *domain.ProviderError.
func (c *Client) CreatePayment(ctx context.Context, payload PaymentRequest) (string, string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal payment request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/payments", bytes.NewReader(body))
	if err != nil {
		return "", "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", "", fmt.Errorf("failed to read response body: %w", err)
	}

	var result createResponse
	dec := json.NewDecoder(bytes.NewReader(respBody))
	dec.UseNumber()
	if err := dec.Decode(&result); err != nil {
		return "", "", &domain.ProviderError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if resp.StatusCode != http.StatusCreated || !result.Success {
		return "", "", &domain.ProviderError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if result.PaymentURL == "" {
		c.log.Errorw("UrlPay response does not contain payment URL", "body", string(respBody))
		return "", "", &domain.ProviderError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if result.ID == nil {
		c.log.Errorw("UrlPay response does not contain payment id", "body", string(respBody))
		return "", "", &domain.ProviderError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	paymentID := fmt.Sprint(result.ID)
	c.log.Infow("UrlPay payment created", "paymentID", paymentID)
	return paymentID, result.PaymentURL, nil
}

// FetchPayment получает платеж из UrlPay.
//
// Returns (nil, nil) when the payment cannot be confirmed: non-200
// status, success=false or a missing payment field. Reconciliation must
// degrade to rejection, never crash, so none of these are errors.
func (c *Client) FetchPayment(ctx context.Context, paymentID string) (*Payment, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v2/payments/"+paymentID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warnw("Failed to fetch UrlPay payment", "error", err, "paymentID", paymentID)
		return nil, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.log.Warnw("Failed to fetch UrlPay payment", "status", resp.StatusCode, "paymentID", paymentID)
		return nil, nil
	}

	var result fetchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		c.log.Warnw("Failed to decode UrlPay payment response", "error", err, "paymentID", paymentID)
		return nil, nil
	}

	if !result.Success || result.Payment == nil {
		c.log.Warnw("UrlPay payment fetch returned unsuccessful response", "paymentID", paymentID)
		return nil, nil
	}

	return result.Payment, nil
}
