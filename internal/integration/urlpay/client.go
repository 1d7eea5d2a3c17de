package urlpay

import (
	"net/http"
	"time"

	"github.com/mrtesla07/3xui-shop/pkg/logger"
)

// DefaultBaseURL базовый URL API UrlPay
const DefaultBaseURL = "https://urlpay.io/api"

// Client представляет клиент для работы с API UrlPay
type Client struct {
	baseURL    string
	apiKey     string
	shopID     string
	secretKey  string
	httpClient *http.Client
	log        *logger.Logger
}

// Config конфигурация для клиента UrlPay
type Config struct {
	BaseURL   string
	APIKey    string
	ShopID    string
	SecretKey string
}

// NewClient создает новый клиент UrlPay
func NewClient(cfg Config, log *logger.Logger) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Client{
		baseURL:   baseURL,
		apiKey:    cfg.APIKey,
		shopID:    cfg.ShopID,
		secretKey: cfg.SecretKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log,
	}
}

// Configured reports whether all required credentials are present.
func (c *Client) Configured() bool {
	return c.apiKey != "" && c.shopID != "" && c.secretKey != ""
}
