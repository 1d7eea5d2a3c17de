package handlers

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/mrtesla07/3xui-shop/pkg/logger"
)

type fakeProcessor struct {
	err     error
	panics  bool
	gotBody []byte
}

func (f *fakeProcessor) HandleWebhook(ctx context.Context, raw []byte) error {
	f.gotBody = raw
	if f.panics {
		panic("boom")
	}
	return f.err
}

func postWebhook(t *testing.T, processor *fakeProcessor, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)

	router := gin.New()
	handler := NewWebhookHandler(processor, logger.Nop())
	router.POST("/webhooks/urlpay", handler.HandleUrlPayWebhook)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/urlpay", bytes.NewReader(body))
	router.ServeHTTP(w, req)

	return w
}

func TestWebhookHandler_HandleUrlPayWebhook(t *testing.T) {
	t.Run("accepted webhook returns 200", func(t *testing.T) {
		processor := &fakeProcessor{}
		body := []byte(`{"payment_status":"success","id":"101","uuid":"uuid-1"}`)

		w := postWebhook(t, processor, body)

		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, body, processor.gotBody)
	})

	t.Run("rejected webhook returns 400", func(t *testing.T) {
		processor := &fakeProcessor{err: errors.New("uuid mismatch")}

		w := postWebhook(t, processor, []byte(`{}`))

		require.Equal(t, http.StatusBadRequest, w.Code)
		require.Contains(t, w.Body.String(), "webhook verification failed")
	})

	t.Run("panic in processing returns 400, not 500", func(t *testing.T) {
		processor := &fakeProcessor{panics: true}

		w := postWebhook(t, processor, []byte(`{}`))

		require.Equal(t, http.StatusBadRequest, w.Code)
	})
}
