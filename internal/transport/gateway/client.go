// Package gateway содержит HTTP клиент платежного шлюза и проверку подписей его
// уведомлений. Ретраи на стороне шлюза не подавляются - они поглощаются
// идемпотентностью журнала.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/fsdevblog/groph-credits/internal/domain"
	"github.com/fsdevblog/groph-credits/internal/service"
)

const (
	RouteOrders = "/v1/orders"

	defaultRequestTimeout = 5 * time.Second
	maxCreateAttempts     = 3
	retryBackoff          = 200 * time.Millisecond
)

// HTTPClient является реализацией интерфейса service.GatewayClient для HTTP запросов
// к платежному шлюзу.
type HTTPClient struct {
	baseURL    string
	keyID      string
	keySecret  string
	httpClient *http.Client
}

var _ service.GatewayClient = (*HTTPClient)(nil)

func NewHTTPClient(baseURL, keyID, keySecret string) *HTTPClient {
	return &HTTPClient{
		baseURL:   baseURL,
		keyID:     keyID,
		keySecret: keySecret,
		httpClient: &http.Client{
			Timeout: defaultRequestTimeout,
		},
	}
}

// KeyID возвращает публичный идентификатор ключа для параметров оплаты на клиенте.
func (c *HTTPClient) KeyID() string {
	return c.keyID
}

type createOrderRequest struct {
	Amount  decimal.Decimal `json:"amount"`
	Receipt string          `json:"receipt"`
}

type createOrderResponse struct {
	ID string `json:"id"`
}

// CreateOrder создает заказ на стороне шлюза и возвращает его provider order id.
// Ошибки 5xx и сетевые повторяются ограниченное число раз с паузой, после чего
// возвращается domain.ErrGatewayUnavailable: заказ в нашей БД при этом не создается,
// частичного состояния не остается.
func (c *HTTPClient) CreateOrder(
	ctx context.Context,
	amount decimal.Decimal,
	receipt string,
) (*service.GatewayOrder, error) {
	body, marshalErr := json.Marshal(createOrderRequest{Amount: amount, Receipt: receipt})
	if marshalErr != nil {
		return nil, errors.Wrap(marshalErr, "marshal create order request")
	}

	var lastErr error
	for attempt := 0; attempt < maxCreateAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err() //nolint:wrapcheck
			case <-time.After(retryBackoff * time.Duration(attempt)):
			}
		}

		order, doErr := c.doCreateOrder(ctx, body)
		if doErr == nil {
			return order, nil
		}
		if !isRetryable(doErr) {
			return nil, doErr
		}
		lastErr = doErr
	}

	return nil, fmt.Errorf("%w: %s", domain.ErrGatewayUnavailable, lastErr.Error())
}

//nolint:nonamedreturns
func (c *HTTPClient) doCreateOrder(ctx context.Context, body []byte) (order *service.GatewayOrder, err error) {
	req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+RouteOrders, bytes.NewReader(body))
	if reqErr != nil {
		return nil, errors.Wrap(reqErr, "create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.keyID, c.keySecret)

	resp, doErr := c.httpClient.Do(req)
	if doErr != nil {
		return nil, &retryableError{cause: errors.Wrap(doErr, "do request")}
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			err = errors.Wrap(closeErr, "close response body")
		}
	}()

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, &retryableError{cause: NewStatusCodeError(resp.StatusCode)}
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, NewStatusCodeError(resp.StatusCode)
	}

	respBody, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return nil, errors.Wrap(readErr, "read response")
	}

	var parsed createOrderResponse
	if jsonErr := json.Unmarshal(respBody, &parsed); jsonErr != nil {
		return nil, errors.Wrap(jsonErr, "parse response")
	}
	if parsed.ID == "" {
		return nil, errors.New("gateway returned empty order id")
	}

	return &service.GatewayOrder{ProviderOrderID: parsed.ID}, nil
}
