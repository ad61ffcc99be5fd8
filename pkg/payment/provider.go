package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Сентинел успешного результата в callback провайдера.
const SuccessCode = "00"

// Формат локального времени, в котором провайдер присылает момент оплаты.
const ProviderTimeLayout = "2006-01-02 15:04:05"

// CheckoutItem - позиция в платеже (провайдер показывает их на странице оплаты).
type CheckoutItem struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Price    int64  `json:"price"`
}

type CreateCheckoutRequest struct {
	OrderCode   int64          `json:"orderCode"`
	Amount      int64          `json:"amount"`
	Description string         `json:"description"`
	Items       []CheckoutItem `json:"items"`
	CancelURL   string         `json:"cancelUrl"`
	ReturnURL   string         `json:"returnUrl"`
}

type CheckoutInfo struct {
	OrderCode     int64  `json:"orderCode"`
	CheckoutURL   string `json:"checkoutUrl"`
	PaymentLinkID string `json:"paymentLinkId"`
}

// CallbackPayload - входящий webhook провайдера.
// Code == "00" означает успех, любое другое значение - отказ.
type CallbackPayload struct {
	OrderCode           int64  `json:"orderCode"`
	Code                string `json:"code"`
	TransactionDateTime string `json:"transactionDateTime"`
}

// ProviderInterface - контракт внешнего платёжного провайдера.
type ProviderInterface interface {
	CreateCheckout(ctx context.Context, req CreateCheckoutRequest) (*CheckoutInfo, error)
}

// Provider - HTTP-клиент платёжного провайдера (ссылки на оплату комиссии).
type Provider struct {
	httpClient *http.Client
	baseURL    string
	clientID   string
	apiKey     string
	logger     *zap.Logger
}

func New(baseURL, clientID, apiKey string, logger *zap.Logger) ProviderInterface {
	return &Provider{
		httpClient: &http.Client{Timeout: 20 * time.Second},
		baseURL:    baseURL,
		clientID:   clientID,
		apiKey:     apiKey,
		logger:     logger.Named("payment_provider"),
	}
}

type createCheckoutResponse struct {
	Code string       `json:"code"`
	Desc string       `json:"desc"`
	Data CheckoutInfo `json:"data"`
}

// CreateCheckout запрашивает у провайдера ссылку на оплату.
// Ошибка провайдера отдается наверх как есть - локальная запись о платеже
// в этом случае не создается вовсе.
func (p *Provider) CreateCheckout(ctx context.Context, payload CreateCheckoutRequest) (*CheckoutInfo, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("ошибка сериализации запроса на оплату: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", p.baseURL+"/v2/payment-requests", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("ошибка создания POST-запроса: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-client-id", p.clientID)
	req.Header.Set("x-api-key", p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ошибка выполнения запроса к платёжному провайдеру: %w", err)
	}
	defer resp.Body.Close()

	rawBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения ответа провайдера: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		p.logger.Error("Платёжный провайдер вернул ошибку",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", rawBody),
		)
		return nil, fmt.Errorf("платёжный провайдер вернул статус: %s", resp.Status)
	}

	var parsed createCheckoutResponse
	if err := json.Unmarshal(rawBody, &parsed); err != nil {
		return nil, fmt.Errorf("ошибка парсинга ответа провайдера: %w", err)
	}
	if parsed.Code != SuccessCode {
		return nil, fmt.Errorf("платёжный провайдер отклонил запрос: %s (%s)", parsed.Code, parsed.Desc)
	}

	return &parsed.Data, nil
}

// ParseProviderTime разбирает локальное время провайдера и приводит его к UTC.
// Неразборчивое значение заменяется на текущий момент.
func ParseProviderTime(raw string) time.Time {
	parsed, err := time.ParseInLocation(ProviderTimeLayout, raw, time.Local)
	if err != nil {
		return time.Now().UTC()
	}
	return parsed.UTC()
}
