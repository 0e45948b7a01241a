package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/fsdevblog/groph-credits/internal/service"
	"github.com/fsdevblog/groph-credits/internal/transport/gateway"
)

// SignatureHeader заголовок с подписью провайдера для вебхука.
const SignatureHeader = "X-Payment-Signature"

type WebhookHandler struct {
	paymentSvs    PaymentServicer
	webhookSecret []byte
	l             *logrus.Logger
}

func NewWebhookHandler(paymentSvs PaymentServicer, webhookSecret []byte, l *logrus.Logger) *WebhookHandler {
	return &WebhookHandler{
		paymentSvs:    paymentSvs,
		webhookSecret: webhookSecret,
		l:             l,
	}
}

// webhookEnvelope конверт уведомления провайдера: строковый тип события и сырой
// payload, разбираемый по типу.
type webhookEnvelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// HandleNotification POST PaymentWebhookRoute. Принимает асинхронные уведомления
// платежного шлюза. Вызывающий не аутентифицируется: вместо этого подпись из
// SignatureHeader проверяется от сырого тела запроса. Непроверяемое событие
// отклоняется без каких-либо изменений состояния.
func (h *WebhookHandler) HandleNotification(c *gin.Context) {
	body, readErr := c.GetRawData()
	if readErr != nil {
		_ = c.AbortWithError(http.StatusInternalServerError, readErr).SetType(gin.ErrorTypePrivate)
		return
	}

	signature := c.GetHeader(SignatureHeader)
	if !gateway.VerifySignature(body, signature, h.webhookSecret) {
		h.l.WithField("component", "webhook").Warn("invalid payment notification signature, rejecting")
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
		return
	}

	var envelope webhookEnvelope
	if jsonErr := json.Unmarshal(body, &envelope); jsonErr != nil {
		_ = c.AbortWithError(http.StatusBadRequest, jsonErr).SetType(gin.ErrorTypeBind)
		return
	}

	event, parseErr := service.ParseEvent(envelope.Event, envelope.Payload)
	if parseErr != nil {
		_ = c.AbortWithError(http.StatusBadRequest, parseErr).SetType(gin.ErrorTypeBind)
		return
	}

	h.dispatchEvent(c, event)
}

type VerifyPurchaseParams struct {
	ProviderOrderID   string `binding:"required" json:"provider_order_id"`
	ProviderPaymentID string `binding:"required" json:"provider_payment_id"`
	Signature         string `binding:"required" json:"signature"`
}

// VerifyPurchase POST RouteGroup + PurchaseVerifyRoute. Клиентский путь подтверждения
// оплаты, дублирующий асинхронный вебхук. Подписана пара
// "<provider_order_id>|<provider_payment_id>"; после проверки событие проходит тот же
// идемпотентный путь зачисления, так что гонка с вебхуком безопасна.
func (h *WebhookHandler) VerifyPurchase(c *gin.Context) {
	var params VerifyPurchaseParams
	if bindErr := c.ShouldBindJSON(&params); bindErr != nil {
		_ = c.AbortWithError(http.StatusBadRequest, bindErr).SetType(gin.ErrorTypeBind)
		return
	}

	if !gateway.VerifyCheckoutSignature(
		params.ProviderOrderID,
		params.ProviderPaymentID,
		params.Signature,
		h.webhookSecret,
	) {
		h.l.WithField("component", "webhook").Warn("invalid purchase verification signature, rejecting")
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
		return
	}

	h.dispatchEvent(c, service.PaymentCapturedEvent{
		PaymentID:       params.ProviderPaymentID,
		ProviderOrderID: params.ProviderOrderID,
	})
}

func (h *WebhookHandler) dispatchEvent(c *gin.Context, event service.PaymentEvent) {
	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	result, handleErr := h.paymentSvs.HandleEvent(reqCtx, event)
	if handleErr != nil {
		_ = c.AbortWithError(http.StatusInternalServerError, handleErr).SetType(gin.ErrorTypePrivate)
		return
	}

	switch {
	case result.Ignored:
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
	case result.Duplicate:
		// Редоставка - не ошибка: тот же видимый результат, что и у оригинала.
		c.JSON(http.StatusOK, gin.H{"status": "duplicate"})
	default:
		c.JSON(http.StatusOK, gin.H{"status": "processed"})
	}
}
