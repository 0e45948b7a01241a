package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/fsdevblog/groph-credits/internal/domain"
	"github.com/fsdevblog/groph-credits/internal/service"
)

type CreditsHandler struct {
	ledgerSvs LedgerServicer
	orderSvs  OrderServicer
}

func NewCreditsHandler(ledgerSvs LedgerServicer, orderSvs OrderServicer) *CreditsHandler {
	return &CreditsHandler{
		ledgerSvs: ledgerSvs,
		orderSvs:  orderSvs,
	}
}

type PackageResponse struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	BaseCredits  float64 `json:"base_credits"`
	BonusCredits float64 `json:"bonus_credits"`
	Price        float64 `json:"price"`
	MinAmount    float64 `json:"min_amount,omitempty"`
	MaxAmount    float64 `json:"max_amount,omitempty"`
}

// Packages GET RouteGroup + PackagesRoute. Каталог пакетов кредитов.
func (h *CreditsHandler) Packages(c *gin.Context) {
	packages := h.orderSvs.ListPackages()

	var response = make([]PackageResponse, len(packages))
	for i, p := range packages {
		response[i] = PackageResponse{
			ID:           p.ID,
			Name:         p.Name,
			BaseCredits:  p.BaseCredits.InexactFloat64(),
			BonusCredits: p.BonusCredits.InexactFloat64(),
			Price:        p.Price.InexactFloat64(),
			MinAmount:    p.MinAmount.InexactFloat64(),
			MaxAmount:    p.MaxAmount.InexactFloat64(),
		}
	}
	c.JSON(http.StatusOK, response)
}

type PurchaseParams struct {
	PackageID    string          `binding:"required" json:"package_id"`
	CustomAmount decimal.Decimal `json:"custom_amount"`
	Quantity     int64           `json:"quantity"`
}

type PurchaseResponse struct {
	OrderID         int64   `json:"order_id"`
	ProviderOrderID string  `json:"provider_order_id"`
	GatewayKeyID    string  `json:"gateway_key_id"`
	Amount          float64 `json:"amount"`
}

// Purchase POST RouteGroup + PurchaseRoute. Создает PENDING заказ и возвращает
// параметры оплаты для шлюза.
func (h *CreditsHandler) Purchase(c *gin.Context) {
	currentAccountID := getAccountIDFromContext(c)

	var params PurchaseParams
	if bindErr := c.ShouldBindJSON(&params); bindErr != nil {
		_ = c.AbortWithError(http.StatusBadRequest, bindErr).SetType(gin.ErrorTypeBind)
		return
	}
	if params.Quantity == 0 {
		params.Quantity = 1
	}

	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	_, checkout, createErr := h.orderSvs.CreateOrder(reqCtx, service.CreateOrderArgs{
		AccountID:    currentAccountID,
		PackageID:    params.PackageID,
		CustomAmount: params.CustomAmount,
		Quantity:     params.Quantity,
	})
	if createErr != nil {
		switch {
		case errors.Is(createErr, domain.ErrInvalidAmount):
			c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid amount"})
		case errors.Is(createErr, domain.ErrGatewayUnavailable):
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "payment gateway unavailable"})
		default:
			_ = c.AbortWithError(http.StatusInternalServerError, createErr).SetType(gin.ErrorTypePrivate)
		}
		return
	}

	c.JSON(http.StatusOK, &PurchaseResponse{
		OrderID:         checkout.OrderID,
		ProviderOrderID: checkout.ProviderOrderID,
		GatewayKeyID:    checkout.GatewayKeyID,
		Amount:          checkout.Amount.InexactFloat64(),
	})
}

type BalanceResponse struct {
	BaseCredits  float64 `json:"base_credits"`
	BonusCredits float64 `json:"bonus_credits"`
	TotalCredits float64 `json:"total_credits"`
}

// Balance GET RouteGroup + BalanceRoute.
func (h *CreditsHandler) Balance(c *gin.Context) {
	currentAccountID := getAccountIDFromContext(c)

	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	balance, err := h.ledgerSvs.GetBalance(reqCtx, currentAccountID)
	if err != nil {
		_ = c.AbortWithError(http.StatusInternalServerError, err).SetType(gin.ErrorTypePrivate)
		return
	}

	c.JSON(http.StatusOK, &BalanceResponse{
		BaseCredits:  balance.BaseCredits.InexactFloat64(),
		BonusCredits: balance.BonusCredits.InexactFloat64(),
		TotalCredits: balance.TotalCredits.InexactFloat64(),
	})
}

type TransactionResponseItem struct {
	ID           int64   `json:"id"`
	Type         string  `json:"type"`
	Amount       float64 `json:"amount"`
	BalanceAfter float64 `json:"balance_after"`
	Description  string  `json:"description"`
	CreatedAt    string  `json:"created_at"`
}

// Transactions GET RouteGroup + TransactionsRoute. История транзакций по убыванию
// даты создания.
func (h *CreditsHandler) Transactions(c *gin.Context) {
	currentAccountID := getAccountIDFromContext(c)

	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	transactions, err := h.ledgerSvs.GetTransactions(reqCtx, currentAccountID, parseLimitQuery(c))
	if err != nil {
		_ = c.AbortWithError(http.StatusInternalServerError, err).SetType(gin.ErrorTypePrivate)
		return
	}

	if len(transactions) == 0 {
		c.AbortWithStatus(http.StatusNoContent)
		return
	}

	var response = make([]TransactionResponseItem, len(transactions))
	for i, t := range transactions {
		response[i] = TransactionResponseItem{
			ID:           t.ID,
			Type:         string(t.Type),
			Amount:       t.Amount.InexactFloat64(),
			BalanceAfter: t.BalanceAfter.InexactFloat64(),
			Description:  t.Description,
			CreatedAt:    t.CreatedAt.Format(time.RFC3339),
		}
	}
	c.JSON(http.StatusOK, response)
}

type OrderResponseItem struct {
	ID              int64   `json:"id"`
	PackageID       string  `json:"package_id"`
	RequestedAmount float64 `json:"requested_amount"`
	CreditedBase    float64 `json:"credited_base"`
	CreditedBonus   float64 `json:"credited_bonus"`
	Status          string  `json:"status"`
	CreatedAt       string  `json:"created_at"`
	CompletedAt     string  `json:"completed_at,omitempty"`
}

// Orders GET RouteGroup + OrdersRoute. Заказы аккаунта по убыванию даты создания.
func (h *CreditsHandler) Orders(c *gin.Context) {
	currentAccountID := getAccountIDFromContext(c)

	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	orders, err := h.orderSvs.GetByAccountID(reqCtx, currentAccountID, parseLimitQuery(c))
	if err != nil {
		_ = c.AbortWithError(http.StatusInternalServerError, err).SetType(gin.ErrorTypePrivate)
		return
	}

	if len(orders) == 0 {
		c.AbortWithStatus(http.StatusNoContent)
		return
	}

	var response = make([]OrderResponseItem, len(orders))
	for i, o := range orders {
		item := OrderResponseItem{
			ID:              o.ID,
			PackageID:       o.PackageID,
			RequestedAmount: o.RequestedAmount.InexactFloat64(),
			CreditedBase:    o.CreditedBase.InexactFloat64(),
			CreditedBonus:   o.CreditedBonus.InexactFloat64(),
			Status:          string(o.Status),
			CreatedAt:       o.CreatedAt.Format(time.RFC3339),
		}
		if o.CompletedAt != nil {
			item.CompletedAt = o.CompletedAt.Format(time.RFC3339)
		}
		response[i] = item
	}
	c.JSON(http.StatusOK, response)
}
