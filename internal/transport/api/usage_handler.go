package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/fsdevblog/groph-credits/internal/domain"
	"github.com/fsdevblog/groph-credits/internal/ratelimit"
)

type UsageHandler struct {
	usageSvs UsageServicer
	alertSvs AlertServicer
	limiter  ratelimit.Limiter
}

func NewUsageHandler(usageSvs UsageServicer, alertSvs AlertServicer, limiter ratelimit.Limiter) *UsageHandler {
	return &UsageHandler{
		usageSvs: usageSvs,
		alertSvs: alertSvs,
		limiter:  limiter,
	}
}

type UsageCheckParams struct {
	EstimatedCost decimal.Decimal `binding:"required" json:"estimated_cost"`
}

type UsageCheckResponse struct {
	Allowed      bool `json:"allowed"`
	IsLowBalance bool `json:"is_low_balance"`
}

// Check POST RouteGroup + UsageCheckRoute. Проверка запроса на потребление:
// сначала лимитер частоты, затем рекомендательная проверка баланса. Отказ здесь
// обязан предотвратить сам вызов метрируемого сервиса на стороне шлюза.
func (u *UsageHandler) Check(c *gin.Context) {
	currentAccountID := getAccountIDFromContext(c)

	var params UsageCheckParams
	if bindErr := c.ShouldBindJSON(&params); bindErr != nil {
		_ = c.AbortWithError(http.StatusBadRequest, bindErr).SetType(gin.ErrorTypeBind)
		return
	}

	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	// Лимит частоты не зависит от баланса и проверяется первым.
	if limitErr := u.limiter.CheckAndIncrement(reqCtx, currentAccountID); limitErr != nil {
		var exceededErr *ratelimit.ExceededError
		if errors.As(limitErr, &exceededErr) {
			c.Header("Retry-After", exceededErr.RetryAfter.String())
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		_ = c.AbortWithError(http.StatusInternalServerError, limitErr).SetType(gin.ErrorTypePrivate)
		return
	}

	allowed, checkErr := u.usageSvs.CanConsume(reqCtx, currentAccountID, params.EstimatedCost)
	if checkErr != nil {
		_ = c.AbortWithError(http.StatusInternalServerError, checkErr).SetType(gin.ErrorTypePrivate)
		return
	}

	status, alertErr := u.alertSvs.Evaluate(reqCtx, currentAccountID)
	if alertErr != nil {
		_ = c.AbortWithError(http.StatusInternalServerError, alertErr).SetType(gin.ErrorTypePrivate)
		return
	}

	c.JSON(http.StatusOK, &UsageCheckResponse{
		Allowed:      allowed && status.CanUseServices,
		IsLowBalance: status.IsLowBalance,
	})
}

type UsageChargeParams struct {
	RequestID string          `binding:"required,max=128" json:"request_id"`
	Units     decimal.Decimal `binding:"required"         json:"units"`
}

type UsageChargeResponse struct {
	TransactionID int64  `json:"transaction_id"`
	Amount        string `json:"amount"`
	BalanceAfter  string `json:"balance_after"`
}

// Charge POST RouteGroup + UsageChargeRoute. Пост-фактум списание за фактически
// потребленные единицы. RequestID служит идемпотентным ключом: ретрай с тем же
// значением возвращает исходную транзакцию.
func (u *UsageHandler) Charge(c *gin.Context) {
	currentAccountID := getAccountIDFromContext(c)

	var params UsageChargeParams
	if bindErr := c.ShouldBindJSON(&params); bindErr != nil {
		_ = c.AbortWithError(http.StatusBadRequest, bindErr).SetType(gin.ErrorTypeBind)
		return
	}
	if params.Units.IsNegative() {
		c.AbortWithStatus(http.StatusUnprocessableEntity)
		return
	}

	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	transaction, chargeErr := u.usageSvs.ChargeUsage(reqCtx, currentAccountID, params.Units, params.RequestID)
	if chargeErr != nil {
		switch {
		case errors.Is(chargeErr, domain.ErrNotEnoughBalance):
			c.AbortWithStatusJSON(http.StatusPaymentRequired, gin.H{"error": "insufficient balance"})
		case errors.Is(chargeErr, domain.ErrWriteConflict):
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "transient conflict, retry"})
		default:
			_ = c.AbortWithError(http.StatusInternalServerError, chargeErr).SetType(gin.ErrorTypePrivate)
		}
		return
	}

	c.JSON(http.StatusOK, &UsageChargeResponse{
		TransactionID: transaction.ID,
		Amount:        transaction.Amount.String(),
		BalanceAfter:  transaction.BalanceAfter.String(),
	})
}
