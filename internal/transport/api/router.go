package api

import (
	"time"

	"github.com/fsdevblog/groph-credits/internal/ratelimit"
	"github.com/fsdevblog/groph-credits/internal/transport/api/middlewares"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const (
	DefaultServiceTimeout = 3 * time.Second
)

const (
	RouteGroup          = "/api"
	RegisterRoute       = "/account/register"
	LoginRoute          = "/account/login"
	UsageCheckRoute     = "/usage/check"
	UsageChargeRoute    = "/usage/charge"
	PackagesRoute       = "/credits/packages"
	PurchaseRoute       = "/credits/purchase"
	PurchaseVerifyRoute = "/credits/purchase/verify"
	BalanceRoute        = "/credits/balance"
	TransactionsRoute   = "/credits/transactions"
	OrdersRoute         = "/credits/orders"
	PaymentWebhookRoute = "/webhooks/payment"
)

type RouterArgs struct {
	Logger         *logrus.Logger
	AccountService AccountServicer
	LedgerService  LedgerServicer
	UsageService   UsageServicer
	OrderService   OrderServicer
	PaymentService PaymentServicer
	AlertService   AlertServicer
	RateLimiter    ratelimit.Limiter
	JWTSecretKey   []byte
	WebhookSecret  []byte
}

func New(args RouterArgs) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if args.Logger != nil {
		r.Use(middlewares.Logger(args.Logger))
	}
	r.Use(middlewares.Errors())

	authHandler := NewAuthHandler(args.AccountService)
	usageHandler := NewUsageHandler(args.UsageService, args.AlertService, args.RateLimiter)
	creditsHandler := NewCreditsHandler(args.LedgerService, args.OrderService)
	webhookHandler := NewWebhookHandler(args.PaymentService, args.WebhookSecret, args.Logger)

	// Вебхук шлюза доступен без авторизации вызывающего: вместо неё проверяется
	// подпись провайдера.
	r.POST(PaymentWebhookRoute, webhookHandler.HandleNotification)

	api := r.Group(RouteGroup)

	api.POST(RegisterRoute, middlewares.NonAuthRequired(args.JWTSecretKey), authHandler.Register)
	api.POST(LoginRoute, middlewares.NonAuthRequired(args.JWTSecretKey), authHandler.Login)

	api.Use(middlewares.AuthRequired(args.JWTSecretKey))
	// ниже все роуты группы требуют авторизованного аккаунта.
	api.POST(UsageCheckRoute, usageHandler.Check)
	api.POST(UsageChargeRoute, usageHandler.Charge)

	api.GET(PackagesRoute, creditsHandler.Packages)
	api.POST(PurchaseRoute, creditsHandler.Purchase)
	api.POST(PurchaseVerifyRoute, webhookHandler.VerifyPurchase)
	api.GET(BalanceRoute, creditsHandler.Balance)
	api.GET(TransactionsRoute, creditsHandler.Transactions)
	api.GET(OrdersRoute, creditsHandler.Orders)
	return r
}
