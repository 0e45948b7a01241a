package service

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/fsdevblog/groph-credits/internal/catalog"
	"github.com/fsdevblog/groph-credits/pkg/uow"
)

type AppServices struct {
	AccountService *AccountService
	LedgerService  *LedgerService
	UsageService   *UsageService
	OrderService   *OrderService
	PaymentService *PaymentService
	AlertService   *AlertService
}

type FactoryArgs struct {
	UOW                 uow.UOW
	Catalog             *catalog.Catalog
	Gateway             GatewayClient
	Logger              *logrus.Logger
	JWTSecret           []byte
	UsageUnitRate       decimal.Decimal
	UsageAllowOverdraft bool
	LowBalanceThreshold decimal.Decimal
	AnomalyThreshold    decimal.Decimal
}

func Factory(args FactoryArgs) (*AppServices, error) {
	accountService, accountServiceErr := NewAccountService(args.UOW, args.JWTSecret)
	if accountServiceErr != nil {
		return nil, fmt.Errorf("service factory: %s", accountServiceErr.Error())
	}

	ledgerService, ledgerServiceErr := NewLedgerService(args.UOW)
	if ledgerServiceErr != nil {
		return nil, fmt.Errorf("service factory: %s", ledgerServiceErr.Error())
	}

	usageService := NewUsageService(UsageServiceArgs{
		Ledger:         ledgerService,
		CostFn:         PerUnitCost(args.UsageUnitRate),
		AllowOverdraft: args.UsageAllowOverdraft,
	})

	orderService, orderServiceErr := NewOrderService(args.UOW, args.Catalog, args.Gateway)
	if orderServiceErr != nil {
		return nil, fmt.Errorf("service factory: %s", orderServiceErr.Error())
	}

	paymentService := NewPaymentService(args.UOW, ledgerService, args.Logger)

	alertService, alertServiceErr := NewAlertService(AlertServiceArgs{
		UOW:                 args.UOW,
		LowBalanceThreshold: args.LowBalanceThreshold,
		AnomalyThreshold:    args.AnomalyThreshold,
	})
	if alertServiceErr != nil {
		return nil, fmt.Errorf("service factory: %s", alertServiceErr.Error())
	}

	return &AppServices{
		AccountService: accountService,
		LedgerService:  ledgerService,
		UsageService:   usageService,
		OrderService:   orderService,
		PaymentService: paymentService,
		AlertService:   alertService,
	}, nil
}
