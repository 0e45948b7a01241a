package app

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/fsdevblog/groph-credits/internal/catalog"
	"github.com/fsdevblog/groph-credits/internal/config"
	"github.com/fsdevblog/groph-credits/internal/ratelimit"
	"github.com/fsdevblog/groph-credits/internal/repository/pgrepo"
	"github.com/fsdevblog/groph-credits/internal/repository/repoargs"
	"github.com/fsdevblog/groph-credits/internal/service"
	"github.com/fsdevblog/groph-credits/internal/transport/alerts"
	"github.com/fsdevblog/groph-credits/internal/transport/api"
	"github.com/fsdevblog/groph-credits/internal/transport/gateway"
	"github.com/fsdevblog/groph-credits/pkg/uow"

	// driver for migration applying postgres.
	_ "github.com/golang-migrate/migrate/v4/database/postgres" //nolint:revive
	// driver to get migrations from files (*.sql in our case).
	_ "github.com/golang-migrate/migrate/v4/source/file" //nolint:revive
)

type App struct {
	Config *config.Config
	Logger *logrus.Logger
}

func New(conf *config.Config, l *logrus.Logger) *App {
	return &App{
		Config: conf,
		Logger: l,
	}
}

func (a *App) Run() error {
	notifyCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.Logger.Infof("Starting app on %s", a.Config.RunAddress)
	conn, connErr := pgrepo.Connect(notifyCtx, a.Config.MigrationsDir, a.Config.DatabaseDSN, a.Logger)
	if connErr != nil {
		return fmt.Errorf("app run: %s", connErr.Error())
	}
	defer conn.Close()

	unitOfWork, uowErr := initUOW(conn)
	if uowErr != nil {
		return fmt.Errorf("app run: %s", uowErr.Error())
	}

	packagesCatalog := catalog.New(catalog.Args{
		CustomMin: a.Config.MinCustomAmount,
		CustomMax: a.Config.MaxCustomAmount,
	})

	gatewayClient := gateway.NewHTTPClient(
		a.Config.GatewayBaseURL,
		a.Config.GatewayKeyID,
		a.Config.GatewayKeySecret,
	)

	services, sErr := service.Factory(service.FactoryArgs{
		UOW:                 unitOfWork,
		Catalog:             packagesCatalog,
		Gateway:             gatewayClient,
		Logger:              a.Logger,
		JWTSecret:           []byte(a.Config.JWTSecret),
		UsageUnitRate:       a.Config.UsageUnitRate,
		UsageAllowOverdraft: a.Config.UsageAllowOverdraft,
		LowBalanceThreshold: a.Config.LowBalanceThreshold,
		AnomalyThreshold:    a.Config.AnomalyThreshold,
	})
	if sErr != nil {
		return fmt.Errorf("app run: %s", sErr.Error())
	}

	router := api.New(api.RouterArgs{
		Logger:         a.Logger,
		AccountService: services.AccountService,
		LedgerService:  services.LedgerService,
		UsageService:   services.UsageService,
		OrderService:   services.OrderService,
		PaymentService: services.PaymentService,
		AlertService:   services.AlertService,
		RateLimiter:    a.initRateLimiter(),
		JWTSecretKey:   []byte(a.Config.JWTSecret),
		WebhookSecret:  []byte(a.Config.WebhookSecret),
	})

	errChan := make(chan error, 1)

	go func() {
		if runErr := router.Run(a.Config.RunAddress); runErr != nil {
			errChan <- runErr
		}
	}()

	dispatcher := alerts.New(services.AlertService, alerts.NewLogNotifier(a.Logger), a.Logger).
		SetEvaluationWorkers(5) //nolint:mnd

	go dispatcher.Run(notifyCtx)

	select {
	case <-notifyCtx.Done():
		return notifyCtx.Err() //nolint:wrapcheck
	case err := <-errChan:
		return err
	}
}

// initRateLimiter выбирает реализацию лимитера: redis если задан адрес, иначе
// in-memory для одиночного инстанса.
func (a *App) initRateLimiter() ratelimit.Limiter {
	limits := ratelimit.Limits{
		PerMinute: a.Config.RateLimitPerMinute,
		PerHour:   a.Config.RateLimitPerHour,
		PerDay:    a.Config.RateLimitPerDay,
	}

	if a.Config.RedisAddr == "" {
		a.Logger.Warn("redis address is not set, falling back to in-memory rate limiter")
		return ratelimit.NewMemoryLimiter(limits)
	}

	client := redis.NewClient(&redis.Options{Addr: a.Config.RedisAddr})
	return ratelimit.NewRedisLimiter(client, limits, "")
}

func initUOW(conn *pgxpool.Pool) (*uow.UnitOfWork, error) {
	unitOfWork := uow.NewUnitOfWork(conn)

	// account repo
	accountRepoFactoryFn := func(dbtx uow.DBTX) uow.Repository {
		return pgrepo.NewAccountRepository(dbtx)
	}
	if regErr := unitOfWork.Register(uow.RepositoryName(repoargs.AccountRepoName), accountRepoFactoryFn); regErr != nil {
		return nil, fmt.Errorf("init UOW: %s", regErr.Error())
	}

	// order repo
	orderRepoFactoryFn := func(dbtx uow.DBTX) uow.Repository {
		return pgrepo.NewOrderRepository(dbtx)
	}
	if regErr := unitOfWork.Register(uow.RepositoryName(repoargs.OrderRepoName), orderRepoFactoryFn); regErr != nil {
		return nil, fmt.Errorf("init UOW: %s", regErr.Error())
	}

	// transaction repo
	transactionRepoFactoryFn := func(dbtx uow.DBTX) uow.Repository {
		return pgrepo.NewTransactionRepository(dbtx)
	}
	if regErr := unitOfWork.Register(
		uow.RepositoryName(repoargs.TransactionRepoName),
		transactionRepoFactoryFn,
	); regErr != nil {
		return nil, fmt.Errorf("init UOW: %s", regErr.Error())
	}

	return unitOfWork, nil
}
