package service

import (
	"context"
	"fmt"
	"time"

	"github.com/fsdevblog/groph-credits/internal/domain"
	"github.com/fsdevblog/groph-credits/internal/repository/repoargs"
	"github.com/fsdevblog/groph-credits/internal/service/psswd"
	"github.com/fsdevblog/groph-credits/internal/service/tokens"
	"github.com/fsdevblog/groph-credits/pkg/uow"
)

const JWTTokenExpire = 1 * time.Hour

type AccountService struct {
	uow            uow.UOW
	accountRepo    AccountRepository
	hasher         PasswordHasher
	jwtTokenSecret []byte
}

func NewAccountService(u uow.UOW, jwtTokenSecret []byte) (*AccountService, error) {
	accountRepo, accountRepoErr :=
		uow.GetRepositoryAs[AccountRepository](u, uow.RepositoryName(repoargs.AccountRepoName))
	if accountRepoErr != nil {
		return nil, accountRepoErr
	}
	return &AccountService{
		uow:            u,
		accountRepo:    accountRepo,
		hasher:         psswd.PasswordHash(""),
		jwtTokenSecret: jwtTokenSecret,
	}, nil
}

type RegisterAccountArgs struct {
	Username string
	Password string
}

// Register создает аккаунт в базе данных. После успешного создания генерирует jwt token.
// Возвращает 3 значения: созданный аккаунт, токен и ошибку.
func (s *AccountService) Register(ctx context.Context, args RegisterAccountArgs) (*domain.Account, string, error) {
	password, hashErr := s.hasher.HashPassword(args.Password)
	if hashErr != nil {
		return nil, "", fmt.Errorf("registering account: %s", hashErr.Error())
	}
	var account *domain.Account
	var token string
	txErr := s.uow.Do(ctx, func(c context.Context, tx uow.TX) error {
		accountRepo, accountRepoErr := uow.GetAs[AccountRepository](tx, uow.RepositoryName(repoargs.AccountRepoName))
		if accountRepoErr != nil {
			return accountRepoErr //nolint:wrapcheck
		}
		var accErr, tokenErr error
		account, accErr = accountRepo.CreateAccount(c, repoargs.CreateAccount{
			Username: args.Username,
			Password: password,
		})
		if accErr != nil {
			return accErr //nolint:wrapcheck
		}

		token, tokenErr = tokens.GenerateAccountJWT(account.ID, JWTTokenExpire, s.jwtTokenSecret)
		if tokenErr != nil {
			return tokenErr //nolint:wrapcheck
		}
		return nil
	})

	if txErr != nil {
		return nil, "", fmt.Errorf("registering account: %w", txErr)
	}
	return account, token, nil
}

type LoginAccountArgs struct {
	Username string
	Password string
}

// Login аутентифицирует аккаунт по паре логин/пароль. При несовпадении пароля
// возвращает domain.ErrPasswordMissMatch.
func (s *AccountService) Login(ctx context.Context, args LoginAccountArgs) (*domain.Account, string, error) {
	account, findErr := s.accountRepo.FindByUsername(ctx, args.Username)
	if findErr != nil {
		return nil, "", fmt.Errorf("logging in account: %w", findErr)
	}

	if !s.hasher.ComparePassword(args.Password, account.Password) {
		return nil, "", domain.ErrPasswordMissMatch
	}

	token, tokenErr := tokens.GenerateAccountJWT(account.ID, JWTTokenExpire, s.jwtTokenSecret)
	if tokenErr != nil {
		return nil, "", fmt.Errorf("logging in account: %s", tokenErr.Error())
	}
	return account, token, nil
}
