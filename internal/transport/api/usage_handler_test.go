package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/fsdevblog/groph-credits/internal/domain"
	"github.com/fsdevblog/groph-credits/internal/logger"
	"github.com/fsdevblog/groph-credits/internal/ratelimit"
	"github.com/fsdevblog/groph-credits/internal/service"
	"github.com/fsdevblog/groph-credits/internal/service/tokens"
	"github.com/fsdevblog/groph-credits/internal/transport/api/mocks"
	"github.com/fsdevblog/groph-credits/internal/transport/api/testutils"
)

type UsageHandlerTestSuite struct {
	suite.Suite
	router           *gin.Engine
	mockUsageService *mocks.MockUsageServicer
	mockAlertService *mocks.MockAlertServicer
	jwtSecret        []byte
}

func TestUsageHandlerSuite(t *testing.T) {
	suite.Run(t, new(UsageHandlerTestSuite))
}

func (s *UsageHandlerTestSuite) SetupTest() {
	mockCtrl := gomock.NewController(s.T())
	defer mockCtrl.Finish()

	s.mockUsageService = mocks.NewMockUsageServicer(mockCtrl)
	s.mockAlertService = mocks.NewMockAlertServicer(mockCtrl)
	s.jwtSecret = []byte("super secret key")

	s.router = s.buildRouter(ratelimit.Limits{PerMinute: 1000})
}

func (s *UsageHandlerTestSuite) buildRouter(limits ratelimit.Limits) *gin.Engine {
	return New(RouterArgs{
		Logger:       logger.New(os.Stdout),
		UsageService: s.mockUsageService,
		AlertService: s.mockAlertService,
		RateLimiter:  ratelimit.NewMemoryLimiter(limits),
		JWTSecretKey: s.jwtSecret,
	})
}

func (s *UsageHandlerTestSuite) accountToken(accountID int64) string {
	token, err := tokens.GenerateAccountJWT(accountID, time.Hour, s.jwtSecret)
	s.Require().NoError(err)
	return token
}

func (s *UsageHandlerTestSuite) postJSON(router *gin.Engine, route string, payload any, jwtToken string) *http.Response {
	body, marshalErr := json.Marshal(payload)
	s.Require().NoError(marshalErr)

	args := testutils.RequestArgs{
		Router: router,
		Method: http.MethodPost,
		URL:    RouteGroup + route,
		Body:   bytes.NewReader(body),
	}
	var reqOpts []func(*testutils.RequestOptions)
	if jwtToken != "" {
		reqOpts = append(reqOpts, testutils.WithBearerToken(jwtToken))
	}
	res, err := testutils.MakeRequest(args, reqOpts...)
	s.Require().NoError(err)
	return res
}

func (s *UsageHandlerTestSuite) TestCheck() {
	var richAccountID int64 = 1
	var poorAccountID int64 = 2

	estimatedCost := decimal.NewFromInt(25)

	s.mockUsageService.EXPECT().
		CanConsume(gomock.Any(), richAccountID, estimatedCost).
		Return(true, nil).Times(1)
	s.mockAlertService.EXPECT().
		Evaluate(gomock.Any(), richAccountID).
		Return(&service.AlertStatus{CanUseServices: true}, nil).Times(1)

	s.mockUsageService.EXPECT().
		CanConsume(gomock.Any(), poorAccountID, estimatedCost).
		Return(false, nil).Times(1)
	s.mockAlertService.EXPECT().
		Evaluate(gomock.Any(), poorAccountID).
		Return(&service.AlertStatus{IsLowBalance: true}, nil).Times(1)

	cases := []struct {
		name           string
		jwtToken       string
		wantStatus     int
		wantAllowed    bool
		wantLowBalance bool
	}{
		{
			name:        "allowed",
			jwtToken:    s.accountToken(richAccountID),
			wantStatus:  http.StatusOK,
			wantAllowed: true,
		}, {
			name:           "exhausted balance",
			jwtToken:       s.accountToken(poorAccountID),
			wantStatus:     http.StatusOK,
			wantLowBalance: true,
		}, {
			name:       "not authorized",
			wantStatus: http.StatusUnauthorized,
		},
	}
	for _, t := range cases {
		s.Run(t.name, func() {
			res := s.postJSON(s.router, UsageCheckRoute, UsageCheckParams{EstimatedCost: estimatedCost}, t.jwtToken)
			defer func() {
				s.Require().NoError(res.Body.Close())
			}()

			s.Equal(t.wantStatus, res.StatusCode)
			if t.wantStatus != http.StatusOK {
				return
			}
			var parsed UsageCheckResponse
			s.Require().NoError(json.NewDecoder(res.Body).Decode(&parsed))
			s.Equal(t.wantAllowed, parsed.Allowed)
			s.Equal(t.wantLowBalance, parsed.IsLowBalance)
		})
	}
}

func (s *UsageHandlerTestSuite) TestCheckRateLimited() {
	var accountID int64 = 1
	jwtToken := s.accountToken(accountID)

	// Тесный лимит: второй запрос за минуту обязан получить отказ до любых
	// проверок баланса.
	router := s.buildRouter(ratelimit.Limits{PerMinute: 1})

	s.mockUsageService.EXPECT().
		CanConsume(gomock.Any(), accountID, gomock.Any()).
		Return(true, nil).Times(1)
	s.mockAlertService.EXPECT().
		Evaluate(gomock.Any(), accountID).
		Return(&service.AlertStatus{CanUseServices: true}, nil).Times(1)

	first := s.postJSON(router, UsageCheckRoute, UsageCheckParams{EstimatedCost: decimal.NewFromInt(1)}, jwtToken)
	s.Require().NoError(first.Body.Close())
	s.Equal(http.StatusOK, first.StatusCode)

	second := s.postJSON(router, UsageCheckRoute, UsageCheckParams{EstimatedCost: decimal.NewFromInt(1)}, jwtToken)
	defer func() {
		s.Require().NoError(second.Body.Close())
	}()

	s.Equal(http.StatusTooManyRequests, second.StatusCode)
	s.NotEmpty(second.Header.Get("Retry-After"))
}

func (s *UsageHandlerTestSuite) TestCharge() {
	var accountID int64 = 1
	jwtToken := s.accountToken(accountID)

	units := decimal.NewFromInt(7)
	chargedTransaction := &domain.Transaction{
		ID:           42,
		AccountID:    accountID,
		Type:         domain.TransactionUsage,
		Amount:       decimal.NewFromInt(-14),
		BalanceAfter: decimal.NewFromInt(86),
	}

	s.mockUsageService.EXPECT().
		ChargeUsage(gomock.Any(), accountID, units, "req-ok").
		Return(chargedTransaction, nil).Times(1)
	s.mockUsageService.EXPECT().
		ChargeUsage(gomock.Any(), accountID, units, "req-poor").
		Return(nil, domain.ErrNotEnoughBalance).Times(1)
	s.mockUsageService.EXPECT().
		ChargeUsage(gomock.Any(), accountID, units, "req-conflict").
		Return(nil, domain.ErrWriteConflict).Times(1)

	cases := []struct {
		name       string
		params     UsageChargeParams
		jwtToken   string
		wantStatus int
	}{
		{
			name:       "all ok",
			params:     UsageChargeParams{RequestID: "req-ok", Units: units},
			jwtToken:   jwtToken,
			wantStatus: http.StatusOK,
		}, {
			name:       "insufficient balance",
			params:     UsageChargeParams{RequestID: "req-poor", Units: units},
			jwtToken:   jwtToken,
			wantStatus: http.StatusPaymentRequired,
		}, {
			name:       "transient write conflict",
			params:     UsageChargeParams{RequestID: "req-conflict", Units: units},
			jwtToken:   jwtToken,
			wantStatus: http.StatusServiceUnavailable,
		}, {
			name:       "negative units",
			params:     UsageChargeParams{RequestID: "req-neg", Units: decimal.NewFromInt(-1)},
			jwtToken:   jwtToken,
			wantStatus: http.StatusUnprocessableEntity,
		}, {
			name:       "missing request id",
			params:     UsageChargeParams{Units: units},
			jwtToken:   jwtToken,
			wantStatus: http.StatusBadRequest,
		}, {
			name:       "not authorized",
			params:     UsageChargeParams{RequestID: "req-ok", Units: units},
			wantStatus: http.StatusUnauthorized,
		},
	}
	for _, t := range cases {
		s.Run(t.name, func() {
			res := s.postJSON(s.router, UsageChargeRoute, t.params, t.jwtToken)
			defer func() {
				s.Require().NoError(res.Body.Close())
			}()

			s.Equal(t.wantStatus, res.StatusCode)
			if t.wantStatus != http.StatusOK {
				return
			}
			var parsed UsageChargeResponse
			s.Require().NoError(json.NewDecoder(res.Body).Decode(&parsed))
			s.Equal(int64(42), parsed.TransactionID)
			s.Equal("-14", parsed.Amount)
			s.Equal("86", parsed.BalanceAfter)
		})
	}
}
