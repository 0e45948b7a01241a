package repoargs

import (
	"github.com/shopspring/decimal"
)

type CreateOrder struct {
	AccountID       int64
	PackageID       string
	RequestedAmount decimal.Decimal
	CreditedBase    decimal.Decimal
	CreditedBonus   decimal.Decimal
	ProviderOrderID string
}
