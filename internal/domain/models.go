package domain

import (
	"github.com/shopspring/decimal"

	"time"
)

type Account struct {
	ID           int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Username     string
	Password     string
	BaseCredits  decimal.Decimal
	BonusCredits decimal.Decimal
}

// TotalCredits возвращает полный баланс аккаунта (базовые + бонусные кредиты).
func (a Account) TotalCredits() decimal.Decimal {
	return a.BaseCredits.Add(a.BonusCredits)
}

// Transaction неизменяемая запись журнала баланса. После создания никогда не обновляется
// и не удаляется (аудиторский след).
type Transaction struct {
	ID             int64
	CreatedAt      time.Time
	AccountID      int64
	OrderID        *int64
	Type           TransactionType
	Amount         decimal.Decimal
	BalanceAfter   decimal.Decimal
	IdempotencyKey string
	Description    string
}

type Order struct {
	ID              int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
	CompletedAt     *time.Time
	AccountID       int64
	PackageID       string
	RequestedAmount decimal.Decimal
	CreditedBase    decimal.Decimal
	CreditedBonus   decimal.Decimal
	Status          OrderStatusType
	ProviderOrderID string
}

// CreditedTotal возвращает полную сумму зачисления по заказу.
func (o Order) CreditedTotal() decimal.Decimal {
	return o.CreditedBase.Add(o.CreditedBonus)
}

// Package неизменяемая позиция каталога пакетов кредитов. Для произвольной суммы
// используется пакет с ID PackageCustomID и границами MinAmount/MaxAmount.
type Package struct {
	ID           string
	Name         string
	BaseCredits  decimal.Decimal
	BonusCredits decimal.Decimal
	Price        decimal.Decimal
	MinAmount    decimal.Decimal
	MaxAmount    decimal.Decimal
}

// BonusTier порог бонусной таблицы: сумма >= Threshold дает Percent процентов бонуса.
type BonusTier struct {
	Threshold decimal.Decimal
	Percent   decimal.Decimal
}

// Balance агрегированный баланс аккаунта. Всегда выводится из журнала транзакций,
// никогда не хранится как свободно изменяемое поле.
type Balance struct {
	BaseCredits  decimal.Decimal
	BonusCredits decimal.Decimal
	TotalCredits decimal.Decimal
}
