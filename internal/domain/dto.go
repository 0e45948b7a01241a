package domain

type OrderStatusType string

const (
	OrderStatusPending   OrderStatusType = "PENDING"
	OrderStatusCompleted OrderStatusType = "COMPLETED"
	OrderStatusFailed    OrderStatusType = "FAILED"
)

// IsTerminal сообщает, является ли статус заказа конечным. Переходы из конечного
// статуса не допускаются.
func (s OrderStatusType) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusFailed
}

type TransactionType string

const (
	TransactionPurchase   TransactionType = "purchase"
	TransactionUsage      TransactionType = "usage"
	TransactionBonus      TransactionType = "bonus"
	TransactionRefund     TransactionType = "refund"
	TransactionAdjustment TransactionType = "adjustment"
)

// PackageCustomID идентификатор "пакета" произвольной суммы.
const PackageCustomID = "custom"
