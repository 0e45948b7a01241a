package repoargs

import (
	"github.com/fsdevblog/groph-credits/internal/domain"
	"github.com/shopspring/decimal"
)

// ApplyTransaction аргументы атомарной записи в журнал. Amount знаковый:
// положительный для зачисления, отрицательный для списания.
type ApplyTransaction struct {
	AccountID      int64
	OrderID        *int64
	Type           domain.TransactionType
	Amount         decimal.Decimal
	IdempotencyKey string
	Description    string
	// AllowNegative разрешает уход баланса в минус. Устанавливается только для
	// административных корректировок и, опционально, для пост-фактум списаний usage.
	AllowNegative bool
}
