package domain

import (
	"errors"
	"fmt"
)

var (
	ErrRecordNotFound    = errors.New("record not found")
	ErrPasswordMissMatch = errors.New("password mismatch")
	ErrDuplicateKey      = errors.New("duplicate key")
	ErrUnknown           = errors.New("unknown error")

	ErrNotEnoughBalance   = errors.New("not enough balance")
	ErrWriteConflict      = errors.New("write conflict")
	ErrRateLimitExceeded  = errors.New("rate limit exceeded")
	ErrInvalidSignature   = errors.New("invalid signature")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	ErrOrderFinalized     = errors.New("order already finalized")
)

// DuplicateTransactionError возвращается при повторе идемпотентного ключа. Несет в себе
// ранее созданную транзакцию: повтор обязан разрешиться в тот же видимый результат,
// что и оригинальный вызов.
type DuplicateTransactionError struct {
	Transaction *Transaction
}

func NewDuplicateTransactionError(t *Transaction) error {
	return &DuplicateTransactionError{Transaction: t}
}

func (e *DuplicateTransactionError) Error() string {
	return fmt.Sprintf(
		"transaction with idempotency key %s already exists for account %d",
		e.Transaction.IdempotencyKey,
		e.Transaction.AccountID,
	)
}
