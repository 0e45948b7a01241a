package alerts

import (
	"errors"
)

var (
	ErrNoAccounts = errors.New("no active accounts")
)
