package payment

import "errors"

// Module errors.
var (
	ErrTransactionNotFound = errors.New("payment transaction not found")
)
