package repository

import "errors"

// Ошибки хранилища транзакций. Сервисный слой сопоставляет их с
// ошибками верификации, наружу они не выходят.
var (
	// ErrNotFound транзакция с таким payment_id не существует
	ErrNotFound = errors.New("transaction not found")

	// ErrDuplicate payment_id или payment_uuid уже заняты другой транзакцией
	ErrDuplicate = errors.New("duplicate transaction")
)
