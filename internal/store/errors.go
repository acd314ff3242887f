package store

import "errors"

var (
	ErrNotFound      = errors.New("record not found")
	ErrQuotaExceeded = errors.New("prediction quota exceeded")
)
