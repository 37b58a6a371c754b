package inventory

import "errors"

var (
	ErrNotFound          = errors.New("inventory: not found")
	ErrSupplierNotFound  = errors.New("inventory: supplier not found")
	ErrCategoryNotFound  = errors.New("inventory: category not found")
	ErrDuplicateProduct  = errors.New("inventory: product already exists")
	ErrInsufficientStock = errors.New("inventory: insufficient stock")
	ErrInvalidInput      = errors.New("inventory: invalid input")
)
