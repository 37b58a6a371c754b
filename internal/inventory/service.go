package inventory

import (
	"context"
	"time"
)

// Service is the inventory and sales API the transport layer programs
// against. Implementations: the Postgres store for production, InMemory for
// tests and local runs without a database.
type Service interface {
	CreateSupplier(ctx context.Context, name, contact string) (*Supplier, error)
	ListSuppliers(ctx context.Context, page ListPage) ([]Supplier, error)
	GetSupplier(ctx context.Context, id int64) (*Supplier, error)
	UpdateSupplier(ctx context.Context, id int64, name, contact string) (*Supplier, error)
	DeleteSupplier(ctx context.Context, id int64) error

	CreateCategory(ctx context.Context, name string) (*Category, error)
	ListCategories(ctx context.Context, page ListPage) ([]Category, error)
	GetCategory(ctx context.Context, id int64) (*Category, error)
	UpdateCategory(ctx context.Context, id int64, name string) (*Category, error)
	DeleteCategory(ctx context.Context, id int64) error

	CreateProduct(ctx context.Context, p Product) (*Product, error)
	ListProducts(ctx context.Context, page ListPage) ([]Product, error)
	GetProduct(ctx context.Context, id int64) (*Product, error)
	UpdateProduct(ctx context.Context, id int64, patch ProductPatch) (*Product, error)
	DeleteProduct(ctx context.Context, id int64) error
	LowStockProducts(ctx context.Context, threshold int) ([]Product, error)

	CreateSale(ctx context.Context, in SaleInput) (*Sale, error)
	ListSales(ctx context.Context, page ListPage) ([]Sale, error)
	GetSale(ctx context.Context, id int64) (*Sale, error)

	SalesByProduct(ctx context.Context, from, to time.Time) ([]ProductSales, error)
	SalesByDate(ctx context.Context, from, to time.Time) ([]DailySales, error)
}
