package inventory

import "time"

// Supplier is a goods provider referenced by products.
type Supplier struct {
	ID        int64     `json:"supplier_id"`
	Name      string    `json:"name"`
	Contact   string    `json:"contact_info,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Category groups products for browsing and reporting.
type Category struct {
	ID        int64     `json:"category_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Product is a stocked item for sale.
type Product struct {
	ID            int64     `json:"product_id"`
	Name          string    `json:"name"`
	Description   string    `json:"description,omitempty"`
	Price         float64   `json:"price"`
	StockQuantity int       `json:"stock_quantity"`
	SupplierID    int64     `json:"supplier_id"`
	CategoryID    int64     `json:"category_id"`
	SupplierName  string    `json:"supplier_name,omitempty"`
	CategoryName  string    `json:"category_name,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ProductPatch carries partial updates to a product. Nil fields are left
// untouched.
type ProductPatch struct {
	Name          *string  `json:"name"`
	Description   *string  `json:"description"`
	Price         *float64 `json:"price"`
	StockQuantity *int     `json:"stock_quantity"`
	SupplierID    *int64   `json:"supplier_id"`
	CategoryID    *int64   `json:"category_id"`
}

// SaleItem is one product line within a recorded sale. UnitPrice is the
// price snapshot taken when the sale was made, not the live product price.
type SaleItem struct {
	ProductID   int64   `json:"product_id"`
	ProductName string  `json:"product_name,omitempty"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
}

// Sale is a completed checkout of one or more products.
type Sale struct {
	ID        int64      `json:"sale_id"`
	Total     float64    `json:"total_amount"`
	SoldAt    time.Time  `json:"sale_date"`
	Items     []SaleItem `json:"items"`
	CreatedBy string     `json:"created_by,omitempty"`
}

// SaleInput is the request to record a sale.
type SaleInput struct {
	Items     []SaleItemInput
	CreatedBy string
}

// SaleItemInput is one requested sale line.
type SaleItemInput struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// ProductSales is a per-product revenue aggregate.
type ProductSales struct {
	ProductID   int64   `json:"product_id"`
	ProductName string  `json:"product_name"`
	UnitsSold   int     `json:"units_sold"`
	Revenue     float64 `json:"revenue"`
}

// DailySales is a per-day revenue aggregate.
type DailySales struct {
	Date      string  `json:"date"`
	SaleCount int     `json:"sale_count"`
	Revenue   float64 `json:"revenue"`
}

// ListPage bounds paginated listings.
type ListPage struct {
	Page  int
	Limit int
}

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// Normalize clamps page and limit into their valid ranges.
func (p ListPage) Normalize() ListPage {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = defaultPageLimit
	}
	if p.Limit > maxPageLimit {
		p.Limit = maxPageLimit
	}
	return p
}

// Offset converts the page number into a row offset.
func (p ListPage) Offset() int {
	return (p.Page - 1) * p.Limit
}
