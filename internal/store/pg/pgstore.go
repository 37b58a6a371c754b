package pg

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"invenflow.org/internal/inventory"
)

type Store struct {
	db *sql.DB
}

var _ inventory.Service = (*Store)(nil)

func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	// Tuned pool defaults; adjust under load tests
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

// NewFromDB wraps an existing handle. Used by tests with sqlmock.
func NewFromDB(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *Store) CreateSupplier(ctx context.Context, name, contact string) (*inventory.Supplier, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, inventory.ErrInvalidInput
	}
	sup := inventory.Supplier{Name: name, Contact: strings.TrimSpace(contact)}
	err := s.db.QueryRowContext(ctx, `
		insert into suppliers(name, contact_info)
		values ($1, nullif($2,''))
		returning supplier_id, created_at
	`, sup.Name, sup.Contact).Scan(&sup.ID, &sup.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &sup, nil
}

func (s *Store) ListSuppliers(ctx context.Context, page inventory.ListPage) ([]inventory.Supplier, error) {
	page = page.Normalize()
	rows, err := s.db.QueryContext(ctx, `
		select supplier_id, name, coalesce(contact_info,''), created_at
		from suppliers
		order by supplier_id
		limit $1 offset $2
	`, page.Limit, page.Offset())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []inventory.Supplier{}
	for rows.Next() {
		var sup inventory.Supplier
		if err := rows.Scan(&sup.ID, &sup.Name, &sup.Contact, &sup.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, sup)
	}
	return out, rows.Err()
}

func (s *Store) GetSupplier(ctx context.Context, id int64) (*inventory.Supplier, error) {
	var sup inventory.Supplier
	err := s.db.QueryRowContext(ctx, `
		select supplier_id, name, coalesce(contact_info,''), created_at
		from suppliers where supplier_id=$1
	`, id).Scan(&sup.ID, &sup.Name, &sup.Contact, &sup.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, inventory.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sup, nil
}

func (s *Store) UpdateSupplier(ctx context.Context, id int64, name, contact string) (*inventory.Supplier, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, inventory.ErrInvalidInput
	}
	var sup inventory.Supplier
	err := s.db.QueryRowContext(ctx, `
		update suppliers set name=$2, contact_info=nullif($3,'')
		where supplier_id=$1
		returning supplier_id, name, coalesce(contact_info,''), created_at
	`, id, name, strings.TrimSpace(contact)).Scan(&sup.ID, &sup.Name, &sup.Contact, &sup.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, inventory.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sup, nil
}

func (s *Store) DeleteSupplier(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `delete from suppliers where supplier_id=$1`, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (s *Store) CreateCategory(ctx context.Context, name string) (*inventory.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, inventory.ErrInvalidInput
	}
	cat := inventory.Category{Name: name}
	err := s.db.QueryRowContext(ctx, `
		insert into categories(name) values ($1)
		returning category_id, created_at
	`, cat.Name).Scan(&cat.ID, &cat.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &cat, nil
}

func (s *Store) ListCategories(ctx context.Context, page inventory.ListPage) ([]inventory.Category, error) {
	page = page.Normalize()
	rows, err := s.db.QueryContext(ctx, `
		select category_id, name, created_at
		from categories
		order by category_id
		limit $1 offset $2
	`, page.Limit, page.Offset())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []inventory.Category{}
	for rows.Next() {
		var cat inventory.Category
		if err := rows.Scan(&cat.ID, &cat.Name, &cat.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, cat)
	}
	return out, rows.Err()
}

func (s *Store) GetCategory(ctx context.Context, id int64) (*inventory.Category, error) {
	var cat inventory.Category
	err := s.db.QueryRowContext(ctx, `
		select category_id, name, created_at from categories where category_id=$1
	`, id).Scan(&cat.ID, &cat.Name, &cat.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, inventory.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &cat, nil
}

func (s *Store) UpdateCategory(ctx context.Context, id int64, name string) (*inventory.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, inventory.ErrInvalidInput
	}
	var cat inventory.Category
	err := s.db.QueryRowContext(ctx, `
		update categories set name=$2 where category_id=$1
		returning category_id, name, created_at
	`, id, name).Scan(&cat.ID, &cat.Name, &cat.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, inventory.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &cat, nil
}

func (s *Store) DeleteCategory(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `delete from categories where category_id=$1`, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

const productColumns = `
	p.product_id, p.name, coalesce(p.description,''), p.price, p.stock_quantity,
	p.supplier_id, p.category_id, s.name, c.name, p.created_at, p.updated_at`

const productJoins = `
	from products p
	join suppliers s on s.supplier_id = p.supplier_id
	join categories c on c.category_id = p.category_id`

func scanProduct(row interface{ Scan(...any) error }) (*inventory.Product, error) {
	var p inventory.Product
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.StockQuantity,
		&p.SupplierID, &p.CategoryID, &p.SupplierName, &p.CategoryName,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) CreateProduct(ctx context.Context, p inventory.Product) (*inventory.Product, error) {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" || p.Price < 0 || p.StockQuantity < 0 {
		return nil, inventory.ErrInvalidInput
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var dummy int
	if err := tx.QueryRowContext(ctx, `select 1 from suppliers where supplier_id=$1`, p.SupplierID).Scan(&dummy); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, inventory.ErrSupplierNotFound
		}
		return nil, err
	}
	if err := tx.QueryRowContext(ctx, `select 1 from categories where category_id=$1`, p.CategoryID).Scan(&dummy); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, inventory.ErrCategoryNotFound
		}
		return nil, err
	}
	if err := tx.QueryRowContext(ctx, `select 1 from products where lower(name)=lower($1)`, p.Name).Scan(&dummy); err == nil {
		return nil, inventory.ErrDuplicateProduct
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	err = tx.QueryRowContext(ctx, `
		insert into products(name, description, price, stock_quantity, supplier_id, category_id)
		values ($1, nullif($2,''), $3, $4, $5, $6)
		returning product_id, created_at, updated_at
	`, p.Name, p.Description, p.Price, p.StockQuantity, p.SupplierID, p.CategoryID).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) ListProducts(ctx context.Context, page inventory.ListPage) ([]inventory.Product, error) {
	page = page.Normalize()
	rows, err := s.db.QueryContext(ctx, `select`+productColumns+productJoins+`
		order by p.product_id
		limit $1 offset $2
	`, page.Limit, page.Offset())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []inventory.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (s *Store) GetProduct(ctx context.Context, id int64) (*inventory.Product, error) {
	p, err := scanProduct(s.db.QueryRowContext(ctx,
		`select`+productColumns+productJoins+` where p.product_id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, inventory.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Store) UpdateProduct(ctx context.Context, id int64, patch inventory.ProductPatch) (*inventory.Product, error) {
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return nil, inventory.ErrInvalidInput
	}
	if patch.Price != nil && *patch.Price < 0 {
		return nil, inventory.ErrInvalidInput
	}
	if patch.StockQuantity != nil && *patch.StockQuantity < 0 {
		return nil, inventory.ErrInvalidInput
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var dummy int
	if patch.SupplierID != nil {
		if err := tx.QueryRowContext(ctx, `select 1 from suppliers where supplier_id=$1`, *patch.SupplierID).Scan(&dummy); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, inventory.ErrSupplierNotFound
			}
			return nil, err
		}
	}
	if patch.CategoryID != nil {
		if err := tx.QueryRowContext(ctx, `select 1 from categories where category_id=$1`, *patch.CategoryID).Scan(&dummy); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, inventory.ErrCategoryNotFound
			}
			return nil, err
		}
	}

	res, err := tx.ExecContext(ctx, `
		update products set
			name = coalesce($2, name),
			description = coalesce($3, description),
			price = coalesce($4, price),
			stock_quantity = coalesce($5, stock_quantity),
			supplier_id = coalesce($6, supplier_id),
			category_id = coalesce($7, category_id),
			updated_at = now()
		where product_id = $1
	`, id, patch.Name, patch.Description, patch.Price, patch.StockQuantity, patch.SupplierID, patch.CategoryID)
	if err != nil {
		return nil, err
	}
	if err := requireAffected(res); err != nil {
		return nil, err
	}

	p, err := scanProduct(tx.QueryRowContext(ctx,
		`select`+productColumns+productJoins+` where p.product_id=$1`, id))
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Store) DeleteProduct(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `delete from products where product_id=$1`, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (s *Store) LowStockProducts(ctx context.Context, threshold int) ([]inventory.Product, error) {
	if threshold < 0 {
		return nil, inventory.ErrInvalidInput
	}
	rows, err := s.db.QueryContext(ctx, `select`+productColumns+productJoins+`
		where p.stock_quantity <= $1
		order by p.stock_quantity, p.product_id
	`, threshold)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []inventory.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// CreateSale snapshots each line's unit price and decrements stock inside
// one transaction. A conditional update guards the decrement so concurrent
// sales cannot drive stock negative.
func (s *Store) CreateSale(ctx context.Context, in inventory.SaleInput) (*inventory.Sale, error) {
	if len(in.Items) == 0 {
		return nil, inventory.ErrInvalidInput
	}
	for _, it := range in.Items {
		if it.Quantity <= 0 {
			return nil, inventory.ErrInvalidInput
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	sale := inventory.Sale{CreatedBy: in.CreatedBy}
	for _, it := range in.Items {
		var name string
		var price float64
		err := tx.QueryRowContext(ctx, `
			select name, price from products where product_id=$1 for update
		`, it.ProductID).Scan(&name, &price)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, inventory.ErrNotFound
		}
		if err != nil {
			return nil, err
		}

		res, err := tx.ExecContext(ctx, `
			update products set stock_quantity = stock_quantity - $2, updated_at = now()
			where product_id = $1 and stock_quantity >= $2
		`, it.ProductID, it.Quantity)
		if err != nil {
			return nil, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, inventory.ErrInsufficientStock
		}

		sale.Items = append(sale.Items, inventory.SaleItem{
			ProductID:   it.ProductID,
			ProductName: name,
			Quantity:    it.Quantity,
			UnitPrice:   price,
		})
		sale.Total += price * float64(it.Quantity)
	}

	err = tx.QueryRowContext(ctx, `
		insert into sales(total_amount, created_by)
		values ($1, nullif($2,''))
		returning sale_id, sale_date
	`, sale.Total, in.CreatedBy).Scan(&sale.ID, &sale.SoldAt)
	if err != nil {
		return nil, err
	}
	for _, it := range sale.Items {
		if _, err := tx.ExecContext(ctx, `
			insert into sale_items(sale_id, product_id, quantity, unit_price)
			values ($1,$2,$3,$4)
		`, sale.ID, it.ProductID, it.Quantity, it.UnitPrice); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &sale, nil
}

func (s *Store) ListSales(ctx context.Context, page inventory.ListPage) ([]inventory.Sale, error) {
	page = page.Normalize()
	rows, err := s.db.QueryContext(ctx, `
		select sale_id, total_amount, sale_date, coalesce(created_by,'')
		from sales
		order by sale_id desc
		limit $1 offset $2
	`, page.Limit, page.Offset())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []inventory.Sale{}
	index := map[int64]int{}
	for rows.Next() {
		var sale inventory.Sale
		if err := rows.Scan(&sale.ID, &sale.Total, &sale.SoldAt, &sale.CreatedBy); err != nil {
			return nil, err
		}
		index[sale.ID] = len(out)
		out = append(out, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}

	itemRows, err := s.db.QueryContext(ctx, `
		select si.sale_id, si.product_id, coalesce(p.name,''), si.quantity, si.unit_price
		from sale_items si
		left join products p on p.product_id = si.product_id
		where si.sale_id in (
			select sale_id from sales order by sale_id desc limit $1 offset $2
		)
		order by si.sale_id, si.product_id
	`, page.Limit, page.Offset())
	if err != nil {
		return nil, err
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var saleID int64
		var it inventory.SaleItem
		if err := itemRows.Scan(&saleID, &it.ProductID, &it.ProductName, &it.Quantity, &it.UnitPrice); err != nil {
			return nil, err
		}
		i := index[saleID]
		out[i].Items = append(out[i].Items, it)
	}
	return out, itemRows.Err()
}

func (s *Store) GetSale(ctx context.Context, id int64) (*inventory.Sale, error) {
	var sale inventory.Sale
	err := s.db.QueryRowContext(ctx, `
		select sale_id, total_amount, sale_date, coalesce(created_by,'')
		from sales where sale_id=$1
	`, id).Scan(&sale.ID, &sale.Total, &sale.SoldAt, &sale.CreatedBy)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, inventory.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		select si.product_id, coalesce(p.name,''), si.quantity, si.unit_price
		from sale_items si
		left join products p on p.product_id = si.product_id
		where si.sale_id = $1
		order by si.product_id
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var it inventory.SaleItem
		if err := rows.Scan(&it.ProductID, &it.ProductName, &it.Quantity, &it.UnitPrice); err != nil {
			return nil, err
		}
		sale.Items = append(sale.Items, it)
	}
	return &sale, rows.Err()
}

func (s *Store) SalesByProduct(ctx context.Context, from, to time.Time) ([]inventory.ProductSales, error) {
	rows, err := s.db.QueryContext(ctx, `
		select si.product_id, coalesce(p.name,''),
		       sum(si.quantity)::int,
		       sum(si.quantity * si.unit_price)::float8
		from sale_items si
		join sales s on s.sale_id = si.sale_id
		left join products p on p.product_id = si.product_id
		where ($1::timestamptz is null or s.sale_date >= $1)
		  and ($2::timestamptz is null or s.sale_date <= $2)
		group by si.product_id, p.name
		order by 4 desc
	`, nullTime(from), nullTime(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []inventory.ProductSales{}
	for rows.Next() {
		var ps inventory.ProductSales
		if err := rows.Scan(&ps.ProductID, &ps.ProductName, &ps.UnitsSold, &ps.Revenue); err != nil {
			return nil, err
		}
		out = append(out, ps)
	}
	return out, rows.Err()
}

func (s *Store) SalesByDate(ctx context.Context, from, to time.Time) ([]inventory.DailySales, error) {
	rows, err := s.db.QueryContext(ctx, `
		select to_char(s.sale_date at time zone 'UTC', 'YYYY-MM-DD'),
		       count(*)::int,
		       sum(s.total_amount)::float8
		from sales s
		where ($1::timestamptz is null or s.sale_date >= $1)
		  and ($2::timestamptz is null or s.sale_date <= $2)
		group by 1
		order by 1
	`, nullTime(from), nullTime(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []inventory.DailySales{}
	for rows.Next() {
		var ds inventory.DailySales
		if err := rows.Scan(&ds.Date, &ds.SaleCount, &ds.Revenue); err != nil {
			return nil, err
		}
		out = append(out, ds)
	}
	return out, rows.Err()
}

// --- helpers ---

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return inventory.ErrNotFound
	}
	return nil
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
