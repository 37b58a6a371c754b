package inventory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// InMemory is a map-backed Service. It backs tests and database-less local
// runs; the Postgres store is the production implementation.
type InMemory struct {
	mu         sync.Mutex
	now        func() time.Time
	suppliers  map[int64]*Supplier
	categories map[int64]*Category
	products   map[int64]*Product
	sales      map[int64]*Sale
	nextID     int64
}

// NewInMemory builds an empty in-memory inventory.
func NewInMemory() *InMemory {
	return &InMemory{
		now:        time.Now,
		suppliers:  make(map[int64]*Supplier),
		categories: make(map[int64]*Category),
		products:   make(map[int64]*Product),
		sales:      make(map[int64]*Sale),
	}
}

// WithClock overrides the time source. Test helper.
func (m *InMemory) WithClock(fn func() time.Time) *InMemory {
	m.now = fn
	return m
}

func (m *InMemory) nextSeq() int64 {
	m.nextID++
	return m.nextID
}

func (m *InMemory) CreateSupplier(_ context.Context, name, contact string) (*Supplier, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidInput
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s := &Supplier{
		ID:        m.nextSeq(),
		Name:      name,
		Contact:   strings.TrimSpace(contact),
		CreatedAt: m.now().UTC(),
	}
	m.suppliers[s.ID] = s
	out := *s
	return &out, nil
}

func (m *InMemory) ListSuppliers(_ context.Context, page ListPage) ([]Supplier, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := make([]Supplier, 0, len(m.suppliers))
	for _, s := range m.suppliers {
		all = append(all, *s)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return paginate(all, page), nil
}

func (m *InMemory) GetSupplier(_ context.Context, id int64) (*Supplier, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.suppliers[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *s
	return &out, nil
}

func (m *InMemory) UpdateSupplier(_ context.Context, id int64, name, contact string) (*Supplier, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidInput
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.suppliers[id]
	if !ok {
		return nil, ErrNotFound
	}
	s.Name = name
	s.Contact = strings.TrimSpace(contact)
	out := *s
	return &out, nil
}

func (m *InMemory) DeleteSupplier(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.suppliers[id]; !ok {
		return ErrNotFound
	}
	delete(m.suppliers, id)
	return nil
}

func (m *InMemory) CreateCategory(_ context.Context, name string) (*Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidInput
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c := &Category{ID: m.nextSeq(), Name: name, CreatedAt: m.now().UTC()}
	m.categories[c.ID] = c
	out := *c
	return &out, nil
}

func (m *InMemory) ListCategories(_ context.Context, page ListPage) ([]Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := make([]Category, 0, len(m.categories))
	for _, c := range m.categories {
		all = append(all, *c)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return paginate(all, page), nil
}

func (m *InMemory) GetCategory(_ context.Context, id int64) (*Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.categories[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *c
	return &out, nil
}

func (m *InMemory) UpdateCategory(_ context.Context, id int64, name string) (*Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidInput
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.categories[id]
	if !ok {
		return nil, ErrNotFound
	}
	c.Name = name
	out := *c
	return &out, nil
}

func (m *InMemory) DeleteCategory(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.categories[id]; !ok {
		return ErrNotFound
	}
	delete(m.categories, id)
	return nil
}

func (m *InMemory) CreateProduct(_ context.Context, p Product) (*Product, error) {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" || p.Price < 0 || p.StockQuantity < 0 {
		return nil, ErrInvalidInput
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	sup, ok := m.suppliers[p.SupplierID]
	if !ok {
		return nil, ErrSupplierNotFound
	}
	cat, ok := m.categories[p.CategoryID]
	if !ok {
		return nil, ErrCategoryNotFound
	}
	for _, existing := range m.products {
		if strings.EqualFold(existing.Name, p.Name) {
			return nil, ErrDuplicateProduct
		}
	}
	now := m.now().UTC()
	p.ID = m.nextSeq()
	p.SupplierName = sup.Name
	p.CategoryName = cat.Name
	p.CreatedAt = now
	p.UpdatedAt = now
	stored := p
	m.products[p.ID] = &stored
	return &p, nil
}

func (m *InMemory) ListProducts(_ context.Context, page ListPage) ([]Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := make([]Product, 0, len(m.products))
	for _, p := range m.products {
		all = append(all, *p)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return paginate(all, page), nil
}

func (m *InMemory) GetProduct(_ context.Context, id int64) (*Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *p
	return &out, nil
}

func (m *InMemory) UpdateProduct(_ context.Context, id int64, patch ProductPatch) (*Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, ErrNotFound
	}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, ErrInvalidInput
		}
		p.Name = name
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.Price != nil {
		if *patch.Price < 0 {
			return nil, ErrInvalidInput
		}
		p.Price = *patch.Price
	}
	if patch.StockQuantity != nil {
		if *patch.StockQuantity < 0 {
			return nil, ErrInvalidInput
		}
		p.StockQuantity = *patch.StockQuantity
	}
	if patch.SupplierID != nil {
		sup, ok := m.suppliers[*patch.SupplierID]
		if !ok {
			return nil, ErrSupplierNotFound
		}
		p.SupplierID = sup.ID
		p.SupplierName = sup.Name
	}
	if patch.CategoryID != nil {
		cat, ok := m.categories[*patch.CategoryID]
		if !ok {
			return nil, ErrCategoryNotFound
		}
		p.CategoryID = cat.ID
		p.CategoryName = cat.Name
	}
	p.UpdatedAt = m.now().UTC()
	out := *p
	return &out, nil
}

func (m *InMemory) DeleteProduct(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[id]; !ok {
		return ErrNotFound
	}
	delete(m.products, id)
	return nil
}

func (m *InMemory) LowStockProducts(_ context.Context, threshold int) ([]Product, error) {
	if threshold < 0 {
		return nil, ErrInvalidInput
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var low []Product
	for _, p := range m.products {
		if p.StockQuantity <= threshold {
			low = append(low, *p)
		}
	}
	sort.Slice(low, func(i, j int) bool { return low[i].StockQuantity < low[j].StockQuantity })
	return low, nil
}

// CreateSale snapshots the current unit price for each line and decrements
// stock. The whole sale fails if any line cannot be covered.
func (m *InMemory) CreateSale(_ context.Context, in SaleInput) (*Sale, error) {
	if len(in.Items) == 0 {
		return nil, ErrInvalidInput
	}
	for _, it := range in.Items {
		if it.Quantity <= 0 {
			return nil, ErrInvalidInput
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Validate every line before mutating anything.
	for _, it := range in.Items {
		p, ok := m.products[it.ProductID]
		if !ok {
			return nil, ErrNotFound
		}
		if p.StockQuantity < it.Quantity {
			return nil, ErrInsufficientStock
		}
	}

	now := m.now().UTC()
	sale := &Sale{
		ID:        m.nextSeq(),
		SoldAt:    now,
		CreatedBy: in.CreatedBy,
	}
	for _, it := range in.Items {
		p := m.products[it.ProductID]
		p.StockQuantity -= it.Quantity
		p.UpdatedAt = now
		sale.Items = append(sale.Items, SaleItem{
			ProductID:   p.ID,
			ProductName: p.Name,
			Quantity:    it.Quantity,
			UnitPrice:   p.Price,
		})
		sale.Total += p.Price * float64(it.Quantity)
	}
	stored := *sale
	stored.Items = append([]SaleItem(nil), sale.Items...)
	m.sales[sale.ID] = &stored
	return sale, nil
}

func (m *InMemory) ListSales(_ context.Context, page ListPage) ([]Sale, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := make([]Sale, 0, len(m.sales))
	for _, s := range m.sales {
		cp := *s
		cp.Items = append([]SaleItem(nil), s.Items...)
		all = append(all, cp)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	return paginate(all, page), nil
}

func (m *InMemory) GetSale(_ context.Context, id int64) (*Sale, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sales[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s
	cp.Items = append([]SaleItem(nil), s.Items...)
	return &cp, nil
}

func (m *InMemory) SalesByProduct(_ context.Context, from, to time.Time) ([]ProductSales, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	agg := make(map[int64]*ProductSales)
	for _, s := range m.sales {
		if !inRange(s.SoldAt, from, to) {
			continue
		}
		for _, it := range s.Items {
			ps, ok := agg[it.ProductID]
			if !ok {
				ps = &ProductSales{ProductID: it.ProductID, ProductName: it.ProductName}
				agg[it.ProductID] = ps
			}
			ps.UnitsSold += it.Quantity
			ps.Revenue += it.UnitPrice * float64(it.Quantity)
		}
	}
	out := make([]ProductSales, 0, len(agg))
	for _, ps := range agg {
		out = append(out, *ps)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Revenue > out[j].Revenue })
	return out, nil
}

func (m *InMemory) SalesByDate(_ context.Context, from, to time.Time) ([]DailySales, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	agg := make(map[string]*DailySales)
	for _, s := range m.sales {
		if !inRange(s.SoldAt, from, to) {
			continue
		}
		day := s.SoldAt.UTC().Format("2006-01-02")
		ds, ok := agg[day]
		if !ok {
			ds = &DailySales{Date: day}
			agg[day] = ds
		}
		ds.SaleCount++
		ds.Revenue += s.Total
	}
	out := make([]DailySales, 0, len(agg))
	for _, ds := range agg {
		out = append(out, *ds)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

func inRange(t, from, to time.Time) bool {
	if !from.IsZero() && t.Before(from) {
		return false
	}
	if !to.IsZero() && t.After(to) {
		return false
	}
	return true
}

func paginate[T any](all []T, page ListPage) []T {
	page = page.Normalize()
	off := page.Offset()
	if off >= len(all) {
		return []T{}
	}
	end := off + page.Limit
	if end > len(all) {
		end = len(all)
	}
	return all[off:end]
}
