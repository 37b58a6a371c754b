package inventory

import (
	"context"
	"errors"
	"testing"
	"time"
)

func seed(t *testing.T) (*InMemory, *Product) {
	t.Helper()
	m := NewInMemory()
	ctx := context.Background()

	sup, err := m.CreateSupplier(ctx, "Acme", "orders@acme.example")
	if err != nil {
		t.Fatalf("supplier: %v", err)
	}
	cat, err := m.CreateCategory(ctx, "Beverages")
	if err != nil {
		t.Fatalf("category: %v", err)
	}
	p, err := m.CreateProduct(ctx, Product{
		Name:          "Sparkling Water",
		Price:         8.99,
		StockQuantity: 10,
		SupplierID:    sup.ID,
		CategoryID:    cat.ID,
	})
	if err != nil {
		t.Fatalf("product: %v", err)
	}
	return m, p
}

func TestCreateProductResolvesNames(t *testing.T) {
	_, p := seed(t)
	if p.SupplierName != "Acme" || p.CategoryName != "Beverages" {
		t.Fatalf("names not resolved: %+v", p)
	}
}

func TestCreateProductRejectsMissingReferences(t *testing.T) {
	m := NewInMemory()
	ctx := context.Background()
	_, err := m.CreateProduct(ctx, Product{Name: "Orphan", Price: 1, SupplierID: 5, CategoryID: 5})
	if !errors.Is(err, ErrSupplierNotFound) {
		t.Fatalf("want ErrSupplierNotFound, got %v", err)
	}
}

func TestCreateProductRejectsDuplicateName(t *testing.T) {
	m, p := seed(t)
	_, err := m.CreateProduct(context.Background(), Product{
		Name:       "SPARKLING WATER",
		Price:      1,
		SupplierID: p.SupplierID,
		CategoryID: p.CategoryID,
	})
	if !errors.Is(err, ErrDuplicateProduct) {
		t.Fatalf("want ErrDuplicateProduct, got %v", err)
	}
}

func TestSaleSnapshotsPriceAtSaleTime(t *testing.T) {
	m, p := seed(t)
	ctx := context.Background()

	sale, err := m.CreateSale(ctx, SaleInput{Items: []SaleItemInput{{ProductID: p.ID, Quantity: 2}}})
	if err != nil {
		t.Fatalf("sale: %v", err)
	}
	if sale.Items[0].UnitPrice != 8.99 {
		t.Fatalf("unit price not snapshotted: %v", sale.Items[0].UnitPrice)
	}

	newPrice := 12.50
	if _, err := m.UpdateProduct(ctx, p.ID, ProductPatch{Price: &newPrice}); err != nil {
		t.Fatalf("update: %v", err)
	}

	// The recorded sale keeps the old price.
	got, err := m.GetSale(ctx, sale.ID)
	if err != nil {
		t.Fatalf("get sale: %v", err)
	}
	if got.Items[0].UnitPrice != 8.99 {
		t.Fatalf("snapshot mutated: %v", got.Items[0].UnitPrice)
	}
}

func TestSaleFailsAtomically(t *testing.T) {
	m, p := seed(t)
	ctx := context.Background()

	// Second line exceeds stock; first line must not be applied.
	sup, _ := m.CreateSupplier(ctx, "Second", "")
	cat, _ := m.CreateCategory(ctx, "Snacks")
	other, err := m.CreateProduct(ctx, Product{
		Name: "Trail Mix", Price: 6.49, StockQuantity: 1,
		SupplierID: sup.ID, CategoryID: cat.ID,
	})
	if err != nil {
		t.Fatalf("product: %v", err)
	}

	_, err = m.CreateSale(ctx, SaleInput{Items: []SaleItemInput{
		{ProductID: p.ID, Quantity: 2},
		{ProductID: other.ID, Quantity: 5},
	}})
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("want ErrInsufficientStock, got %v", err)
	}

	first, _ := m.GetProduct(ctx, p.ID)
	if first.StockQuantity != 10 {
		t.Fatalf("partial sale applied: stock=%d", first.StockQuantity)
	}
}

func TestReportsAggregate(t *testing.T) {
	m, p := seed(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := m.CreateSale(ctx, SaleInput{Items: []SaleItemInput{{ProductID: p.ID, Quantity: 1}}}); err != nil {
			t.Fatalf("sale %d: %v", i, err)
		}
	}

	byProduct, err := m.SalesByProduct(ctx, time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("by product: %v", err)
	}
	if len(byProduct) != 1 || byProduct[0].UnitsSold != 3 {
		t.Fatalf("unexpected aggregate: %+v", byProduct)
	}

	byDate, err := m.SalesByDate(ctx, time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("by date: %v", err)
	}
	if len(byDate) != 1 || byDate[0].SaleCount != 3 {
		t.Fatalf("unexpected daily aggregate: %+v", byDate)
	}

	// A window in the past excludes everything.
	past := time.Now().UTC().Add(-48 * time.Hour)
	windowed, err := m.SalesByDate(ctx, past, past.Add(time.Hour))
	if err != nil {
		t.Fatalf("windowed: %v", err)
	}
	if len(windowed) != 0 {
		t.Fatalf("window should exclude sales: %+v", windowed)
	}
}

func TestListPageNormalize(t *testing.T) {
	cases := []struct {
		in, want ListPage
	}{
		{ListPage{}, ListPage{Page: 1, Limit: 20}},
		{ListPage{Page: -4, Limit: 0}, ListPage{Page: 1, Limit: 20}},
		{ListPage{Page: 2, Limit: 500}, ListPage{Page: 2, Limit: 100}},
	}
	for _, tc := range cases {
		if got := tc.in.Normalize(); got != tc.want {
			t.Fatalf("Normalize(%+v)=%+v, want %+v", tc.in, got, tc.want)
		}
	}
}
