package pg

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"invenflow.org/internal/inventory"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewFromDB(db), mock
}

func TestGetSupplierNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`select supplier_id, name`).
		WithArgs(int64(42)).
		WillReturnError(sql.ErrNoRows)

	_, err := s.GetSupplier(context.Background(), 42)
	if !errors.Is(err, inventory.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetSupplier(t *testing.T) {
	s, mock := newMockStore(t)
	created := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`select supplier_id, name`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"supplier_id", "name", "contact_info", "created_at"}).
			AddRow(int64(7), "Acme", "orders@acme.example", created))

	sup, err := s.GetSupplier(context.Background(), 7)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if sup.Name != "Acme" || !sup.CreatedAt.Equal(created) {
		t.Fatalf("unexpected supplier %+v", sup)
	}
}

func TestDeleteProductNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`delete from products`).
		WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := s.DeleteProduct(context.Background(), 5); !errors.Is(err, inventory.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestCreateSaleInsufficientStockRollsBack(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`select name, price from products`).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"name", "price"}).AddRow("Trail Mix", 6.49))
	// Conditional decrement touches no rows when stock is short.
	mock.ExpectExec(`update products set stock_quantity = stock_quantity -`).
		WithArgs(int64(3), 5).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := s.CreateSale(context.Background(), inventory.SaleInput{
		Items: []inventory.SaleItemInput{{ProductID: 3, Quantity: 5}},
	})
	if !errors.Is(err, inventory.ErrInsufficientStock) {
		t.Fatalf("want ErrInsufficientStock, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCreateSaleHappyPath(t *testing.T) {
	s, mock := newMockStore(t)
	soldAt := time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(`select name, price from products`).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"name", "price"}).AddRow("Trail Mix", 6.49))
	mock.ExpectExec(`update products set stock_quantity = stock_quantity -`).
		WithArgs(int64(3), 2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`insert into sales`).
		WithArgs(12.98, "admin-1").
		WillReturnRows(sqlmock.NewRows([]string{"sale_id", "sale_date"}).AddRow(int64(11), soldAt))
	mock.ExpectExec(`insert into sale_items`).
		WithArgs(int64(11), int64(3), 2, 6.49).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	sale, err := s.CreateSale(context.Background(), inventory.SaleInput{
		Items:     []inventory.SaleItemInput{{ProductID: 3, Quantity: 2}},
		CreatedBy: "admin-1",
	})
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}
	if sale.ID != 11 || sale.Total != 12.98 || sale.Items[0].UnitPrice != 6.49 {
		t.Fatalf("unexpected sale %+v", sale)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSalesByDate(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`select to_char`).
		WillReturnRows(sqlmock.NewRows([]string{"day", "count", "revenue"}).
			AddRow("2025-06-01", 2, 25.96).
			AddRow("2025-06-02", 1, 6.49))

	report, err := s.SalesByDate(context.Background(), time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if len(report) != 2 || report[0].Date != "2025-06-01" || report[0].SaleCount != 2 {
		t.Fatalf("unexpected report %+v", report)
	}
}
