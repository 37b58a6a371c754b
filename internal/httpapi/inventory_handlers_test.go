package httpapi

import (
	"fmt"
	"net/http"
	"testing"
)

// seedCatalog registers a session and creates one supplier, category and
// product, returning the product id.
func seedCatalog(t *testing.T, h *harness, stock int) int64 {
	t.Helper()
	h.register(t, "catalog@example.com", "a fine password")

	resp, body := h.do(t, http.MethodPost, "/api/suppliers", map[string]any{
		"name":         "Acme Wholesale",
		"contact_info": "orders@acme.example",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create supplier: %d %v", resp.StatusCode, body)
	}
	supplierID := int64(body["data"].(map[string]any)["supplier_id"].(float64))

	resp, body = h.do(t, http.MethodPost, "/api/categories", map[string]any{
		"name": "Beverages",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create category: %d %v", resp.StatusCode, body)
	}
	categoryID := int64(body["data"].(map[string]any)["category_id"].(float64))

	resp, body = h.do(t, http.MethodPost, "/api/products", map[string]any{
		"name":           "Sparkling Water",
		"price":          8.99,
		"stock_quantity": stock,
		"supplier_id":    supplierID,
		"category_id":    categoryID,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create product: %d %v", resp.StatusCode, body)
	}
	return int64(body["data"].(map[string]any)["product_id"].(float64))
}

func TestProductCRUD(t *testing.T) {
	h := newHarness(t)
	productID := seedCatalog(t, h, 25)

	resp, body := h.do(t, http.MethodGet, fmt.Sprintf("/api/products/%d", productID), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get product: %d %v", resp.StatusCode, body)
	}
	data := body["data"].(map[string]any)
	if data["supplier_name"] != "Acme Wholesale" || data["category_name"] != "Beverages" {
		t.Fatalf("joins missing: %v", data)
	}

	resp, body = h.do(t, http.MethodPut, fmt.Sprintf("/api/products/%d", productID), map[string]any{
		"price": 9.49,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update product: %d %v", resp.StatusCode, body)
	}
	if body["data"].(map[string]any)["price"] != 9.49 {
		t.Fatalf("price not updated: %v", body)
	}
	if body["data"].(map[string]any)["stock_quantity"] != float64(25) {
		t.Fatalf("partial update clobbered stock: %v", body)
	}

	resp, _ = h.do(t, http.MethodDelete, fmt.Sprintf("/api/products/%d", productID), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete product: %d", resp.StatusCode)
	}
	resp, _ = h.do(t, http.MethodGet, fmt.Sprintf("/api/products/%d", productID), nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("deleted product still present: %d", resp.StatusCode)
	}
}

func TestCreateProductValidatesReferences(t *testing.T) {
	h := newHarness(t)
	h.register(t, "refs@example.com", "a fine password")

	resp, body := h.do(t, http.MethodPost, "/api/products", map[string]any{
		"name":           "Orphan Product",
		"price":          1.00,
		"stock_quantity": 1,
		"supplier_id":    999,
		"category_id":    999,
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("want 400 for missing supplier, got %d (%v)", resp.StatusCode, body)
	}
}

func TestDuplicateProductConflicts(t *testing.T) {
	h := newHarness(t)
	seedCatalog(t, h, 5)

	resp, body := h.do(t, http.MethodPost, "/api/products", map[string]any{
		"name":           "sparkling water",
		"price":          1.00,
		"stock_quantity": 1,
		"supplier_id":    1,
		"category_id":    2,
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("want 409 for duplicate name, got %d (%v)", resp.StatusCode, body)
	}
}

func TestSaleDecrementsStock(t *testing.T) {
	h := newHarness(t)
	productID := seedCatalog(t, h, 10)

	resp, body := h.do(t, http.MethodPost, "/api/sales", map[string]any{
		"items": []map[string]any{
			{"product_id": productID, "quantity": 3},
		},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create sale: %d %v", resp.StatusCode, body)
	}
	sale := body["data"].(map[string]any)
	if sale["total_amount"] != 8.99*3 {
		t.Fatalf("total wrong: %v", sale["total_amount"])
	}

	resp, body = h.do(t, http.MethodGet, fmt.Sprintf("/api/products/%d", productID), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get product: %d", resp.StatusCode)
	}
	if body["data"].(map[string]any)["stock_quantity"] != float64(7) {
		t.Fatalf("stock not decremented: %v", body["data"])
	}
}

func TestSaleRejectsInsufficientStock(t *testing.T) {
	h := newHarness(t)
	productID := seedCatalog(t, h, 2)

	resp, body := h.do(t, http.MethodPost, "/api/sales", map[string]any{
		"items": []map[string]any{
			{"product_id": productID, "quantity": 5},
		},
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("want 409, got %d (%v)", resp.StatusCode, body)
	}

	// The failed sale must not touch stock.
	resp, body = h.do(t, http.MethodGet, fmt.Sprintf("/api/products/%d", productID), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get product: %d", resp.StatusCode)
	}
	if body["data"].(map[string]any)["stock_quantity"] != float64(2) {
		t.Fatalf("stock changed on failed sale: %v", body["data"])
	}
}

func TestLowStockEndpoint(t *testing.T) {
	h := newHarness(t)
	seedCatalog(t, h, 3)

	resp, body := h.do(t, http.MethodGet, "/api/products/low-stock?threshold=5", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("low-stock: %d %v", resp.StatusCode, body)
	}
	items := body["data"].([]any)
	if len(items) != 1 {
		t.Fatalf("want 1 low-stock product, got %d", len(items))
	}

	resp, body = h.do(t, http.MethodGet, "/api/products/low-stock?threshold=1", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("low-stock: %d", resp.StatusCode)
	}
	if items := body["data"].([]any); len(items) != 0 {
		t.Fatalf("threshold 1 should match nothing, got %d", len(items))
	}
}

func TestSalesReports(t *testing.T) {
	h := newHarness(t)
	productID := seedCatalog(t, h, 20)

	for i := 0; i < 2; i++ {
		resp, _ := h.do(t, http.MethodPost, "/api/sales", map[string]any{
			"items": []map[string]any{
				{"product_id": productID, "quantity": 2},
			},
		})
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("sale %d failed: %d", i, resp.StatusCode)
		}
	}

	resp, body := h.do(t, http.MethodGet, "/api/reports/sales-by-product", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("sales-by-product: %d %v", resp.StatusCode, body)
	}
	rows := body["data"].([]any)
	if len(rows) != 1 {
		t.Fatalf("want 1 aggregate row, got %d", len(rows))
	}
	row := rows[0].(map[string]any)
	if row["units_sold"] != float64(4) {
		t.Fatalf("units_sold: %v", row)
	}

	resp, body = h.do(t, http.MethodGet, "/api/reports/sales-by-date", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("sales-by-date: %d", resp.StatusCode)
	}
	days := body["data"].([]any)
	if len(days) != 1 {
		t.Fatalf("want 1 day, got %d", len(days))
	}
	if days[0].(map[string]any)["sale_count"] != float64(2) {
		t.Fatalf("sale_count: %v", days[0])
	}

	resp, _ = h.do(t, http.MethodGet, "/api/reports/sales-by-date?from=banana", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("want 400 for bad date, got %d", resp.StatusCode)
	}
}

func TestReportsRequireAdminRole(t *testing.T) {
	h := newHarness(t)
	resp, body := h.do(t, http.MethodPost, "/api/auth/register", map[string]any{
		"name":     "Sales Clerk",
		"email":    "clerk@example.com",
		"password": "a fine password",
		"role":     "Staff",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("register staff: want 200, got %d (%v)", resp.StatusCode, body)
	}

	resp, _ = h.do(t, http.MethodGet, "/api/reports/sales-by-date", nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("staff should not reach reports: want 403, got %d", resp.StatusCode)
	}

	// Staff keeps access to the catalog itself.
	resp, _ = h.do(t, http.MethodGet, "/api/products", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("staff catalog access: want 200, got %d", resp.StatusCode)
	}
}

func TestPaginationBounds(t *testing.T) {
	h := newHarness(t)
	h.register(t, "pages@example.com", "a fine password")

	for i := 0; i < 3; i++ {
		resp, _ := h.do(t, http.MethodPost, "/api/suppliers", map[string]any{
			"name": fmt.Sprintf("Supplier %d", i),
		})
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("create supplier %d: %d", i, resp.StatusCode)
		}
	}

	resp, body := h.do(t, http.MethodGet, "/api/suppliers?page=2&limit=2", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list: %d", resp.StatusCode)
	}
	if items := body["data"].([]any); len(items) != 1 {
		t.Fatalf("page 2 of 3 with limit 2: want 1, got %d", len(items))
	}

	resp, _ = h.do(t, http.MethodGet, "/api/suppliers?page=0", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("want 400 for page=0, got %d", resp.StatusCode)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	h := newHarness(t)
	h.register(t, "methods@example.com", "a fine password")

	resp, _ := h.do(t, http.MethodDelete, "/api/suppliers", nil)
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("want 405, got %d", resp.StatusCode)
	}
	if allow := resp.Header.Get("Allow"); allow == "" {
		t.Fatal("missing Allow header")
	}
}
