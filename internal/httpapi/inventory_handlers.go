package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"invenflow.org/internal/inventory"
)

func parsePage(r *http.Request) (inventory.ListPage, error) {
	var page inventory.ListPage
	q := r.URL.Query()
	if raw := strings.TrimSpace(q.Get("page")); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			return page, errors.New("page must be a positive integer")
		}
		page.Page = v
	}
	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			return page, errors.New("limit must be a positive integer")
		}
		page.Limit = v
	}
	return page.Normalize(), nil
}

func handleInventoryError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, inventory.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, "invalid input")
	case errors.Is(err, inventory.ErrSupplierNotFound):
		writeError(w, r, http.StatusBadRequest, "supplier not found")
	case errors.Is(err, inventory.ErrCategoryNotFound):
		writeError(w, r, http.StatusBadRequest, "category not found")
	case errors.Is(err, inventory.ErrDuplicateProduct):
		writeError(w, r, http.StatusConflict, "product already exists")
	case errors.Is(err, inventory.ErrInsufficientStock):
		writeError(w, r, http.StatusConflict, "insufficient stock")
	case errors.Is(err, inventory.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "resource not found")
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}

// --- suppliers ---

type supplierRequest struct {
	Name    string `json:"name"`
	Contact string `json:"contact_info"`
}

func (a *API) handleSuppliersCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		page, err := parsePage(r)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		list, err := a.inv.ListSuppliers(r.Context(), page)
		if err != nil {
			handleInventoryError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, list)
	case http.MethodPost:
		var req supplierRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		sup, err := a.inv.CreateSupplier(r.Context(), req.Name, req.Contact)
		if err != nil {
			handleInventoryError(w, r, err)
			return
		}
		w.Header().Set("Location", "/api/suppliers/"+strconv.FormatInt(sup.ID, 10))
		writeData(w, http.StatusCreated, sup)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleSupplierResource(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(strings.TrimPrefix(r.URL.Path, "/api/suppliers/"))
	if err != nil {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	switch r.Method {
	case http.MethodGet:
		sup, err := a.inv.GetSupplier(r.Context(), id)
		if err != nil {
			handleInventoryError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, sup)
	case http.MethodPut:
		var req supplierRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		sup, err := a.inv.UpdateSupplier(r.Context(), id, req.Name, req.Contact)
		if err != nil {
			handleInventoryError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, sup)
	case http.MethodDelete:
		if err := a.inv.DeleteSupplier(r.Context(), id); err != nil {
			handleInventoryError(w, r, err)
			return
		}
		a.audit(r.Context(), "inventory.supplier.delete", map[string]any{"supplier_id": id})
		writeMessage(w, http.StatusOK, "supplier deleted")
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

// --- categories ---

type categoryRequest struct {
	Name string `json:"name"`
}

func (a *API) handleCategoriesCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		page, err := parsePage(r)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		list, err := a.inv.ListCategories(r.Context(), page)
		if err != nil {
			handleInventoryError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, list)
	case http.MethodPost:
		var req categoryRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		cat, err := a.inv.CreateCategory(r.Context(), req.Name)
		if err != nil {
			handleInventoryError(w, r, err)
			return
		}
		w.Header().Set("Location", "/api/categories/"+strconv.FormatInt(cat.ID, 10))
		writeData(w, http.StatusCreated, cat)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleCategoryResource(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(strings.TrimPrefix(r.URL.Path, "/api/categories/"))
	if err != nil {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	switch r.Method {
	case http.MethodGet:
		cat, err := a.inv.GetCategory(r.Context(), id)
		if err != nil {
			handleInventoryError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, cat)
	case http.MethodPut:
		var req categoryRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		cat, err := a.inv.UpdateCategory(r.Context(), id, req.Name)
		if err != nil {
			handleInventoryError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, cat)
	case http.MethodDelete:
		if err := a.inv.DeleteCategory(r.Context(), id); err != nil {
			handleInventoryError(w, r, err)
			return
		}
		a.audit(r.Context(), "inventory.category.delete", map[string]any{"category_id": id})
		writeMessage(w, http.StatusOK, "category deleted")
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

// --- products ---

type productRequest struct {
	Name          string  `json:"name"`
	Description   string  `json:"description"`
	Price         float64 `json:"price"`
	StockQuantity int     `json:"stock_quantity"`
	SupplierID    int64   `json:"supplier_id"`
	CategoryID    int64   `json:"category_id"`
}

func (a *API) handleProductsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		page, err := parsePage(r)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		list, err := a.inv.ListProducts(r.Context(), page)
		if err != nil {
			handleInventoryError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, list)
	case http.MethodPost:
		var req productRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		p, err := a.inv.CreateProduct(r.Context(), inventory.Product{
			Name:          req.Name,
			Description:   req.Description,
			Price:         req.Price,
			StockQuantity: req.StockQuantity,
			SupplierID:    req.SupplierID,
			CategoryID:    req.CategoryID,
		})
		if err != nil {
			handleInventoryError(w, r, err)
			return
		}
		w.Header().Set("Location", "/api/products/"+strconv.FormatInt(p.ID, 10))
		writeData(w, http.StatusCreated, p)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleProductResource(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/products/")
	if rest == "low-stock" {
		a.lowStock(w, r)
		return
	}
	id, err := parseID(rest)
	if err != nil {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	switch r.Method {
	case http.MethodGet:
		p, err := a.inv.GetProduct(r.Context(), id)
		if err != nil {
			handleInventoryError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, p)
	case http.MethodPut:
		var patch inventory.ProductPatch
		if err := decodeJSON(w, r, &patch); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		p, err := a.inv.UpdateProduct(r.Context(), id, patch)
		if err != nil {
			handleInventoryError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, p)
	case http.MethodDelete:
		if err := a.inv.DeleteProduct(r.Context(), id); err != nil {
			handleInventoryError(w, r, err)
			return
		}
		a.audit(r.Context(), "inventory.product.delete", map[string]any{"product_id": id})
		writeMessage(w, http.StatusOK, "product deleted")
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

func (a *API) lowStock(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	threshold := a.lowStockMin
	if raw := strings.TrimSpace(r.URL.Query().Get("threshold")); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			writeError(w, r, http.StatusBadRequest, "threshold must be a non-negative integer")
			return
		}
		threshold = v
	}
	list, err := a.inv.LowStockProducts(r.Context(), threshold)
	if err != nil {
		handleInventoryError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, list)
}

// --- reports ---

func parseDateRange(r *http.Request) (from, to time.Time, err error) {
	q := r.URL.Query()
	if raw := strings.TrimSpace(q.Get("from")); raw != "" {
		from, err = time.Parse("2006-01-02", raw)
		if err != nil {
			return from, to, errors.New("from must be YYYY-MM-DD")
		}
	}
	if raw := strings.TrimSpace(q.Get("to")); raw != "" {
		to, err = time.Parse("2006-01-02", raw)
		if err != nil {
			return from, to, errors.New("to must be YYYY-MM-DD")
		}
		// Include the whole end day.
		to = to.Add(24*time.Hour - time.Nanosecond)
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return from, to, errors.New("to must not precede from")
	}
	return from, to, nil
}

func (a *API) salesByProduct(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	from, to, err := parseDateRange(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	report, err := a.inv.SalesByProduct(r.Context(), from, to)
	if err != nil {
		handleInventoryError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, report)
}

func (a *API) salesByDate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	from, to, err := parseDateRange(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	report, err := a.inv.SalesByDate(r.Context(), from, to)
	if err != nil {
		handleInventoryError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, report)
}
