package httpapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"invenflow.org/internal/auth"
	"invenflow.org/internal/inventory"
	"invenflow.org/internal/stream"
)

type saleRequest struct {
	Items []inventory.SaleItemInput `json:"items"`
}

func (a *API) handleSalesCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		page, err := parsePage(r)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		list, err := a.inv.ListSales(r.Context(), page)
		if err != nil {
			handleInventoryError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, list)
	case http.MethodPost:
		a.createSale(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleSaleResource(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/sales/")
	if rest == "stream" {
		a.Stream(w, r)
		return
	}
	id, err := parseID(rest)
	if err != nil {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	sale, err := a.inv.GetSale(r.Context(), id)
	if err != nil {
		handleInventoryError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, sale)
}

func (a *API) createSale(w http.ResponseWriter, r *http.Request) {
	var req saleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.Items) == 0 {
		writeError(w, r, http.StatusBadRequest, "at least one sale item is required")
		return
	}

	in := inventory.SaleInput{Items: req.Items}
	if p, ok := auth.PrincipalFromContext(r.Context()); ok {
		in.CreatedBy = p.ID
	}

	sale, err := a.inv.CreateSale(r.Context(), in)
	if err != nil {
		handleInventoryError(w, r, err)
		return
	}

	if a.stream != nil {
		a.stream.Publish(stream.SaleEvent{
			SaleID:    sale.ID,
			Total:     sale.Total,
			ItemCount: len(sale.Items),
			Timestamp: time.Now().UTC(),
		})
	}
	a.audit(r.Context(), "inventory.sale.create", map[string]any{
		"sale_id": sale.ID,
		"total":   strconv.FormatFloat(sale.Total, 'f', 2, 64),
		"items":   len(sale.Items),
	})

	w.Header().Set("Location", "/api/sales/"+strconv.FormatInt(sale.ID, 10))
	writeData(w, http.StatusCreated, sale)
}
