package httpapi

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"fptmart/backend/internal/domain"
)

func (a *API) salesRoutes(r chi.Router) {
	r.Route("/sales", func(r chi.Router) {
		r.Get("/", a.handleListSales)
		r.Post("/", a.handleCreateSale)
		r.Get("/invoice/{number}", a.handleSaleByInvoice)
		r.Get("/{id}", a.handleGetSale)
		r.Get("/{id}/invoice.html", a.handleSaleInvoiceHTML)
		r.Post("/{id}/cancel", a.handleCancelSale)
	})
}

func (a *API) stockRoutes(r chi.Router) {
	r.Route("/stock-ins", func(r chi.Router) {
		r.Get("/", a.handleListStockIns)
		r.Post("/", a.handleCreateStockIn)
		r.Get("/{id}", a.handleGetStockIn)
	})

	r.Get("/adjustments", a.handleListAdjustments)
	r.Post("/adjustments", a.handleCreateAdjustment)
}

func (a *API) handleListSales(w http.ResponseWriter, r *http.Request) {
	from, to, err := a.dateRange(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	sales, err := a.service.ListSales(r.Context(), domain.SaleFilter{
		From:   from,
		To:     to,
		Status: strings.TrimSpace(r.URL.Query().Get("status")),
		Limit:  parsePositiveLimit(r.URL.Query().Get("limit"), 0, 1000),
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sales": sales})
}

func (a *API) handleCreateSale(w http.ResponseWriter, r *http.Request) {
	var req domain.SaleCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	sale, err := a.service.CreateSale(r.Context(), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"sale": sale})
}

func (a *API) handleGetSale(w http.ResponseWriter, r *http.Request) {
	sale, err := a.service.GetSale(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sale": sale})
}

func (a *API) handleSaleByInvoice(w http.ResponseWriter, r *http.Request) {
	sale, err := a.service.GetSaleByInvoice(r.Context(), chi.URLParam(r, "number"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sale": sale})
}

func (a *API) handleSaleInvoiceHTML(w http.ResponseWriter, r *http.Request) {
	sale, err := a.service.GetSale(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	page, err := renderInvoiceHTML(sale, a.service.Location())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(page)
}

func (a *API) handleCancelSale(w http.ResponseWriter, r *http.Request) {
	var req domain.SaleCancelRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	sale, err := a.service.CancelSale(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sale": sale})
}

func (a *API) handleListStockIns(w http.ResponseWriter, r *http.Request) {
	from, to, err := a.dateRange(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	stockIns, err := a.service.ListStockIns(r.Context(), from, to, parsePositiveLimit(r.URL.Query().Get("limit"), 0, 1000))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"stock_ins": stockIns})
}

func (a *API) handleCreateStockIn(w http.ResponseWriter, r *http.Request) {
	var req domain.StockInCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	stockIn, err := a.service.CreateStockIn(r.Context(), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"stock_in": stockIn})
}

func (a *API) handleGetStockIn(w http.ResponseWriter, r *http.Request) {
	stockIn, err := a.service.GetStockIn(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"stock_in": stockIn})
}

func (a *API) handleListAdjustments(w http.ResponseWriter, r *http.Request) {
	from, to, err := a.dateRange(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	adjustments, err := a.service.ListAdjustments(r.Context(), domain.AdjustmentFilter{
		ProductID: r.URL.Query().Get("product_id"),
		From:      from,
		To:        to,
		Limit:     parsePositiveLimit(r.URL.Query().Get("limit"), 0, 1000),
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"adjustments": adjustments})
}

func (a *API) handleCreateAdjustment(w http.ResponseWriter, r *http.Request) {
	var req domain.AdjustmentCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	adjustment, err := a.service.AdjustInventory(r.Context(), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"adjustment": adjustment})
}
