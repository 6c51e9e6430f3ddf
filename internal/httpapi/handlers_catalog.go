package httpapi

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"fptmart/backend/internal/domain"
)

func (a *API) catalogRoutes(r chi.Router) {
	r.Route("/categories", func(r chi.Router) {
		r.Get("/", a.handleListCategories)
		r.Post("/", a.handleCreateCategory)
		r.Get("/{id}", a.handleGetCategory)
		r.Patch("/{id}", a.handleUpdateCategory)
		r.Delete("/{id}", a.handleDeleteCategory)
	})

	r.Route("/products", func(r chi.Router) {
		r.Get("/", a.handleListProducts)
		r.Post("/", a.handleCreateProduct)
		r.Get("/low-stock", a.handleLowStockProducts)
		r.Get("/pos", a.handlePOSProducts)
		r.Get("/lookup", a.handleLookupProduct)
		r.Get("/barcode/{barcode}", a.handleProductsByBarcode)
		r.Get("/code/{code}", a.handleProductByCode)
		r.Get("/{id}", a.handleGetProduct)
		r.Patch("/{id}", a.handleUpdateProduct)
		r.Delete("/{id}", a.handleDeleteProduct)
	})
}

func (a *API) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := a.service.ListCategories(r.Context(), queryBool(r, "include_inactive"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": categories})
}

func (a *API) handleGetCategory(w http.ResponseWriter, r *http.Request) {
	category, err := a.service.GetCategory(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"category": category})
}

func (a *API) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req domain.CategoryCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	category, err := a.service.CreateCategory(r.Context(), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"category": category})
}

func (a *API) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	var req domain.CategoryUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	category, err := a.service.UpdateCategory(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"category": category})
}

func (a *API) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := a.service.DeleteCategory(r.Context(), chi.URLParam(r, "id")); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	products, err := a.service.ListProducts(r.Context(), domain.ProductFilter{
		CategoryID:      strings.TrimSpace(q.Get("category_id")),
		Query:           q.Get("q"),
		Barcode:         strings.TrimSpace(q.Get("barcode")),
		IncludeInactive: queryBool(r, "include_inactive"),
		LowStockOnly:    queryBool(r, "low_stock"),
		InStockOnly:     queryBool(r, "in_stock"),
		Limit:           parsePositiveLimit(q.Get("limit"), 0, 500),
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": domain.NewProductViews(products)})
}

func (a *API) handleLowStockProducts(w http.ResponseWriter, r *http.Request) {
	products, err := a.service.ListLowStockProducts(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": domain.NewProductViews(products)})
}

func (a *API) handlePOSProducts(w http.ResponseWriter, r *http.Request) {
	products, err := a.service.ListPOSProducts(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": domain.NewProductViews(products)})
}

func (a *API) handleLookupProduct(w http.ResponseWriter, r *http.Request) {
	products, err := a.service.LookupForPOS(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": domain.NewProductViews(products)})
}

func (a *API) handleProductsByBarcode(w http.ResponseWriter, r *http.Request) {
	products, err := a.service.FindProductsByBarcode(r.Context(), chi.URLParam(r, "barcode"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": domain.NewProductViews(products)})
}

func (a *API) handleProductByCode(w http.ResponseWriter, r *http.Request) {
	product, err := a.service.GetProductByCode(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"product": domain.NewProductView(product)})
}

func (a *API) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := a.service.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"product": domain.NewProductView(product)})
}

func (a *API) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var req domain.ProductCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	product, err := a.service.CreateProduct(r.Context(), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"product": domain.NewProductView(product)})
}

func (a *API) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	var req domain.ProductUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	product, err := a.service.UpdateProduct(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"product": domain.NewProductView(product)})
}

func (a *API) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := a.service.DeleteProduct(r.Context(), chi.URLParam(r, "id")); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
