package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"fptmart/backend/internal/domain"
	"fptmart/backend/internal/store"
)

var (
	rolesAdmin      = []string{domain.RoleAdmin}
	rolesManagement = []string{domain.RoleAdmin, domain.RoleManager}
	rolesInventory  = []string{domain.RoleAdmin, domain.RoleManager, domain.RoleStockKeeper}
	rolesSales      = []string{domain.RoleAdmin, domain.RoleManager, domain.RoleCashier}
)

func (s *Service) ListCategories(ctx context.Context, includeInactive bool) ([]domain.Category, error) {
	if _, err := s.requireRole(ctx); err != nil {
		return nil, err
	}
	return s.repo.ListCategories(ctx, includeInactive)
}

func (s *Service) GetCategory(ctx context.Context, id string) (domain.Category, error) {
	if _, err := s.requireRole(ctx); err != nil {
		return domain.Category{}, err
	}
	category, err := s.repo.GetCategory(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.Category{}, err
	}
	return *category, nil
}

func (s *Service) CreateCategory(ctx context.Context, req domain.CategoryCreateRequest) (domain.Category, error) {
	if _, err := s.requireRole(ctx, rolesManagement...); err != nil {
		return domain.Category{}, err
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Description = strings.TrimSpace(req.Description)
	if err := s.check(req); err != nil {
		return domain.Category{}, err
	}

	created, err := s.repo.CreateCategory(ctx, domain.Category{Name: req.Name, Description: req.Description})
	if err != nil {
		return domain.Category{}, err
	}

	s.logAudit(ctx, "category_create", "category", created.ID, "name="+created.Name)
	return *created, nil
}

func (s *Service) UpdateCategory(ctx context.Context, id string, req domain.CategoryUpdateRequest) (domain.Category, error) {
	if _, err := s.requireRole(ctx, rolesManagement...); err != nil {
		return domain.Category{}, err
	}
	if err := s.check(req); err != nil {
		return domain.Category{}, err
	}

	existing, err := s.repo.GetCategory(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.Category{}, err
	}
	updated := *existing
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Category{}, invalidField("name", "is required")
		}
		updated.Name = name
	}
	if req.Description != nil {
		updated.Description = strings.TrimSpace(*req.Description)
	}
	if req.IsActive != nil {
		updated.IsActive = *req.IsActive
	}

	saved, err := s.repo.UpdateCategory(ctx, updated)
	if err != nil {
		return domain.Category{}, err
	}

	s.logAudit(ctx, "category_update", "category", saved.ID, fmt.Sprintf("name=%s,active=%t", saved.Name, saved.IsActive))
	return *saved, nil
}

// DeleteCategory deactivates the category; its products keep their link.
func (s *Service) DeleteCategory(ctx context.Context, id string) error {
	inactive := false
	_, err := s.UpdateCategory(ctx, id, domain.CategoryUpdateRequest{IsActive: &inactive})
	return err
}

func (s *Service) ListProducts(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	if _, err := s.requireRole(ctx, rolesInventory...); err != nil {
		return nil, err
	}
	filter.Query = strings.TrimSpace(filter.Query)
	return s.repo.ListProducts(ctx, filter)
}

func (s *Service) ListLowStockProducts(ctx context.Context) ([]domain.Product, error) {
	return s.ListProducts(ctx, domain.ProductFilter{LowStockOnly: true})
}

// ListPOSProducts returns what the register may sell right now.
func (s *Service) ListPOSProducts(ctx context.Context, query string) ([]domain.Product, error) {
	if _, err := s.requireRole(ctx); err != nil {
		return nil, err
	}
	return s.repo.ListProducts(ctx, domain.ProductFilter{Query: strings.TrimSpace(query), InStockOnly: true})
}

func (s *Service) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	if _, err := s.requireRole(ctx); err != nil {
		return domain.Product{}, err
	}
	product, err := s.repo.GetProduct(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.Product{}, err
	}
	return *product, nil
}

func (s *Service) GetProductByCode(ctx context.Context, code string) (domain.Product, error) {
	if _, err := s.requireRole(ctx); err != nil {
		return domain.Product{}, err
	}
	product, err := s.repo.GetProductByCode(ctx, strings.TrimSpace(code))
	if err != nil {
		return domain.Product{}, err
	}
	return *product, nil
}

func (s *Service) FindProductsByBarcode(ctx context.Context, barcode string) ([]domain.Product, error) {
	if _, err := s.requireRole(ctx); err != nil {
		return nil, err
	}
	return s.repo.ListProductsByBarcode(ctx, strings.TrimSpace(barcode))
}

// LookupForPOS resolves a scanned or typed code: the product code first,
// then the barcode. Only sellable products are returned.
func (s *Service) LookupForPOS(ctx context.Context, code string) ([]domain.Product, error) {
	if _, err := s.requireRole(ctx); err != nil {
		return nil, err
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, invalidField("code", "is required")
	}

	product, err := s.repo.GetProductByCode(ctx, code)
	switch {
	case err == nil:
		if product.Sellable() {
			return []domain.Product{*product}, nil
		}
	case !errors.Is(err, store.ErrNotFound):
		return nil, err
	}

	byBarcode, err := s.repo.ListProductsByBarcode(ctx, code)
	if err != nil {
		return nil, err
	}
	sellable := make([]domain.Product, 0, len(byBarcode))
	for _, p := range byBarcode {
		if p.Sellable() {
			sellable = append(sellable, p)
		}
	}
	if len(sellable) == 0 {
		return nil, fmt.Errorf("no sellable product for %q: %w", code, store.ErrNotFound)
	}
	return sellable, nil
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	if _, err := s.requireRole(ctx, rolesManagement...); err != nil {
		return domain.Product{}, err
	}
	req.ProductCode = strings.ToUpper(strings.TrimSpace(req.ProductCode))
	req.Barcode = strings.TrimSpace(req.Barcode)
	req.Name = strings.TrimSpace(req.Name)
	req.CategoryID = strings.TrimSpace(req.CategoryID)
	if err := s.check(req); err != nil {
		return domain.Product{}, err
	}
	if err := s.requireActiveCategory(ctx, req.CategoryID); err != nil {
		return domain.Product{}, err
	}

	product := domain.Product{
		ProductCode:   req.ProductCode,
		Barcode:       req.Barcode,
		Name:          req.Name,
		Description:   strings.TrimSpace(req.Description),
		CategoryID:    req.CategoryID,
		CostPrice:     req.CostPrice,
		SellingPrice:  req.SellingPrice,
		StockQuantity: req.StockQuantity,
		MinStockLevel: domain.DefaultMinStockLevel,
		UnitsPerCase:  domain.DefaultUnitsPerCase,
		CaseUnit:      defaultString(strings.TrimSpace(req.CaseUnit), domain.DefaultCaseUnit),
		Unit:          defaultString(strings.TrimSpace(req.Unit), domain.DefaultUnit),
		ImagePath:     strings.TrimSpace(req.ImagePath),
	}
	if req.MinStockLevel != nil {
		product.MinStockLevel = *req.MinStockLevel
	}
	if req.UnitsPerCase != nil {
		product.UnitsPerCase = *req.UnitsPerCase
	}

	created, err := s.repo.CreateProduct(ctx, product)
	if err != nil {
		return domain.Product{}, err
	}

	s.logAudit(ctx, "product_create", "product", created.ID, fmt.Sprintf("code=%s,name=%s,price=%d,stock=%d", created.ProductCode, created.Name, created.SellingPrice, created.StockQuantity))
	s.invalidateDashboard(ctx)
	return *created, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id string, req domain.ProductUpdateRequest) (domain.Product, error) {
	if _, err := s.requireRole(ctx, rolesManagement...); err != nil {
		return domain.Product{}, err
	}
	if err := s.check(req); err != nil {
		return domain.Product{}, err
	}

	existing, err := s.repo.GetProduct(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.Product{}, err
	}

	updated := *existing
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Product{}, invalidField("name", "is required")
		}
		updated.Name = name
	}
	if req.CategoryID != nil {
		categoryID := strings.TrimSpace(*req.CategoryID)
		if categoryID != existing.CategoryID {
			if err := s.requireActiveCategory(ctx, categoryID); err != nil {
				return domain.Product{}, err
			}
		}
		updated.CategoryID = categoryID
	}
	if req.Barcode != nil {
		updated.Barcode = strings.TrimSpace(*req.Barcode)
	}
	if req.Description != nil {
		updated.Description = strings.TrimSpace(*req.Description)
	}
	if req.CostPrice != nil {
		updated.CostPrice = *req.CostPrice
	}
	if req.SellingPrice != nil {
		updated.SellingPrice = *req.SellingPrice
	}
	if req.MinStockLevel != nil {
		updated.MinStockLevel = *req.MinStockLevel
	}
	if req.UnitsPerCase != nil {
		updated.UnitsPerCase = *req.UnitsPerCase
	}
	if req.CaseUnit != nil {
		updated.CaseUnit = defaultString(strings.TrimSpace(*req.CaseUnit), domain.DefaultCaseUnit)
	}
	if req.Unit != nil {
		updated.Unit = defaultString(strings.TrimSpace(*req.Unit), domain.DefaultUnit)
	}
	if req.ImagePath != nil {
		updated.ImagePath = strings.TrimSpace(*req.ImagePath)
	}
	if req.IsActive != nil {
		updated.IsActive = *req.IsActive
	}

	saved, err := s.repo.UpdateProduct(ctx, updated)
	if err != nil {
		return domain.Product{}, err
	}

	s.logAudit(ctx, "product_update", "product", saved.ID, fmt.Sprintf("active=%t,price=%d,cost=%d", saved.IsActive, saved.SellingPrice, saved.CostPrice))
	s.invalidateDashboard(ctx)
	return *saved, nil
}

func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	inactive := false
	_, err := s.UpdateProduct(ctx, id, domain.ProductUpdateRequest{IsActive: &inactive})
	return err
}

func (s *Service) requireActiveCategory(ctx context.Context, categoryID string) error {
	category, err := s.repo.GetCategory(ctx, categoryID)
	if errors.Is(err, store.ErrNotFound) {
		return invalidField("category_id", "does not exist")
	}
	if err != nil {
		return err
	}
	if !category.IsActive {
		return invalidField("category_id", "is inactive")
	}
	return nil
}

func defaultString(value string, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
