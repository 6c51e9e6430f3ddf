package service

import (
	"context"
	"fmt"
	"strings"

	"fptmart/backend/internal/domain"
)

func (s *Service) ListCustomers(ctx context.Context, query string, includeInactive bool) ([]domain.Customer, error) {
	if _, err := s.requireRole(ctx, rolesSales...); err != nil {
		return nil, err
	}
	return s.repo.ListCustomers(ctx, strings.TrimSpace(query), includeInactive)
}

func (s *Service) GetCustomer(ctx context.Context, id string) (domain.Customer, error) {
	if _, err := s.requireRole(ctx, rolesSales...); err != nil {
		return domain.Customer{}, err
	}
	customer, err := s.repo.GetCustomer(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.Customer{}, err
	}
	return *customer, nil
}

// GetCustomerByPhone finds the customer a cashier types in at the till.
func (s *Service) GetCustomerByPhone(ctx context.Context, phone string) (domain.Customer, error) {
	if _, err := s.requireRole(ctx, rolesSales...); err != nil {
		return domain.Customer{}, err
	}
	customer, err := s.repo.GetCustomerByPhone(ctx, strings.TrimSpace(phone))
	if err != nil {
		return domain.Customer{}, err
	}
	return *customer, nil
}

// CreateCustomer is open to cashiers so a buyer can be registered at the till.
func (s *Service) CreateCustomer(ctx context.Context, req domain.CustomerCreateRequest) (domain.Customer, error) {
	if _, err := s.requireRole(ctx, rolesSales...); err != nil {
		return domain.Customer{}, err
	}
	req.FullName = strings.TrimSpace(req.FullName)
	req.Phone = strings.TrimSpace(req.Phone)
	req.Email = strings.TrimSpace(req.Email)
	if err := s.check(req); err != nil {
		return domain.Customer{}, err
	}

	created, err := s.repo.CreateCustomer(ctx, domain.Customer{
		FullName: req.FullName,
		Phone:    req.Phone,
		Email:    req.Email,
		Address:  strings.TrimSpace(req.Address),
		Notes:    strings.TrimSpace(req.Notes),
	})
	if err != nil {
		return domain.Customer{}, err
	}

	s.logAudit(ctx, "customer_create", "customer", created.ID, "name="+created.FullName)
	return *created, nil
}

func (s *Service) UpdateCustomer(ctx context.Context, id string, req domain.CustomerUpdateRequest) (domain.Customer, error) {
	if _, err := s.requireRole(ctx, rolesManagement...); err != nil {
		return domain.Customer{}, err
	}
	if req.Phone != nil {
		phone := strings.TrimSpace(*req.Phone)
		req.Phone = &phone
	}
	if req.Email != nil {
		email := strings.TrimSpace(*req.Email)
		req.Email = &email
	}
	if err := s.check(req); err != nil {
		return domain.Customer{}, err
	}

	existing, err := s.repo.GetCustomer(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.Customer{}, err
	}
	updated := *existing
	if req.FullName != nil {
		name := strings.TrimSpace(*req.FullName)
		if name == "" {
			return domain.Customer{}, invalidField("full_name", "is required")
		}
		updated.FullName = name
	}
	if req.Phone != nil {
		updated.Phone = *req.Phone
	}
	if req.Email != nil {
		updated.Email = *req.Email
	}
	if req.Address != nil {
		updated.Address = strings.TrimSpace(*req.Address)
	}
	if req.Notes != nil {
		updated.Notes = strings.TrimSpace(*req.Notes)
	}
	if req.IsActive != nil {
		updated.IsActive = *req.IsActive
	}

	saved, err := s.repo.UpdateCustomer(ctx, updated)
	if err != nil {
		return domain.Customer{}, err
	}

	s.logAudit(ctx, "customer_update", "customer", saved.ID, fmt.Sprintf("name=%s,active=%t", saved.FullName, saved.IsActive))
	return *saved, nil
}

func (s *Service) DeleteCustomer(ctx context.Context, id string) error {
	inactive := false
	_, err := s.UpdateCustomer(ctx, id, domain.CustomerUpdateRequest{IsActive: &inactive})
	return err
}

func (s *Service) ListSuppliers(ctx context.Context, activeOnly bool) ([]domain.Supplier, error) {
	if _, err := s.requireRole(ctx, rolesInventory...); err != nil {
		return nil, err
	}
	return s.repo.ListSuppliers(ctx, activeOnly)
}

func (s *Service) GetSupplier(ctx context.Context, id string) (domain.Supplier, error) {
	if _, err := s.requireRole(ctx, rolesInventory...); err != nil {
		return domain.Supplier{}, err
	}
	supplier, err := s.repo.GetSupplier(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.Supplier{}, err
	}
	return *supplier, nil
}

func (s *Service) CreateSupplier(ctx context.Context, req domain.SupplierCreateRequest) (domain.Supplier, error) {
	if _, err := s.requireRole(ctx, rolesManagement...); err != nil {
		return domain.Supplier{}, err
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	if err := s.check(req); err != nil {
		return domain.Supplier{}, err
	}

	created, err := s.repo.CreateSupplier(ctx, domain.Supplier{
		Name:          req.Name,
		ContactPerson: strings.TrimSpace(req.ContactPerson),
		Phone:         strings.TrimSpace(req.Phone),
		Email:         req.Email,
		Address:       strings.TrimSpace(req.Address),
		Notes:         strings.TrimSpace(req.Notes),
	})
	if err != nil {
		return domain.Supplier{}, err
	}

	s.logAudit(ctx, "supplier_create", "supplier", created.ID, "name="+created.Name)
	return *created, nil
}

func (s *Service) UpdateSupplier(ctx context.Context, id string, req domain.SupplierUpdateRequest) (domain.Supplier, error) {
	if _, err := s.requireRole(ctx, rolesManagement...); err != nil {
		return domain.Supplier{}, err
	}
	if req.Email != nil {
		email := strings.TrimSpace(*req.Email)
		req.Email = &email
	}
	if err := s.check(req); err != nil {
		return domain.Supplier{}, err
	}

	existing, err := s.repo.GetSupplier(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.Supplier{}, err
	}
	updated := *existing
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Supplier{}, invalidField("name", "is required")
		}
		updated.Name = name
	}
	if req.ContactPerson != nil {
		updated.ContactPerson = strings.TrimSpace(*req.ContactPerson)
	}
	if req.Phone != nil {
		updated.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.Email != nil {
		updated.Email = *req.Email
	}
	if req.Address != nil {
		updated.Address = strings.TrimSpace(*req.Address)
	}
	if req.Notes != nil {
		updated.Notes = strings.TrimSpace(*req.Notes)
	}
	if req.IsActive != nil {
		updated.IsActive = *req.IsActive
	}

	saved, err := s.repo.UpdateSupplier(ctx, updated)
	if err != nil {
		return domain.Supplier{}, err
	}

	s.logAudit(ctx, "supplier_update", "supplier", saved.ID, fmt.Sprintf("name=%s,active=%t", saved.Name, saved.IsActive))
	return *saved, nil
}

func (s *Service) DeleteSupplier(ctx context.Context, id string) error {
	inactive := false
	_, err := s.UpdateSupplier(ctx, id, domain.SupplierUpdateRequest{IsActive: &inactive})
	return err
}
