package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"fptmart/backend/internal/domain"
	"fptmart/backend/internal/store"
)

func TestCreateCustomerPhoneRule(t *testing.T) {
	cases := []struct {
		name  string
		phone string
		valid bool
	}{
		{name: "ten digits", phone: "0901234567", valid: true},
		{name: "trimmed", phone: "  0901234568 ", valid: true},
		{name: "empty", phone: "", valid: true},
		{name: "nine digits", phone: "090123456"},
		{name: "eleven digits", phone: "09012345678"},
		{name: "letters", phone: "09012345ab"},
		{name: "spaces inside", phone: "090 123 45"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, Options{})
			created, err := f.svc.CreateCustomer(asRole(domain.RoleCashier), domain.CustomerCreateRequest{
				FullName: "Lê Thị Hoa",
				Phone:    tc.phone,
			})
			if !tc.valid {
				requireInvalidField(t, err, "phone")
				return
			}
			require.NoError(t, err)
			require.Equal(t, strings.TrimSpace(tc.phone), created.Phone)
			require.True(t, created.IsActive)
		})
	}
}

func TestCustomerPhoneIsUnique(t *testing.T) {
	f := newFixture(t, Options{})
	cashier := asRole(domain.RoleCashier)

	first, err := f.svc.CreateCustomer(cashier, domain.CustomerCreateRequest{FullName: "Lê Thị Hoa", Phone: "0901234567"})
	require.NoError(t, err)
	_, err = f.svc.CreateCustomer(cashier, domain.CustomerCreateRequest{FullName: "Phạm Văn Nam", Phone: "0901234567"})
	require.ErrorIs(t, err, store.ErrConflict)

	second, err := f.svc.CreateCustomer(cashier, domain.CustomerCreateRequest{FullName: "Phạm Văn Nam", Phone: "0907654321"})
	require.NoError(t, err)
	taken := first.Phone
	_, err = f.svc.UpdateCustomer(asRole(domain.RoleManager), second.ID, domain.CustomerUpdateRequest{Phone: &taken})
	require.ErrorIs(t, err, store.ErrConflict)

	found, err := f.svc.GetCustomerByPhone(cashier, " 0901234567 ")
	require.NoError(t, err)
	require.Equal(t, first.ID, found.ID)
	_, err = f.svc.GetCustomerByPhone(cashier, "0999999999")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestDeleteCustomerHidesFromActiveList(t *testing.T) {
	f := newFixture(t, Options{})
	manager := asRole(domain.RoleManager)

	created, err := f.svc.CreateCustomer(manager, domain.CustomerCreateRequest{FullName: "Lê Thị Hoa", Phone: "0901234567"})
	require.NoError(t, err)
	require.NoError(t, f.svc.DeleteCustomer(manager, created.ID))

	active, err := f.svc.ListCustomers(manager, "", false)
	require.NoError(t, err)
	for _, c := range active {
		require.NotEqual(t, created.ID, c.ID)
	}
	all, err := f.svc.ListCustomers(manager, "", true)
	require.NoError(t, err)
	require.Len(t, all, len(active)+1)

	hidden, err := f.svc.GetCustomer(manager, created.ID)
	require.NoError(t, err)
	require.False(t, hidden.IsActive)

	require.ErrorIs(t, f.svc.DeleteCustomer(asRole(domain.RoleCashier), created.ID), ErrForbidden)
}

func TestSupplierLifecycle(t *testing.T) {
	f := newFixture(t, Options{})
	manager := asRole(domain.RoleManager)

	created, err := f.svc.CreateSupplier(manager, domain.SupplierCreateRequest{
		Name:          "  Công ty CP Sữa Việt Nam ",
		ContactPerson: "Võ Minh C",
		Phone:         "0283333444",
		Email:         "sales@vinamilk.vn",
	})
	require.NoError(t, err)
	require.Equal(t, "Công ty CP Sữa Việt Nam", created.Name)
	require.True(t, created.IsActive)

	_, err = f.svc.CreateSupplier(manager, domain.SupplierCreateRequest{Name: "Thiếu email", Email: "not-an-email"})
	requireInvalidField(t, err, "email")
	_, err = f.svc.CreateSupplier(asRole(domain.RoleStockKeeper), domain.SupplierCreateRequest{Name: "Kho"})
	require.ErrorIs(t, err, ErrForbidden)

	contact := "Đỗ Thu D"
	blank := "  "
	updated, err := f.svc.UpdateSupplier(manager, created.ID, domain.SupplierUpdateRequest{ContactPerson: &contact})
	require.NoError(t, err)
	require.Equal(t, contact, updated.ContactPerson)
	require.Equal(t, created.Name, updated.Name)
	_, err = f.svc.UpdateSupplier(manager, created.ID, domain.SupplierUpdateRequest{Name: &blank})
	requireInvalidField(t, err, "name")

	listed, err := f.svc.ListSuppliers(asRole(domain.RoleStockKeeper), true)
	require.NoError(t, err)
	require.Len(t, listed, 3)

	require.NoError(t, f.svc.DeleteSupplier(manager, created.ID))
	listed, err = f.svc.ListSuppliers(manager, true)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	for _, sup := range listed {
		require.NotEqual(t, created.ID, sup.ID)
	}
	listed, err = f.svc.ListSuppliers(manager, false)
	require.NoError(t, err)
	require.Len(t, listed, 3)

	_, err = f.svc.GetSupplier(manager, "sup-missing")
	require.ErrorIs(t, err, store.ErrNotFound)
}
