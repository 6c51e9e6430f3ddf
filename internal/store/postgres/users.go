package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"fptmart/backend/internal/domain"
	"fptmart/backend/internal/store"
	"fptmart/backend/internal/xid"
)

const userColumns = `
	id, username, password_hash, full_name, email, phone, is_active,
	must_change_password, last_login_at, created_at, updated_at`

func (s *Store) ListRoles(ctx context.Context) ([]domain.Role, error) {
	roles := make([]domain.Role, 0, 4)
	err := s.db.SelectContext(ctx, &roles, `SELECT id, name, description FROM roles ORDER BY id`)
	return roles, mapError(err)
}

func (s *Store) GetRole(ctx context.Context, id string) (*domain.Role, error) {
	var role domain.Role
	if err := s.db.GetContext(ctx, &role, `SELECT id, name, description FROM roles WHERE id = $1`, id); err != nil {
		return nil, mapError(err)
	}
	return &role, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	users := make([]domain.UserAccount, 0, 16)
	if err := s.db.SelectContext(ctx, &users, `SELECT `+userColumns+` FROM users ORDER BY username`); err != nil {
		return nil, mapError(err)
	}
	if err := s.attachRoles(ctx, users); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*domain.UserAccount, error) {
	return s.getUser(ctx, `id = $1`, id)
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*domain.UserAccount, error) {
	return s.getUser(ctx, `lower(username) = lower($1)`, strings.TrimSpace(username))
}

func (s *Store) getUser(ctx context.Context, cond string, arg any) (*domain.UserAccount, error) {
	var user domain.UserAccount
	if err := s.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE `+cond, arg); err != nil {
		return nil, mapError(err)
	}
	users := []domain.UserAccount{user}
	if err := s.attachRoles(ctx, users); err != nil {
		return nil, err
	}
	return &users[0], nil
}

func (s *Store) attachRoles(ctx context.Context, users []domain.UserAccount) error {
	if len(users) == 0 {
		return nil
	}
	ids := make([]string, 0, len(users))
	for _, user := range users {
		ids = append(ids, user.ID)
	}

	var rows []struct {
		UserID string `db:"user_id"`
		Name   string `db:"name"`
	}
	if err := s.db.SelectContext(ctx, &rows, `
		SELECT ur.user_id, r.name
		FROM user_roles ur JOIN roles r ON r.id = ur.role_id
		WHERE ur.user_id = ANY($1)
		ORDER BY r.name
	`, ids); err != nil {
		return mapError(err)
	}

	byUser := make(map[string][]string, len(users))
	for _, row := range rows {
		byUser[row.UserID] = append(byUser[row.UserID], row.Name)
	}
	for i := range users {
		users[i].Roles = byUser[users[i].ID]
		if users[i].Roles == nil {
			users[i].Roles = []string{}
		}
	}
	return nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount, roleIDs []string) (*domain.UserAccount, error) {
	if user.Username == "" || user.PasswordHash == "" || user.FullName == "" {
		return nil, store.ErrInvalidInput
	}
	if user.ID == "" {
		user.ID = xid.New("usr")
	}
	user.IsActive = true
	user.CreatedAt = time.Now().UTC()

	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		if len(roleIDs) > 0 {
			var found int
			if err := tx.GetContext(ctx, &found, `SELECT COUNT(*) FROM roles WHERE id = ANY($1)`, roleIDs); err != nil {
				return err
			}
			if found != len(roleIDs) {
				return fmt.Errorf("role: %w", store.ErrNotFound)
			}
		}

		if _, err := tx.NamedExecContext(ctx, `
			INSERT INTO users (id, username, password_hash, full_name, email, phone, is_active, must_change_password, created_at)
			VALUES (:id, :username, :password_hash, :full_name, :email, :phone, :is_active, :must_change_password, :created_at)
		`, user); err != nil {
			return err
		}
		for _, roleID := range roleIDs {
			if _, err := tx.ExecContext(ctx, `INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, user.ID, roleID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetUser(ctx, user.ID)
}

func (s *Store) UpdateUser(ctx context.Context, user domain.UserAccount) (*domain.UserAccount, error) {
	if user.FullName == "" {
		return nil, store.ErrInvalidInput
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET full_name = $2, email = $3, phone = $4, is_active = $5, updated_at = now()
		WHERE id = $1
	`, user.ID, user.FullName, user.Email, user.Phone, user.IsActive)
	if err := requireRow(res, err); err != nil {
		return nil, err
	}
	return s.GetUser(ctx, user.ID)
}

func (s *Store) SetUserPassword(ctx context.Context, userID string, passwordHash string, mustChange bool) error {
	if strings.TrimSpace(passwordHash) == "" {
		return store.ErrInvalidInput
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET password_hash = $2, must_change_password = $3, updated_at = now()
		WHERE id = $1
	`, userID, passwordHash, mustChange)
	return requireRow(res, err)
}

func (s *Store) RecordLogin(ctx context.Context, userID string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET last_login_at = $2 WHERE id = $1`, userID, at.UTC())
	return requireRow(res, err)
}

func (s *Store) AssignRole(ctx context.Context, userID string, roleID string) error {
	if _, err := s.GetUser(ctx, userID); err != nil {
		return fmt.Errorf("user %s: %w", userID, err)
	}
	if _, err := s.GetRole(ctx, roleID); err != nil {
		return fmt.Errorf("role %s: %w", roleID, err)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2) ON CONFLICT DO NOTHING
	`, userID, roleID)
	return mapError(err)
}

func (s *Store) RemoveRole(ctx context.Context, userID string, roleID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM user_roles WHERE user_id = $1 AND role_id = $2`, userID, roleID)
	return requireRow(res, err)
}
