package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"fptmart/backend/internal/domain"
	"fptmart/backend/internal/store"
)

func (s *Service) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	if _, err := s.requireRole(ctx, rolesAdmin...); err != nil {
		return nil, err
	}
	return s.repo.ListUsers(ctx)
}

func (s *Service) GetUser(ctx context.Context, id string) (domain.UserAccount, error) {
	if _, err := s.requireRole(ctx, rolesAdmin...); err != nil {
		return domain.UserAccount{}, err
	}
	user, err := s.repo.GetUser(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.UserAccount{}, err
	}
	return *user, nil
}

func (s *Service) ListRoles(ctx context.Context) ([]domain.Role, error) {
	if _, err := s.requireRole(ctx, rolesAdmin...); err != nil {
		return nil, err
	}
	return s.repo.ListRoles(ctx)
}

// CreateUser opens an account with a generated temporary password. The
// password is only ever returned here; the user must replace it on first login.
func (s *Service) CreateUser(ctx context.Context, req domain.UserCreateRequest) (domain.UserCreateResponse, error) {
	if _, err := s.requireRole(ctx, rolesAdmin...); err != nil {
		return domain.UserCreateResponse{}, err
	}
	req.Username = strings.TrimSpace(req.Username)
	req.FullName = strings.TrimSpace(req.FullName)
	req.Email = strings.TrimSpace(req.Email)
	req.Phone = strings.TrimSpace(req.Phone)
	req.RoleID = strings.TrimSpace(req.RoleID)
	if err := s.check(req); err != nil {
		return domain.UserCreateResponse{}, err
	}
	if strings.ContainsAny(req.Username, " \t\r\n") {
		return domain.UserCreateResponse{}, invalidField("username", "must not contain spaces")
	}

	var roleIDs []string
	if req.RoleID != "" {
		if _, err := s.repo.GetRole(ctx, req.RoleID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return domain.UserCreateResponse{}, invalidField("role_id", "does not exist")
			}
			return domain.UserCreateResponse{}, err
		}
		roleIDs = []string{req.RoleID}
	}

	password, err := generateTemporaryPassword()
	if err != nil {
		return domain.UserCreateResponse{}, fmt.Errorf("generate temporary password: %w", err)
	}
	hash, err := hashPassword(password)
	if err != nil {
		return domain.UserCreateResponse{}, fmt.Errorf("hash temporary password: %w", err)
	}

	created, err := s.repo.CreateUser(ctx, domain.UserAccount{
		Username:           req.Username,
		PasswordHash:       hash,
		FullName:           req.FullName,
		Email:              req.Email,
		Phone:              req.Phone,
		MustChangePassword: true,
	}, roleIDs)
	if err != nil {
		return domain.UserCreateResponse{}, err
	}

	s.logAudit(ctx, "user_create", "user", created.ID, fmt.Sprintf("username=%s,roles=%s", created.Username, strings.Join(created.Roles, "|")))
	return domain.UserCreateResponse{User: *created, TemporaryPassword: password}, nil
}

func (s *Service) UpdateUser(ctx context.Context, id string, req domain.UserUpdateRequest) (domain.UserAccount, error) {
	if _, err := s.requireRole(ctx, rolesAdmin...); err != nil {
		return domain.UserAccount{}, err
	}
	if req.Email != nil {
		email := strings.TrimSpace(*req.Email)
		req.Email = &email
	}
	if req.Phone != nil {
		phone := strings.TrimSpace(*req.Phone)
		req.Phone = &phone
	}
	if err := s.check(req); err != nil {
		return domain.UserAccount{}, err
	}

	existing, err := s.repo.GetUser(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.UserAccount{}, err
	}
	updated := *existing
	if req.FullName != nil {
		name := strings.TrimSpace(*req.FullName)
		if name == "" {
			return domain.UserAccount{}, invalidField("full_name", "is required")
		}
		updated.FullName = name
	}
	if req.Email != nil {
		if *req.Email == "" {
			return domain.UserAccount{}, invalidField("email", "is required")
		}
		updated.Email = *req.Email
	}
	if req.Phone != nil {
		updated.Phone = *req.Phone
	}

	saved, err := s.repo.UpdateUser(ctx, updated)
	if err != nil {
		return domain.UserAccount{}, err
	}

	s.logAudit(ctx, "user_update", "user", saved.ID, "username="+saved.Username)
	return *saved, nil
}

func (s *Service) ActivateUser(ctx context.Context, id string) (domain.UserAccount, error) {
	return s.setUserActive(ctx, id, true)
}

// DeactivateUser locks an account. Admins cannot lock themselves out.
func (s *Service) DeactivateUser(ctx context.Context, id string) (domain.UserAccount, error) {
	return s.setUserActive(ctx, id, false)
}

func (s *Service) setUserActive(ctx context.Context, id string, active bool) (domain.UserAccount, error) {
	actor, err := s.requireRole(ctx, rolesAdmin...)
	if err != nil {
		return domain.UserAccount{}, err
	}
	id = strings.TrimSpace(id)
	if !active && id == actor.UserID {
		return domain.UserAccount{}, fmt.Errorf("cannot deactivate your own account: %w", store.ErrInvalidState)
	}

	existing, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return domain.UserAccount{}, err
	}
	if existing.IsActive == active {
		return *existing, nil
	}
	updated := *existing
	updated.IsActive = active
	saved, err := s.repo.UpdateUser(ctx, updated)
	if err != nil {
		return domain.UserAccount{}, err
	}

	action := "user_deactivate"
	if active {
		action = "user_activate"
	}
	s.logAudit(ctx, action, "user", saved.ID, "username="+saved.Username)
	return *saved, nil
}

func (s *Service) ResetPassword(ctx context.Context, id string) (domain.PasswordResetResponse, error) {
	if _, err := s.requireRole(ctx, rolesAdmin...); err != nil {
		return domain.PasswordResetResponse{}, err
	}
	user, err := s.repo.GetUser(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.PasswordResetResponse{}, err
	}

	password, err := generateTemporaryPassword()
	if err != nil {
		return domain.PasswordResetResponse{}, fmt.Errorf("generate temporary password: %w", err)
	}
	hash, err := hashPassword(password)
	if err != nil {
		return domain.PasswordResetResponse{}, fmt.Errorf("hash temporary password: %w", err)
	}
	if err := s.repo.SetUserPassword(ctx, user.ID, hash, true); err != nil {
		return domain.PasswordResetResponse{}, err
	}

	s.logAudit(ctx, "user_reset_password", "user", user.ID, "username="+user.Username)
	return domain.PasswordResetResponse{UserID: user.ID, TemporaryPassword: password}, nil
}

func (s *Service) AssignRole(ctx context.Context, userID string, roleID string) (domain.UserAccount, error) {
	if _, err := s.requireRole(ctx, rolesAdmin...); err != nil {
		return domain.UserAccount{}, err
	}
	userID = strings.TrimSpace(userID)
	roleID = strings.TrimSpace(roleID)
	if err := s.repo.AssignRole(ctx, userID, roleID); err != nil {
		return domain.UserAccount{}, err
	}
	s.logAudit(ctx, "user_assign_role", "user", userID, "role="+roleID)
	return s.reloadUser(ctx, userID)
}

func (s *Service) RemoveRole(ctx context.Context, userID string, roleID string) (domain.UserAccount, error) {
	if _, err := s.requireRole(ctx, rolesAdmin...); err != nil {
		return domain.UserAccount{}, err
	}
	userID = strings.TrimSpace(userID)
	roleID = strings.TrimSpace(roleID)
	if err := s.repo.RemoveRole(ctx, userID, roleID); err != nil {
		return domain.UserAccount{}, err
	}
	s.logAudit(ctx, "user_remove_role", "user", userID, "role="+roleID)
	return s.reloadUser(ctx, userID)
}

func (s *Service) reloadUser(ctx context.Context, id string) (domain.UserAccount, error) {
	user, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return domain.UserAccount{}, err
	}
	return *user, nil
}

// Authenticate verifies a login. Errors distinguish an unknown user, a
// disabled account and a wrong password, in that order; callers facing the
// network should collapse the first and last.
func (s *Service) Authenticate(ctx context.Context, username string, password string) (domain.UserAccount, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return domain.UserAccount{}, ErrUnknownUser
	}

	user, err := s.repo.GetUserByUsername(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		return domain.UserAccount{}, ErrUnknownUser
	}
	if err != nil {
		return domain.UserAccount{}, err
	}
	if !user.IsActive {
		return domain.UserAccount{}, ErrAccountDisabled
	}

	ok, legacy := verifyPassword(user.PasswordHash, password)
	if !ok {
		return domain.UserAccount{}, ErrWrongPassword
	}

	ctx = WithActor(ctx, domain.Actor{UserID: user.ID, Username: user.Username, Roles: user.Roles})
	if legacy {
		if hash, err := hashPassword(password); err == nil {
			if err := s.repo.SetUserPassword(ctx, user.ID, hash, user.MustChangePassword); err != nil {
				s.logger.WarnContext(ctx, "upgrade legacy password failed", slog.String("user", user.Username), slog.Any("error", err))
			} else {
				user.PasswordHash = hash
			}
		}
	}

	at := s.now().UTC()
	if err := s.repo.RecordLogin(ctx, user.ID, at); err != nil {
		s.logger.WarnContext(ctx, "record login failed", slog.String("user", user.Username), slog.Any("error", err))
	} else {
		user.LastLoginAt = &at
	}

	s.logAudit(ctx, "login", "user", user.ID, "username="+user.Username)
	return *user, nil
}

func (s *Service) ChangePassword(ctx context.Context, req domain.ChangePasswordRequest) error {
	actor, err := s.requireRole(ctx)
	if err != nil {
		return err
	}
	if len([]rune(req.NewPassword)) < minPasswordLength {
		return invalidField("new_password", fmt.Sprintf("must be at least %d characters", minPasswordLength))
	}
	if req.NewPassword == req.OldPassword {
		return invalidField("new_password", "must differ from the current password")
	}

	user, err := s.repo.GetUser(ctx, actor.UserID)
	if err != nil {
		return err
	}
	if ok, _ := verifyPassword(user.PasswordHash, req.OldPassword); !ok {
		return invalidField("old_password", "is incorrect")
	}

	hash, err := hashPassword(req.NewPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.repo.SetUserPassword(ctx, user.ID, hash, false); err != nil {
		return err
	}

	s.logAudit(ctx, "user_change_password", "user", user.ID, "username="+user.Username)
	return nil
}

// CurrentUser returns the account behind the request actor.
func (s *Service) CurrentUser(ctx context.Context) (domain.UserAccount, error) {
	actor, err := s.requireRole(ctx)
	if err != nil {
		return domain.UserAccount{}, err
	}
	return s.reloadUser(ctx, actor.UserID)
}

// RefreshActor replaces the roles carried by a token with the account's
// current ones. Disabled or removed accounts are rejected, and a password
// reset issued after the token restricts it again.
func (s *Service) RefreshActor(ctx context.Context, actor domain.Actor) (domain.Actor, error) {
	user, err := s.repo.GetUser(ctx, actor.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Actor{}, ErrUnknownUser
	}
	if err != nil {
		return domain.Actor{}, err
	}
	if !user.IsActive {
		return domain.Actor{}, ErrAccountDisabled
	}
	return domain.Actor{
		UserID:             user.ID,
		Username:           user.Username,
		Roles:              user.Roles,
		MustChangePassword: actor.MustChangePassword || user.MustChangePassword,
	}, nil
}
