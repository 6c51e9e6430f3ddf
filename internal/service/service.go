package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"

	"fptmart/backend/internal/cache"
	"fptmart/backend/internal/domain"
	"fptmart/backend/internal/store"
	"fptmart/backend/internal/xid"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	ErrUnknownUser     = fmt.Errorf("unknown user: %w", ErrUnauthorized)
	ErrWrongPassword   = fmt.Errorf("wrong password: %w", ErrUnauthorized)
	ErrAccountDisabled = errors.New("account is disabled")
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

// Options wires the optional collaborators of a Service.
type Options struct {
	DashboardCache    cache.DashboardCache
	DashboardCacheTTL time.Duration
	Location          *time.Location
	Logger            *slog.Logger
	Now               func() time.Time
}

type Service struct {
	repo     store.Repository
	cache    cache.DashboardCache
	cacheTTL time.Duration
	loc      *time.Location
	logger   *slog.Logger
	validate *validator.Validate
	now      func() time.Time
}

func New(repo store.Repository, opts Options) *Service {
	if opts.DashboardCache == nil {
		opts.DashboardCache = cache.NoopDashboardCache{}
	}
	if opts.DashboardCacheTTL <= 0 {
		opts.DashboardCacheTTL = time.Minute
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Service{
		repo:     repo,
		cache:    opts.DashboardCache,
		cacheTTL: opts.DashboardCacheTTL,
		loc:      opts.Location,
		logger:   opts.Logger.With(slog.String("component", "service")),
		validate: newValidator(),
		now:      opts.Now,
	}
}

// Location is the zone that defines the store's calendar day.
func (s *Service) Location() *time.Location {
	return s.loc
}

// requireRole returns the actor when it holds one of roles.
func (s *Service) requireRole(ctx context.Context, roles ...string) (domain.Actor, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.UserID == "" {
		return domain.Actor{}, ErrUnauthorized
	}
	if len(roles) > 0 && !actor.HasAnyRole(roles...) {
		return domain.Actor{}, ErrForbidden
	}
	return actor, nil
}

// dayBounds returns [start of day, start of next day) in the store zone.
func (s *Service) dayBounds(t time.Time) (time.Time, time.Time) {
	local := t.In(s.loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.loc)
	return start, start.AddDate(0, 0, 1)
}

func (s *Service) logAudit(ctx context.Context, action string, entityType string, entityID string, detail string) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = domain.Actor{Username: "system"}
	}

	if err := s.repo.CreateAuditLog(ctx, domain.AuditLog{
		ID:            xid.New("audit"),
		ActorUserID:   actor.UserID,
		ActorUsername: actor.Username,
		Action:        action,
		EntityType:    entityType,
		EntityID:      entityID,
		Detail:        detail,
		CreatedAt:     s.now().UTC(),
	}); err != nil {
		s.logger.WarnContext(ctx, "write audit log failed",
			slog.String("action", action),
			slog.String("entity", entityType+"/"+entityID),
			slog.Any("error", err))
	}
}

// invalidateDashboard drops cached dashboard snapshots after a write that
// moves revenue or stock.
func (s *Service) invalidateDashboard(ctx context.Context) {
	if err := s.cache.Bump(ctx); err != nil {
		s.logger.WarnContext(ctx, "bump dashboard cache failed", slog.Any("error", err))
	}
}
