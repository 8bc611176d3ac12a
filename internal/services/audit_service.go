package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-survey-backend/internal/domain"
)

// Actor identifies who performs an operation. The zero value is an
// unauthenticated caller.
type Actor struct {
	UserID    string
	Email     string
	Role      domain.Role
	IP        string
	UserAgent string
}

// Authenticated reports whether the actor carries a user id.
func (a Actor) Authenticated() bool { return a.UserID != "" }

// AuditService records and lists audit entries.
type AuditService struct {
	Store AuditStore
	Now   func() time.Time
}

// Log appends an entry. Failures are logged and swallowed so auditing never
// fails the operation being audited. A nil receiver is a no-op.
func (s *AuditService) Log(ctx context.Context, actor Actor, action domain.AuditAction, entity domain.AuditEntity, entityID, entityName string, changes any) {
	if s == nil || s.Store == nil {
		return
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	entry := &domain.AuditLog{
		ID:         uuid.NewString(),
		UserID:     actor.UserID,
		UserEmail:  actor.Email,
		Action:     action,
		Entity:     entity,
		EntityID:   entityID,
		EntityName: entityName,
		Timestamp:  now().UTC(),
		IPAddress:  actor.IP,
		UserAgent:  actor.UserAgent,
	}
	if changes != nil {
		if b, err := json.Marshal(changes); err == nil {
			entry.Changes = b
		}
	}
	if err := s.Store.CreateAuditLog(ctx, entry); err != nil {
		loggerFrom(ctx).Warn().Err(err).
			Str("action", string(action)).
			Str("entity", string(entity)).
			Str("entity_id", entityID).
			Msg("audit log write failed")
	}
}

// ListPage returns audit entries matching f, newest first.
func (s *AuditService) ListPage(ctx context.Context, f domain.AuditFilter, page, pageSize int) ([]domain.AuditLog, int64, error) {
	tr := otel.Tracer("services/AuditService")
	ctx, span := tr.Start(ctx, "ListPage",
		trace.WithAttributes(
			attribute.String("audit.entity", string(f.Entity)),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	limit, offset := pageWindow(page, pageSize)

	total, err := s.Store.CountAuditLogs(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.AuditLog{}, 0, nil
	}
	items, err := s.Store.ListAuditLogsPage(ctx, f, offset, limit)
	return items, total, err
}

// pageWindow applies the listing defaults (page 1, 20 items per page) and
// returns the limit and offset to query with.
func pageWindow(page, pageSize int) (limit, offset int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	return pageSize, (page - 1) * pageSize
}

// loggerFrom returns the request-scoped logger stored in ctx, or the global
// logger when there is none.
func loggerFrom(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l != nil && l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &log.Logger
}
