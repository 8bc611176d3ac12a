package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-survey-backend/internal/domain"
)

// CreateAuditLog appends an audit entry.
func CreateAuditLog(ctx context.Context, db *gorm.DB, l *domain.AuditLog) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if l.Timestamp.IsZero() {
		l.Timestamp = time.Now().UTC()
	}
	return db.WithContext(ctx).Create(l).Error
}

// CountAuditLogs returns the number of entries matching f.
func CountAuditLogs(ctx context.Context, db *gorm.DB, f domain.AuditFilter) (int64, error) {
	var total int64
	err := auditScope(db.WithContext(ctx).Model(&domain.AuditLog{}), f).Count(&total).Error
	return total, err
}

// ListAuditLogsPage returns a page of entries matching f, newest first.
func ListAuditLogsPage(ctx context.Context, db *gorm.DB, f domain.AuditFilter, offset, limit int) ([]domain.AuditLog, error) {
	var out []domain.AuditLog
	err := auditScope(db.WithContext(ctx), f).
		Order("timestamp desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

func auditScope(q *gorm.DB, f domain.AuditFilter) *gorm.DB {
	if f.Entity != "" {
		q = q.Where("entity = ?", string(f.Entity))
	}
	if f.EntityID != "" {
		q = q.Where("entity_id = ?", f.EntityID)
	}
	if f.UserID != "" {
		q = q.Where("user_id = ?", f.UserID)
	}
	return q
}
