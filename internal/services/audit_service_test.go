package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/tbourn/go-survey-backend/internal/domain"
)

type failingAudit struct{ AuditStore }

func (failingAudit) CreateAuditLog(context.Context, *domain.AuditLog) error {
	return errors.New("disk full")
}

func TestAuditService_Log(t *testing.T) {
	st := newTestStore(t)
	s := &AuditService{Store: st, Now: clock}
	ctx := context.Background()

	actor := Actor{UserID: "u1", Email: "u1@example.com", IP: "10.0.0.1", UserAgent: "curl"}
	s.Log(ctx, actor, domain.ActionUpdate, domain.EntitySurvey, "s1", "Pulse", map[string]string{"title": "new"})

	logs := auditEntries(t, st, domain.AuditFilter{})
	if len(logs) != 1 {
		t.Fatalf("entries = %d", len(logs))
	}
	l := logs[0]
	if l.UserEmail != "u1@example.com" || l.IPAddress != "10.0.0.1" || !l.Timestamp.Equal(fixedNow) {
		t.Fatalf("entry: %+v", l)
	}
	var changes map[string]string
	if err := json.Unmarshal(l.Changes, &changes); err != nil || changes["title"] != "new" {
		t.Fatalf("changes: %s %v", l.Changes, err)
	}
}

func TestAuditService_Log_BestEffort(t *testing.T) {
	s := &AuditService{Store: failingAudit{}}
	// Must not panic or block.
	s.Log(context.Background(), Actor{}, domain.ActionCreate, domain.EntitySurvey, "s1", "", nil)

	var nilSvc *AuditService
	nilSvc.Log(context.Background(), Actor{}, domain.ActionCreate, domain.EntitySurvey, "s1", "", nil)
}

func TestAuditService_ListPage(t *testing.T) {
	st := newTestStore(t)
	s := &AuditService{Store: st}
	ctx := context.Background()

	items, total, err := s.ListPage(ctx, domain.AuditFilter{}, 1, 10)
	if err != nil || total != 0 || items == nil {
		t.Fatalf("empty: %v %d %v", items, total, err)
	}

	for i := 0; i < 3; i++ {
		s.Log(ctx, alice, domain.ActionCreate, domain.EntitySurvey, "s1", "", nil)
	}
	s.Log(ctx, bob, domain.ActionDelete, domain.EntityTemplate, "t1", "", nil)

	items, total, err = s.ListPage(ctx, domain.AuditFilter{Entity: domain.EntitySurvey}, 1, 2)
	if err != nil || total != 3 || len(items) != 2 {
		t.Fatalf("filtered page: len=%d total=%d err=%v", len(items), total, err)
	}
	items, total, err = s.ListPage(ctx, domain.AuditFilter{UserID: "bob"}, 0, 0)
	if err != nil || total != 1 || items[0].Entity != domain.EntityTemplate {
		t.Fatalf("by user: %+v %d %v", items, total, err)
	}
}
