package mongostore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tbourn/go-survey-backend/internal/domain"
	"github.com/tbourn/go-survey-backend/internal/repo"
)

// Store is the MongoDB implementation of the persistence layer.
type Store struct {
	db *mongo.Database
}

// New returns a Store over db. Call EnsureIndexes once at startup.
func New(db *mongo.Database) *Store { return &Store{db: db} }

func (s *Store) col(name string) *mongo.Collection { return s.db.Collection(name) }

// mapErr folds driver errors into the repo sentinels.
func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return repo.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return repo.ErrDuplicate
	}
	return err
}

// live matches documents that have not been soft-deleted.
func live(f bson.M) bson.M {
	f["deletedAt"] = nil
	return f
}

func statusFilter(field, v string) bson.M {
	f := bson.M{}
	if v != "" {
		f[field] = v
	}
	return f
}

// Surveys

func (s *Store) CreateSurvey(ctx context.Context, sv *domain.Survey) error {
	if sv.ID == "" {
		sv.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if sv.CreatedAt.IsZero() {
		sv.CreatedAt = now
	}
	sv.UpdatedAt = now
	if sv.Version == 0 {
		sv.Version = 1
	}
	if sv.Status == "" {
		sv.Status = domain.SurveyDraft
	}
	_, err := s.col(colSurveys).InsertOne(ctx, toSurveyDoc(sv))
	return mapErr(err)
}

func (s *Store) GetSurvey(ctx context.Context, id string) (*domain.Survey, error) {
	var d surveyDoc
	if err := s.col(colSurveys).FindOne(ctx, live(bson.M{"_id": id})).Decode(&d); err != nil {
		return nil, mapErr(err)
	}
	return d.toDomain(), nil
}

func (s *Store) CountSurveys(ctx context.Context, status string) (int64, error) {
	return s.col(colSurveys).CountDocuments(ctx, live(statusFilter("status", status)))
}

func (s *Store) ListSurveysPage(ctx context.Context, status string, offset, limit int) ([]domain.Survey, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))
	cur, err := s.col(colSurveys).Find(ctx, live(statusFilter("status", status)), opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var docs []surveyDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]domain.Survey, 0, len(docs))
	for _, d := range docs {
		out = append(out, *d.toDomain())
	}
	return out, nil
}

func (s *Store) UpdateSurvey(ctx context.Context, sv *domain.Survey) error {
	sv.UpdatedAt = time.Now().UTC()
	res, err := s.col(colSurveys).ReplaceOne(ctx, live(bson.M{"_id": sv.ID}), toSurveyDoc(sv))
	if err != nil {
		return mapErr(err)
	}
	if res.MatchedCount == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteSurvey(ctx context.Context, id string) error {
	return s.softDelete(ctx, colSurveys, id)
}

func (s *Store) SurveysStats(ctx context.Context, status string) (int64, *time.Time, error) {
	return s.stats(ctx, colSurveys, live(statusFilter("status", status)), "updatedAt")
}

func (s *Store) softDelete(ctx context.Context, col, id string) error {
	now := time.Now().UTC()
	res, err := s.col(col).UpdateOne(ctx, live(bson.M{"_id": id}), bson.M{"$set": bson.M{"deletedAt": now}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// stats returns the number of documents matching filter and the greatest
// value of the timestamp field among them.
func (s *Store) stats(ctx context.Context, col string, filter bson.M, field string) (int64, *time.Time, error) {
	n, err := s.col(col).CountDocuments(ctx, filter)
	if err != nil {
		return 0, nil, err
	}
	if n == 0 {
		return 0, nil, nil
	}
	opts := options.FindOne().
		SetSort(bson.D{{Key: field, Value: -1}}).
		SetProjection(bson.M{field: 1})
	var row bson.M
	if err := s.col(col).FindOne(ctx, filter, opts).Decode(&row); err != nil {
		return 0, nil, mapErr(err)
	}
	switch v := row[field].(type) {
	case time.Time:
		t := v.UTC()
		return n, &t, nil
	case interface{ Time() time.Time }:
		t := v.Time().UTC()
		return n, &t, nil
	}
	return n, nil, nil
}

// Responses

func (s *Store) CreateResponse(ctx context.Context, r *domain.Response) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	_, err := s.col(colResponses).InsertOne(ctx, toResponseDoc(r))
	return mapErr(err)
}

func (s *Store) GetResponse(ctx context.Context, id string) (*domain.Response, error) {
	var d responseDoc
	if err := s.col(colResponses).FindOne(ctx, bson.M{"_id": id}).Decode(&d); err != nil {
		return nil, mapErr(err)
	}
	r := d.toDomain()
	return &r, nil
}

func (s *Store) ListResponsesBySurvey(ctx context.Context, surveyID string) ([]domain.Response, error) {
	opts := options.Find().SetSort(bson.D{{Key: "submittedAt", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.col(colResponses).Find(ctx, bson.M{"surveyId": surveyID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var docs []responseDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]domain.Response, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

func (s *Store) DeleteResponse(ctx context.Context, id string) error {
	res, err := s.col(colResponses).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (s *Store) ResponsesStats(ctx context.Context, surveyID string) (int64, *time.Time, error) {
	return s.stats(ctx, colResponses, bson.M{"surveyId": surveyID}, "submittedAt")
}

// Templates

func (s *Store) CreateTemplate(ctx context.Context, t *domain.Template) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	t.CreatedAt, t.UpdatedAt = now, now
	_, err := s.col(colTemplates).InsertOne(ctx, toTemplateDoc(t))
	return mapErr(err)
}

func (s *Store) GetTemplate(ctx context.Context, id string) (*domain.Template, error) {
	var d templateDoc
	if err := s.col(colTemplates).FindOne(ctx, bson.M{"_id": id}).Decode(&d); err != nil {
		return nil, mapErr(err)
	}
	t := d.toDomain()
	return &t, nil
}

func (s *Store) ListTemplates(ctx context.Context, category string) ([]domain.Template, error) {
	opts := options.Find().SetSort(bson.D{{Key: "usageCount", Value: -1}, {Key: "createdAt", Value: -1}})
	cur, err := s.col(colTemplates).Find(ctx, statusFilter("category", category), opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var docs []templateDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]domain.Template, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

func (s *Store) DeleteTemplate(ctx context.Context, id string) error {
	res, err := s.col(colTemplates).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (s *Store) IncrementTemplateUsage(ctx context.Context, id string) error {
	res, err := s.col(colTemplates).UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$inc": bson.M{"usageCount": 1},
		"$set": bson.M{"updatedAt": time.Now().UTC()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// Workshops

func (s *Store) CreateWorkshop(ctx context.Context, w *domain.Workshop) error {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	w.CreatedAt, w.UpdatedAt = now, now
	if w.Version == 0 {
		w.Version = 1
	}
	_, err := s.col(colWorkshops).InsertOne(ctx, toWorkshopDoc(w))
	return mapErr(err)
}

func (s *Store) GetWorkshop(ctx context.Context, id string) (*domain.Workshop, error) {
	var d workshopDoc
	if err := s.col(colWorkshops).FindOne(ctx, live(bson.M{"_id": id})).Decode(&d); err != nil {
		return nil, mapErr(err)
	}
	w := d.toDomain()
	return &w, nil
}

func (s *Store) ListWorkshops(ctx context.Context, status string) ([]domain.Workshop, error) {
	opts := options.Find().SetSort(bson.D{{Key: "scheduledDate", Value: 1}, {Key: "createdAt", Value: -1}})
	cur, err := s.col(colWorkshops).Find(ctx, live(statusFilter("status", status)), opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var docs []workshopDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]domain.Workshop, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

func (s *Store) UpdateWorkshop(ctx context.Context, w *domain.Workshop) error {
	w.UpdatedAt = time.Now().UTC()
	res, err := s.col(colWorkshops).ReplaceOne(ctx, live(bson.M{"_id": w.ID}), toWorkshopDoc(w))
	if err != nil {
		return mapErr(err)
	}
	if res.MatchedCount == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteWorkshop(ctx context.Context, id string) error {
	return s.softDelete(ctx, colWorkshops, id)
}

// Users

func (s *Store) CreateUser(ctx context.Context, u *domain.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	if u.Role == "" {
		u.Role = domain.RoleParticipant
	}
	_, err := s.col(colUsers).InsertOne(ctx, userDoc{
		ID:           u.ID,
		Email:        u.Email,
		Name:         u.Name,
		Role:         string(u.Role),
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	})
	return mapErr(err)
}

func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return s.findUser(ctx, bson.M{"_id": id})
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.findUser(ctx, bson.M{"email": strings.ToLower(strings.TrimSpace(email))})
}

func (s *Store) findUser(ctx context.Context, f bson.M) (*domain.User, error) {
	var d userDoc
	if err := s.col(colUsers).FindOne(ctx, f).Decode(&d); err != nil {
		return nil, mapErr(err)
	}
	return d.toDomain(), nil
}

// Audit

func (s *Store) CreateAuditLog(ctx context.Context, l *domain.AuditLog) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if l.Timestamp.IsZero() {
		l.Timestamp = time.Now().UTC()
	}
	_, err := s.col(colAuditLogs).InsertOne(ctx, auditDoc{
		ID:         l.ID,
		UserID:     l.UserID,
		UserEmail:  l.UserEmail,
		Action:     string(l.Action),
		Entity:     string(l.Entity),
		EntityID:   l.EntityID,
		EntityName: l.EntityName,
		Changes:    string(l.Changes),
		Timestamp:  l.Timestamp.UTC(),
		IPAddress:  l.IPAddress,
		UserAgent:  l.UserAgent,
	})
	return mapErr(err)
}

func auditFilter(f domain.AuditFilter) bson.M {
	m := bson.M{}
	if f.Entity != "" {
		m["entity"] = string(f.Entity)
	}
	if f.EntityID != "" {
		m["entityId"] = f.EntityID
	}
	if f.UserID != "" {
		m["userId"] = f.UserID
	}
	return m
}

func (s *Store) CountAuditLogs(ctx context.Context, f domain.AuditFilter) (int64, error) {
	return s.col(colAuditLogs).CountDocuments(ctx, auditFilter(f))
}

func (s *Store) ListAuditLogsPage(ctx context.Context, f domain.AuditFilter, offset, limit int) ([]domain.AuditLog, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))
	cur, err := s.col(colAuditLogs).Find(ctx, auditFilter(f), opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var docs []auditDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]domain.AuditLog, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

// Idempotency

func (s *Store) GetIdempotency(ctx context.Context, userID, scope, key string, now time.Time) (*domain.Idempotency, error) {
	if strings.TrimSpace(scope) == "" || strings.TrimSpace(key) == "" {
		return nil, repo.ErrNotFound
	}
	var d idempotencyDoc
	err := s.col(colIdempotency).FindOne(ctx, bson.M{
		"userId":    userID,
		"scope":     scope,
		"key":       key,
		"expiresAt": bson.M{"$gt": now.UTC()},
	}).Decode(&d)
	if err != nil {
		return nil, mapErr(err)
	}
	return d.toDomain(), nil
}

func (s *Store) CreateIdempotency(ctx context.Context, userID, scope, key, resourceID string, status int, ttl time.Duration) (*domain.Idempotency, error) {
	now := time.Now().UTC()
	d := idempotencyDoc{
		ID:         uuid.NewString(),
		UserID:     userID,
		Scope:      scope,
		Key:        key,
		ResourceID: resourceID,
		Status:     status,
		CreatedAt:  now,
		ExpiresAt:  now.Add(ttl),
	}
	if _, err := s.col(colIdempotency).InsertOne(ctx, d); err != nil {
		return nil, mapErr(err)
	}
	return d.toDomain(), nil
}
