package mongostore

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// indexSpec lists the indexes each collection needs. The responses index is
// partial so anonymous submissions without an email (no dedupe key) never
// collide; idempotency records expire through a TTL index.
func indexSpec() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colSurveys: {
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
		colResponses: {
			{Keys: bson.D{{Key: "surveyId", Value: 1}, {Key: "submittedAt", Value: 1}}},
			{
				Keys: bson.D{{Key: "surveyId", Value: 1}, {Key: "dedupeKey", Value: 1}},
				Options: options.Index().
					SetName("ux_response_dedupe").
					SetUnique(true).
					SetPartialFilterExpression(bson.M{"dedupeKey": bson.M{"$type": "string"}}),
			},
		},
		colTemplates: {
			{Keys: bson.D{{Key: "category", Value: 1}}},
		},
		colWorkshops: {
			{Keys: bson.D{{Key: "status", Value: 1}}},
		},
		colUsers: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetName("ux_user_email").SetUnique(true)},
		},
		colAuditLogs: {
			{Keys: bson.D{{Key: "entity", Value: 1}, {Key: "entityId", Value: 1}}},
			{Keys: bson.D{{Key: "timestamp", Value: -1}}},
		},
		colIdempotency: {
			{
				Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "scope", Value: 1}, {Key: "key", Value: 1}},
				Options: options.Index().SetName("ux_user_scope_key").SetUnique(true),
			},
			{Keys: bson.D{{Key: "expiresAt", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(0)},
		},
	}
}

// EnsureIndexes creates every index the store relies on. It is idempotent.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	for col, models := range indexSpec() {
		if _, err := s.col(col).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", col, err)
		}
	}
	return nil
}
