package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/99minutos/account-service/internal/core/ports"
)

// AuditRepository is the append-only audit trail. It implements
// ports.AuditSink and ports.AuditReader.
type AuditRepository struct {
	col   *mongo.Collection
	clock ports.Clock
}

func NewAuditRepository(db *mongo.Database, clock ports.Clock) *AuditRepository {
	return &AuditRepository{col: db.Collection(collectionAudit), clock: clock}
}

type auditDocument struct {
	ID        string    `bson:"_id"`
	Action    string    `bson:"action"`
	Actor     string    `bson:"actor"`
	Target    string    `bson:"target,omitempty"`
	Detail    string    `bson:"detail,omitempty"`
	Timestamp time.Time `bson:"timestamp"`
}

// Append inserts a record stamped with the current time. Call it with the
// transaction ctx of the mutation being recorded.
func (r *AuditRepository) Append(ctx context.Context, action, actor, target, detail string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := auditDocument{
		ID:        uuid.NewString(),
		Action:    action,
		Actor:     actor,
		Target:    target,
		Detail:    detail,
		Timestamp: r.clock.Now().UTC(),
	}
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("append audit %s: %w", action, err)
	}
	return nil
}

func (r *AuditRepository) LatestTimestamp(ctx context.Context, action string) (*time.Time, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.FindOne().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetProjection(bson.M{"timestamp": 1})

	var doc auditDocument
	if err := r.col.FindOne(ctx, bson.M{"action": action}, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("latest audit %s: %w", action, err)
	}
	ts := doc.Timestamp.UTC()
	return &ts, nil
}
