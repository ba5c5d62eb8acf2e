package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/99minutos/account-service/internal/core/domain"
)

// AccountRepository implements ports.UserStore. Role references are embedded
// in the account document.
type AccountRepository struct {
	col *mongo.Collection
}

func NewAccountRepository(db *mongo.Database) *AccountRepository {
	return &AccountRepository{col: db.Collection(collectionAccounts)}
}

type roleRef struct {
	ID   string `bson:"id"`
	Name string `bson:"name"`
}

type accountDocument struct {
	ID           string     `bson:"_id"`
	Username     string     `bson:"username"`
	Email        string     `bson:"email"`
	PasswordHash string     `bson:"password_hash"`
	Roles        []roleRef  `bson:"roles"`
	CreatedAt    time.Time  `bson:"created_at"`
	LastLoginAt  *time.Time `bson:"last_login_at,omitempty"`
	Version      int64      `bson:"version"`
}

func toAccountDocument(a *domain.Account) accountDocument {
	doc := accountDocument{
		ID:           a.ID,
		Username:     a.Username,
		Email:        a.Email,
		PasswordHash: a.PasswordHash,
		Roles:        make([]roleRef, 0, len(a.Roles)),
		CreatedAt:    a.CreatedAt.UTC(),
		LastLoginAt:  a.LastLoginAt,
		Version:      a.Version,
	}
	for _, r := range a.Roles {
		doc.Roles = append(doc.Roles, roleRef{ID: r.ID, Name: r.Name})
	}
	return doc
}

func (d accountDocument) toDomain() *domain.Account {
	a := &domain.Account{
		ID:           d.ID,
		Username:     d.Username,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		Roles:        make([]domain.Role, 0, len(d.Roles)),
		CreatedAt:    d.CreatedAt.UTC(),
		Version:      d.Version,
	}
	if d.LastLoginAt != nil {
		t := d.LastLoginAt.UTC()
		a.LastLoginAt = &t
	}
	for _, r := range d.Roles {
		a.Roles = append(a.Roles, domain.Role{ID: r.ID, Name: r.Name})
	}
	return a
}

func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *AccountRepository) FindByID(ctx context.Context, id string) (*domain.Account, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *AccountRepository) findOne(ctx context.Context, filter bson.M) (*domain.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc accountDocument
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrResourceNotFound
		}
		return nil, fmt.Errorf("find account: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *AccountRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	n, err := r.col.CountDocuments(ctx, bson.M{"email": email})
	if err != nil {
		return false, fmt.Errorf("count accounts by email: %w", err)
	}
	return n > 0, nil
}

// Save inserts a new account (Version 0) or replaces the stored one when its
// version still matches. The unique email index decides concurrent inserts.
func (r *AccountRepository) Save(ctx context.Context, a *domain.Account) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if a.Version == 0 {
		doc := toAccountDocument(a)
		doc.Version = 1
		if _, err := r.col.InsertOne(ctx, doc); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return domain.ErrDuplicateResource
			}
			return fmt.Errorf("insert account: %w", err)
		}
		a.Version = 1
		return nil
	}

	doc := toAccountDocument(a)
	doc.Version = a.Version + 1
	res, err := r.col.ReplaceOne(ctx, bson.M{"_id": a.ID, "version": a.Version}, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrDuplicateResource
		}
		return fmt.Errorf("update account: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrConcurrentModification
	}
	a.Version = doc.Version
	return nil
}

func (r *AccountRepository) Count(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	n, err := r.col.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("count accounts: %w", err)
	}
	return n, nil
}
