package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/99minutos/account-service/internal/core/domain"
)

// RoleRepository implements ports.RoleStore.
type RoleRepository struct {
	col *mongo.Collection
}

func NewRoleRepository(db *mongo.Database) *RoleRepository {
	return &RoleRepository{col: db.Collection(collectionRoles)}
}

type roleDocument struct {
	ID   string `bson:"_id"`
	Name string `bson:"name"`
}

func (r *RoleRepository) FindByName(ctx context.Context, name string) (*domain.Role, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc roleDocument
	if err := r.col.FindOne(ctx, bson.M{"name": name}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrResourceNotFound
		}
		return nil, fmt.Errorf("find role: %w", err)
	}
	return &domain.Role{ID: doc.ID, Name: doc.Name}, nil
}

func (r *RoleRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	n, err := r.col.CountDocuments(ctx, bson.M{"name": name})
	if err != nil {
		return false, fmt.Errorf("count roles: %w", err)
	}
	return n > 0, nil
}

func (r *RoleRepository) Save(ctx context.Context, role *domain.Role) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err := r.col.InsertOne(ctx, roleDocument{ID: role.ID, Name: role.Name}); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrDuplicateResource
		}
		return fmt.Errorf("insert role: %w", err)
	}
	return nil
}
