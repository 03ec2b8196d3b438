package users

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tanvirahmed-dev/coursemint-backend/pkg/db/models"
)

// Repository exposes user-related persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a users repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// FindByID loads a user by their UUID. Returns (nil, nil) when absent.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// FindByEmail retrieves the user matching the provided email. Returns (nil, nil) when absent.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// UpdateStripeCustomerID persists the vendor customer id for the user.
func (r *Repository) UpdateStripeCustomerID(ctx context.Context, id uuid.UUID, customerID string) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("stripe_customer_id", customerID).Error
}

// SetSubscriptionsFlag marks whether the user currently holds a subscription.
func (r *Repository) SetSubscriptionsFlag(ctx context.Context, id uuid.UUID, active bool) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("subscriptions", active).Error
}

// ClearSubscriptionsByCustomerID resets the subscription flag for every user
// attached to the given Stripe customer. Used by webhook teardown.
func (r *Repository) ClearSubscriptionsByCustomerID(ctx context.Context, customerID string) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("stripe_customer_id = ?", customerID).
		UpdateColumn("subscriptions", false)
	return res.RowsAffected, res.Error
}
