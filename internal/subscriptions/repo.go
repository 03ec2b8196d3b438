package subscriptions

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tanvirahmed-dev/coursemint-backend/pkg/db/models"
	"github.com/tanvirahmed-dev/coursemint-backend/pkg/enums"
	"github.com/tanvirahmed-dev/coursemint-backend/pkg/pagination"
)

// Repository exposes subscription persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a subscriptions repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Create inserts a new subscription row. The unique index on user_id enforces
// at most one subscription per user; violations surface as driver errors.
func (r *Repository) Create(ctx context.Context, sub *models.Subscription) error {
	return r.db.WithContext(ctx).Create(sub).Error
}

// FindByUserID loads the user's subscription. Returns (nil, nil) when absent.
func (r *Repository) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Subscription, error) {
	var sub models.Subscription
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&sub).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

// FindByStripeSubscriptionID loads a row by vendor subscription id. Returns (nil, nil) when absent.
func (r *Repository) FindByStripeSubscriptionID(ctx context.Context, stripeSubID string) (*models.Subscription, error) {
	var sub models.Subscription
	if err := r.db.WithContext(ctx).Where("stripe_subscription_id = ?", stripeSubID).First(&sub).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

// DeleteByStripeSubscriptionID removes every row referencing the vendor
// subscription. Returns the number of rows removed so callers can tell a
// replay from a first delivery.
func (r *Repository) DeleteByStripeSubscriptionID(ctx context.Context, stripeSubID string) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("stripe_subscription_id = ?", stripeSubID).
		Delete(&models.Subscription{})
	return res.RowsAffected, res.Error
}

// DeleteByUserID removes the user's subscription rows.
func (r *Repository) DeleteByUserID(ctx context.Context, userID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&models.Subscription{})
	return res.RowsAffected, res.Error
}

// UpdateStatus moves a subscription to the given lifecycle status.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.SubscriptionStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("id = ?", id).
		UpdateColumn("status", status).Error
}

// ListUpdatedSince returns subscriptions touched after the cutoff, oldest
// first, capped at limit. Used by the reconciliation job.
func (r *Repository) ListUpdatedSince(ctx context.Context, cutoff time.Time, limit int) ([]models.Subscription, error) {
	var out []models.Subscription
	q := r.db.WithContext(ctx).Where("updated_at >= ?", cutoff).Order("updated_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ListPage returns a page of subscriptions with their users preloaded,
// newest first, plus the total row count.
func (r *Repository) ListPage(ctx context.Context, params pagination.Params) ([]models.Subscription, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Subscription{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var out []models.Subscription
	err := r.db.WithContext(ctx).
		Preload("User").
		Order("created_at DESC").
		Limit(params.Limit).
		Offset(params.Offset()).
		Find(&out).Error
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
