package plans

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tanvirahmed-dev/coursemint-backend/pkg/db/models"
)

// Repository exposes plan persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a plans repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Create inserts a new plan row.
func (r *Repository) Create(ctx context.Context, plan *models.Plan) error {
	return r.db.WithContext(ctx).Create(plan).Error
}

// FindByID loads a plan by its UUID. Returns (nil, nil) when absent.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Plan, error) {
	var plan models.Plan
	if err := r.db.WithContext(ctx).First(&plan, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &plan, nil
}

// FindByPriceID loads a plan by its Stripe price id. Returns (nil, nil) when absent.
func (r *Repository) FindByPriceID(ctx context.Context, priceID string) (*models.Plan, error) {
	var plan models.Plan
	if err := r.db.WithContext(ctx).Where("stripe_price_id = ?", priceID).First(&plan).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &plan, nil
}

// List returns all plans, newest first.
func (r *Repository) List(ctx context.Context) ([]models.Plan, error) {
	var out []models.Plan
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ListActive returns plans currently purchasable, newest first.
func (r *Repository) ListActive(ctx context.Context) ([]models.Plan, error) {
	var out []models.Plan
	if err := r.db.WithContext(ctx).Where("active = ?", true).Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// Update persists the mutable fields of an existing plan.
func (r *Repository) Update(ctx context.Context, plan *models.Plan) error {
	return r.db.WithContext(ctx).Save(plan).Error
}
