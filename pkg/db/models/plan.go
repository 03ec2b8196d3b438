package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/tanvirahmed-dev/coursemint-backend/pkg/enums"
)

// Plan captures the local metadata for a recurring billing tier. Each row maps
// 1:1 to a Stripe product+price pair; rows are deactivated, never deleted.
type Plan struct {
	ID              uuid.UUID             `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	PlanType        string                `gorm:"column:plan_type;not null"`
	Description     string                `gorm:"column:description;not null"`
	StripeProductID string                `gorm:"column:stripe_product_id;not null;uniqueIndex"`
	StripePriceID   string                `gorm:"column:stripe_price_id;not null;uniqueIndex"`
	Amount          int64                 `gorm:"column:amount;not null"`
	Currency        string                `gorm:"column:currency;not null"`
	Interval        enums.BillingInterval `gorm:"column:interval;type:text;not null"`
	Active          bool                  `gorm:"column:active;not null;default:true"`
	Features        pq.StringArray        `gorm:"column:features;type:text[];default:ARRAY[]::text[]"`
	CreatedAt       time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
