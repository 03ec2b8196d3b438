package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/tanvirahmed-dev/coursemint-backend/pkg/enums"
)

// User represents the canonical identity entity, carrying the billing fields the
// subscription flows depend on: the lazily-provisioned Stripe customer id and
// the mirrored has-active-subscription flag.
type User struct {
	ID               uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Email            string         `gorm:"type:text;not null;uniqueIndex"`
	UserName         string         `gorm:"column:user_name;not null"`
	Role             enums.UserRole `gorm:"column:role;type:text;not null;default:'user'"`
	StripeCustomerID *string        `gorm:"column:stripe_customer_id;index"`
	Subscriptions    bool           `gorm:"column:subscriptions;not null;default:false"`
	CreatedAt        time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
