package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/tanvirahmed-dev/coursemint-backend/pkg/enums"
)

// Subscription persists one user's active Stripe subscription. The unique index
// on user_id enforces the at-most-one-subscription invariant even under
// concurrent create calls.
type Subscription struct {
	ID                   uuid.UUID                `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID               uuid.UUID                `gorm:"column:user_id;type:uuid;not null;uniqueIndex:idx_subscriptions_user"`
	User                 *User                    `gorm:"foreignKey:UserID"`
	StripeSubscriptionID string                   `gorm:"column:stripe_subscription_id;not null;index"`
	StripePriceID        string                   `gorm:"column:stripe_price_id;not null"`
	PaymentMethodID      string                   `gorm:"column:payment_method_id;not null"`
	Interval             enums.BillingInterval    `gorm:"column:interval;type:text;not null"`
	Status               enums.SubscriptionStatus `gorm:"column:status;type:text;not null;default:'active'"`
	CreatedAt            time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}
