// Package domain contains the per-tenant signup registry.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Registration is one tenant's signup record. Created once at signup;
// subscription_ref is set once and joins the registry to the payment ledger;
// manual_block and updated_at are mutated only by the override service.
type Registration struct {
	ID              snowflake.ID `json:"id" gorm:"primaryKey"`
	Email           string       `json:"email" gorm:"type:text;not null;index"`
	SiteID          string       `json:"site_id" gorm:"type:text;not null;uniqueIndex"`
	Plan            string       `json:"plan" gorm:"type:text;not null"`
	SubscriptionRef string       `json:"subscription_ref" gorm:"type:text;index"`
	Status          string       `json:"status" gorm:"type:text"`
	ManualBlock     bool         `json:"manual_block" gorm:"not null;default:false"`
	CreatedAt       time.Time    `json:"created_at" gorm:"not null"`
	UpdatedAt       time.Time    `json:"updated_at" gorm:"not null"`
}

// TableName sets the database table name.
func (Registration) TableName() string { return "registrations" }
