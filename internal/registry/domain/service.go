package domain

import (
	"context"
	"errors"
)

type SignupRequest struct {
	Email  string
	SiteID string
	Plan   string
}

type LinkSubscriptionRequest struct {
	SiteID          string
	SubscriptionRef string
}

type Service interface {
	Signup(ctx context.Context, req SignupRequest) (Registration, error)
	LinkSubscription(ctx context.Context, req LinkSubscriptionRequest) (Registration, error)
	GetBySiteID(ctx context.Context, siteID string) (*Registration, error)
	GetByEmail(ctx context.Context, email string) (*Registration, error)
}

var (
	ErrInvalidEmail  = errors.New("invalid_email")
	ErrInvalidSiteID = errors.New("invalid_site_id")
	ErrInvalidRef    = errors.New("invalid_subscription_ref")
	ErrSiteExists    = errors.New("site_exists")
	ErrNotFound      = errors.New("site_not_found")
	ErrAlreadyLinked = errors.New("subscription_already_linked")
)
