package repository

import (
	"context"
	"time"

	"github.com/smallsites/sitebill/internal/registry/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, registration *domain.Registration) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO registrations (id, email, site_id, plan, subscription_ref, status, manual_block, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		registration.ID,
		registration.Email,
		registration.SiteID,
		registration.Plan,
		registration.SubscriptionRef,
		registration.Status,
		registration.ManualBlock,
		registration.CreatedAt,
		registration.UpdatedAt,
	).Error
}

func (r *repo) FindBySiteID(ctx context.Context, db *gorm.DB, siteID string) (*domain.Registration, error) {
	var registration domain.Registration
	err := db.WithContext(ctx).Raw(
		`SELECT id, email, site_id, plan, subscription_ref, status, manual_block, created_at, updated_at
		 FROM registrations WHERE site_id = ?`,
		siteID,
	).Scan(&registration).Error
	if err != nil {
		return nil, err
	}
	if registration.ID == 0 {
		return nil, nil
	}
	return &registration, nil
}

func (r *repo) FindByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.Registration, error) {
	var registration domain.Registration
	err := db.WithContext(ctx).Raw(
		`SELECT id, email, site_id, plan, subscription_ref, status, manual_block, created_at, updated_at
		 FROM registrations WHERE email = ? ORDER BY created_at ASC LIMIT 1`,
		email,
	).Scan(&registration).Error
	if err != nil {
		return nil, err
	}
	if registration.ID == 0 {
		return nil, nil
	}
	return &registration, nil
}

func (r *repo) FindBySubscriptionRef(ctx context.Context, db *gorm.DB, subscriptionRef string) (*domain.Registration, error) {
	var registration domain.Registration
	err := db.WithContext(ctx).Raw(
		`SELECT id, email, site_id, plan, subscription_ref, status, manual_block, created_at, updated_at
		 FROM registrations WHERE subscription_ref = ? LIMIT 1`,
		subscriptionRef,
	).Scan(&registration).Error
	if err != nil {
		return nil, err
	}
	if registration.ID == 0 {
		return nil, nil
	}
	return &registration, nil
}

func (r *repo) ListLinked(ctx context.Context, db *gorm.DB) ([]domain.Registration, error) {
	var registrations []domain.Registration
	err := db.WithContext(ctx).
		Model(&domain.Registration{}).
		Where("subscription_ref IS NOT NULL AND subscription_ref <> ''").
		Order("id asc").
		Find(&registrations).Error
	if err != nil {
		return nil, err
	}
	return registrations, nil
}

func (r *repo) UpdateManualBlock(ctx context.Context, db *gorm.DB, siteID string, blocked bool) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE registrations SET manual_block = ?, updated_at = ? WHERE site_id = ?`,
		blocked,
		time.Now().UTC(),
		siteID,
	)
	return result.RowsAffected, result.Error
}

func (r *repo) UpdateSubscriptionRef(ctx context.Context, db *gorm.DB, siteID, subscriptionRef string) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE registrations SET subscription_ref = ?, updated_at = ? WHERE site_id = ? AND (subscription_ref IS NULL OR subscription_ref = '')`,
		subscriptionRef,
		time.Now().UTC(),
		siteID,
	)
	return result.RowsAffected, result.Error
}
