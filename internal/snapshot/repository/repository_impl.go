package repository

import (
	"context"

	"github.com/smallsites/sitebill/internal/snapshot/domain"
	"github.com/smallsites/sitebill/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) ReplaceAll(ctx context.Context, db *gorm.DB, rows []domain.AccountSnapshot) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(`DELETE FROM account_snapshots`).Error; err != nil {
			return err
		}
		for i := range rows {
			if err := insert(ctx, tx, &rows[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *repo) Upsert(ctx context.Context, db *gorm.DB, row *domain.AccountSnapshot) error {
	result := db.WithContext(ctx).Exec(
		`UPDATE account_snapshots
		 SET email = ?, site_id = ?, plan = ?, status = ?, amount = ?, currency = ?, provider = ?,
		     last_payment_date = ?, next_renewal_date = ?, overdue = ?, days_overdue = ?, updated_at = ?
		 WHERE subscription_ref = ?`,
		row.Email,
		row.SiteID,
		row.Plan,
		row.Status,
		row.Amount,
		row.Currency,
		row.Provider,
		row.LastPaymentDate,
		row.NextRenewalDate,
		row.Overdue,
		row.DaysOverdue,
		row.UpdatedAt,
		row.SubscriptionRef,
	)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}
	return insert(ctx, db, row)
}

func (r *repo) FindBySubscriptionRef(ctx context.Context, db *gorm.DB, subscriptionRef string) (*domain.AccountSnapshot, error) {
	return findOne(ctx, db, `subscription_ref = ?`, subscriptionRef)
}

func (r *repo) FindByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.AccountSnapshot, error) {
	return findOne(ctx, db, `email = ?`, email)
}

func (r *repo) List(ctx context.Context, db *gorm.DB, page pagination.Pagination) ([]*domain.AccountSnapshot, error) {
	size := page.PageSize
	if size <= 0 {
		size = 50
	}

	stmt := db.WithContext(ctx).Model(&domain.AccountSnapshot{})
	if page.PageToken != "" {
		cursor, err := pagination.DecodeCursor(page.PageToken)
		if err != nil {
			return nil, err
		}
		stmt = stmt.Where("subscription_ref > ?", cursor.ID)
	}

	var rows []*domain.AccountSnapshot
	err := stmt.
		Order("subscription_ref asc").
		Limit(size + 1).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func insert(ctx context.Context, db *gorm.DB, row *domain.AccountSnapshot) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO account_snapshots (subscription_ref, email, site_id, plan, status, amount, currency, provider, last_payment_date, next_renewal_date, overdue, days_overdue, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		row.SubscriptionRef,
		row.Email,
		row.SiteID,
		row.Plan,
		row.Status,
		row.Amount,
		row.Currency,
		row.Provider,
		row.LastPaymentDate,
		row.NextRenewalDate,
		row.Overdue,
		row.DaysOverdue,
		row.UpdatedAt,
	).Error
}

func findOne(ctx context.Context, db *gorm.DB, where string, arg any) (*domain.AccountSnapshot, error) {
	var row domain.AccountSnapshot
	err := db.WithContext(ctx).Raw(
		`SELECT subscription_ref, email, site_id, plan, status, amount, currency, provider, last_payment_date, next_renewal_date, overdue, days_overdue, updated_at
		 FROM account_snapshots WHERE `+where+` ORDER BY updated_at DESC LIMIT 1`,
		arg,
	).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.SubscriptionRef == "" {
		return nil, nil
	}
	return &row, nil
}
