package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fekuna/omnipos-pricing-service/internal/exchangerate"
	"github.com/fekuna/omnipos-pricing-service/internal/exchangerate/dto"
	"github.com/fekuna/omnipos-pricing-service/internal/model"
	"github.com/jmoiron/sqlx"
)

// SQLRepository works against any sqlx driver; queries are written with ?
// placeholders and rebound for the driver in use.
type SQLRepository struct {
	DB *sqlx.DB
}

func NewSQLRepository(db *sqlx.DB) *SQLRepository {
	return &SQLRepository{DB: db}
}

func (r *SQLRepository) Create(ctx context.Context, rate *model.ExchangeRate) error {
	query := `
        INSERT INTO exchange_rates (
            id, merchant_id, name, currency_code, rate, is_active, is_default, created_at, updated_at
        )
        VALUES (
            :id, :merchant_id, :name, :currency_code, :rate, :is_active, :is_default, :created_at, :updated_at
        )
    `
	_, err := r.DB.NamedExecContext(ctx, query, rate)
	return err
}

func (r *SQLRepository) FindByID(ctx context.Context, merchantID, id string) (*model.ExchangeRate, error) {
	var rate model.ExchangeRate
	query := r.DB.Rebind(`SELECT * FROM exchange_rates WHERE id = ? AND merchant_id = ? LIMIT 1`)
	err := r.DB.GetContext(ctx, &rate, query, id, merchantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &rate, nil
}

func (r *SQLRepository) FindAll(ctx context.Context, f *dto.ExchangeRateFilters) ([]model.ExchangeRate, int, error) {
	conditions := []string{"merchant_id = ?"}
	args := []interface{}{f.MerchantID}

	if f.IsActive != nil {
		conditions = append(conditions, "is_active = ?")
		args = append(args, *f.IsActive)
	}
	whereClause := " WHERE " + strings.Join(conditions, " AND ")

	var count int
	countQuery := r.DB.Rebind("SELECT count(*) FROM exchange_rates" + whereClause)
	if err := r.DB.GetContext(ctx, &count, countQuery, args...); err != nil {
		return nil, 0, err
	}

	query := "SELECT * FROM exchange_rates" + whereClause + " ORDER BY is_default DESC, name ASC"
	if f.PageSize > 0 {
		page := f.Page
		if page < 1 {
			page = 1
		}
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.PageSize, (page-1)*f.PageSize)
	}

	rates := []model.ExchangeRate{}
	if err := r.DB.SelectContext(ctx, &rates, r.DB.Rebind(query), args...); err != nil {
		return nil, 0, err
	}
	return rates, count, nil
}

func (r *SQLRepository) Update(ctx context.Context, rate *model.ExchangeRate) error {
	query := `
        UPDATE exchange_rates
        SET name = :name,
            currency_code = :currency_code,
            rate = :rate,
            is_active = :is_active,
            updated_at = :updated_at
        WHERE id = :id AND merchant_id = :merchant_id
    `
	res, err := r.DB.NamedExecContext(ctx, query, rate)
	if err != nil {
		return err
	}
	return expectRow(res)
}

func (r *SQLRepository) Delete(ctx context.Context, merchantID, id string) error {
	query := r.DB.Rebind("DELETE FROM exchange_rates WHERE id = ? AND merchant_id = ?")
	res, err := r.DB.ExecContext(ctx, query, id, merchantID)
	if err != nil {
		return err
	}
	return expectRow(res)
}

func (r *SQLRepository) SetDefault(ctx context.Context, merchantID, id string) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now()
	clearQuery := tx.Rebind(`
		UPDATE exchange_rates SET is_default = ?, updated_at = ?
		WHERE merchant_id = ? AND is_default = ? AND id != ?
	`)
	if _, err := tx.ExecContext(ctx, clearQuery, false, now, merchantID, true, id); err != nil {
		return err
	}

	setQuery := tx.Rebind(`
		UPDATE exchange_rates SET is_default = ?, is_active = ?, updated_at = ?
		WHERE merchant_id = ? AND id = ?
	`)
	res, err := tx.ExecContext(ctx, setQuery, true, true, now, merchantID, id)
	if err != nil {
		return err
	}
	if err := expectRow(res); err != nil {
		return err
	}

	return tx.Commit()
}

func expectRow(res sql.Result) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return exchangerate.ErrNotFound
	}
	return nil
}
