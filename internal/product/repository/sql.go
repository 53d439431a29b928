package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/fekuna/omnipos-pricing-service/internal/model"
	"github.com/fekuna/omnipos-pricing-service/internal/product"
	"github.com/fekuna/omnipos-pricing-service/internal/product/dto"
	"github.com/jmoiron/sqlx"
)

type SQLRepository struct {
	DB *sqlx.DB
}

func NewSQLRepository(db *sqlx.DB) *SQLRepository {
	return &SQLRepository{DB: db}
}

const insertUnitQuery = `
    INSERT INTO product_units (
        id, product_id, unit_name, type, user_input, conversion_factor, barcode, price_usd,
        cost_price, profit_margin, discount_percentage, is_discount_active, exchange_rate_id, sort_order
    )
    VALUES (
        :id, :product_id, :unit_name, :type, :user_input, :conversion_factor, :barcode, :price_usd,
        :cost_price, :profit_margin, :discount_percentage, :is_discount_active, :exchange_rate_id, :sort_order
    )
`

func (r *SQLRepository) Create(ctx context.Context, p *model.Product) error {
	query := `
        INSERT INTO products (
            id, merchant_id, sku, barcode, name, unit_type, cost_price, price, profit_margin,
            tax_rate, discount_percentage, is_discount_active, exchange_rate_id,
            is_active, created_at, updated_at
        )
        VALUES (
            :id, :merchant_id, :sku, :barcode, :name, :unit_type, :cost_price, :price, :profit_margin,
            :tax_rate, :discount_percentage, :is_discount_active, :exchange_rate_id,
            :is_active, :created_at, :updated_at
        )
    `
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.NamedExecContext(ctx, query, p); err != nil {
		return err
	}
	if err := insertUnits(ctx, tx, p); err != nil {
		return err
	}
	return tx.Commit()
}

func insertUnits(ctx context.Context, tx *sqlx.Tx, p *model.Product) error {
	for i := range p.Units {
		u := &p.Units[i]
		u.ProductID = p.ID
		u.SortOrder = i
		if _, err := tx.NamedExecContext(ctx, insertUnitQuery, u); err != nil {
			return fmt.Errorf("insert unit %q: %w", u.UnitName, err)
		}
	}
	return nil
}

func (r *SQLRepository) FindByID(ctx context.Context, merchantID, id string) (*model.Product, error) {
	var p model.Product
	query := r.DB.Rebind(`SELECT * FROM products WHERE id = ? AND merchant_id = ? LIMIT 1`)
	err := r.DB.GetContext(ctx, &p, query, id, merchantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	units := []model.ProductUnit{}
	unitQuery := r.DB.Rebind(`SELECT * FROM product_units WHERE product_id = ? ORDER BY sort_order`)
	if err := r.DB.SelectContext(ctx, &units, unitQuery, p.ID); err != nil {
		return nil, err
	}
	p.Units = units
	return &p, nil
}

func (r *SQLRepository) FindAll(ctx context.Context, f *dto.ProductFilters) ([]model.Product, int, error) {
	conditions := []string{"merchant_id = ?"}
	args := []interface{}{f.MerchantID}

	if f.IsActive != nil {
		conditions = append(conditions, "is_active = ?")
		args = append(args, *f.IsActive)
	}
	if f.SearchQuery != "" {
		// LOWER/LIKE rather than ILIKE so the query also runs on SQLite.
		conditions = append(conditions, "(LOWER(name) LIKE ? OR LOWER(sku) LIKE ? OR LOWER(barcode) LIKE ?)")
		search := "%" + strings.ToLower(f.SearchQuery) + "%"
		args = append(args, search, search, search)
	}
	whereClause := " WHERE " + strings.Join(conditions, " AND ")

	var count int
	countQuery := r.DB.Rebind("SELECT count(*) FROM products" + whereClause)
	if err := r.DB.GetContext(ctx, &count, countQuery, args...); err != nil {
		return nil, 0, err
	}

	orderBy := "created_at DESC"
	if f.SortBy != "" {
		// Prevent SQL injection by whitelisting fields
		switch f.SortBy {
		case "name":
			orderBy = "name"
		case "price":
			orderBy = "price"
		default:
			orderBy = "created_at"
		}
		if strings.ToLower(f.SortOrder) == "asc" {
			orderBy += " ASC"
		} else {
			orderBy += " DESC"
		}
	}

	query := fmt.Sprintf("SELECT * FROM products%s ORDER BY %s, id", whereClause, orderBy)
	if f.PageSize > 0 {
		page := f.Page
		if page < 1 {
			page = 1
		}
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.PageSize, (page-1)*f.PageSize)
	}

	products := []model.Product{}
	if err := r.DB.SelectContext(ctx, &products, r.DB.Rebind(query), args...); err != nil {
		return nil, 0, err
	}
	if err := r.attachUnits(ctx, products); err != nil {
		return nil, 0, err
	}
	return products, count, nil
}

// attachUnits loads the units of a page of products in one query.
func (r *SQLRepository) attachUnits(ctx context.Context, products []model.Product) error {
	if len(products) == 0 {
		return nil
	}
	ids := make([]string, len(products))
	byID := make(map[string]*model.Product, len(products))
	for i := range products {
		ids[i] = products[i].ID
		products[i].Units = []model.ProductUnit{}
		byID[products[i].ID] = &products[i]
	}

	query, args, err := sqlx.In(`SELECT * FROM product_units WHERE product_id IN (?) ORDER BY product_id, sort_order`, ids)
	if err != nil {
		return err
	}
	var units []model.ProductUnit
	if err := r.DB.SelectContext(ctx, &units, r.DB.Rebind(query), args...); err != nil {
		return err
	}
	for _, u := range units {
		if p, ok := byID[u.ProductID]; ok {
			p.Units = append(p.Units, u)
		}
	}
	return nil
}

// Update rewrites the product row and replaces its units.
func (r *SQLRepository) Update(ctx context.Context, p *model.Product) error {
	query := `
        UPDATE products
        SET sku = :sku,
            barcode = :barcode,
            name = :name,
            unit_type = :unit_type,
            cost_price = :cost_price,
            price = :price,
            profit_margin = :profit_margin,
            tax_rate = :tax_rate,
            discount_percentage = :discount_percentage,
            is_discount_active = :is_discount_active,
            exchange_rate_id = :exchange_rate_id,
            is_active = :is_active,
            updated_at = :updated_at
        WHERE id = :id AND merchant_id = :merchant_id
    `
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.NamedExecContext(ctx, query, p)
	if err != nil {
		return err
	}
	if err := expectRow(res); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM product_units WHERE product_id = ?"), p.ID); err != nil {
		return err
	}
	if err := insertUnits(ctx, tx, p); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *SQLRepository) Delete(ctx context.Context, merchantID, id string) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM products WHERE id = ? AND merchant_id = ?"), id, merchantID)
	if err != nil {
		return err
	}
	if err := expectRow(res); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM product_units WHERE product_id = ?"), id); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *SQLRepository) IsSKUUnique(ctx context.Context, merchantID, sku, excludeID string) (bool, error) {
	return r.isUnique(ctx, "sku", merchantID, sku, excludeID)
}

func (r *SQLRepository) IsBarcodeUnique(ctx context.Context, merchantID, barcode, excludeID string) (bool, error) {
	if barcode == "" {
		return true, nil
	}
	return r.isUnique(ctx, "barcode", merchantID, barcode, excludeID)
}

// column is one of the fixed names above, never user input.
func (r *SQLRepository) isUnique(ctx context.Context, column, merchantID, value, excludeID string) (bool, error) {
	var count int
	query := fmt.Sprintf(`SELECT count(*) FROM products WHERE merchant_id = ? AND %s = ?`, column)
	args := []interface{}{merchantID, value}
	if excludeID != "" {
		query += ` AND id != ?`
		args = append(args, excludeID)
	}

	if err := r.DB.GetContext(ctx, &count, r.DB.Rebind(query), args...); err != nil {
		return false, err
	}
	return count == 0, nil
}

func expectRow(res sql.Result) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return product.ErrNotFound
	}
	return nil
}
