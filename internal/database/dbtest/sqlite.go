// Package dbtest opens throwaway SQLite databases carrying the service schema.
package dbtest

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// schema mirrors database/postgres/schema.sql in SQLite types.
const schema = `
CREATE TABLE exchange_rates (
    id            TEXT PRIMARY KEY,
    merchant_id   TEXT NOT NULL,
    name          TEXT NOT NULL,
    currency_code TEXT NOT NULL,
    rate          NUMERIC NOT NULL CHECK (rate > 0),
    is_active     BOOLEAN NOT NULL DEFAULT 1,
    is_default    BOOLEAN NOT NULL DEFAULT 0,
    created_at    TIMESTAMP NOT NULL,
    updated_at    TIMESTAMP NOT NULL
);
CREATE UNIQUE INDEX idx_exchange_rates_default ON exchange_rates (merchant_id) WHERE is_default;

CREATE TABLE products (
    id                  TEXT PRIMARY KEY,
    merchant_id         TEXT NOT NULL,
    sku                 TEXT NOT NULL,
    barcode             TEXT,
    name                TEXT NOT NULL,
    unit_type           TEXT NOT NULL DEFAULT 'UNID',
    cost_price          NUMERIC NOT NULL DEFAULT 0,
    price               NUMERIC NOT NULL DEFAULT 0,
    profit_margin       NUMERIC,
    tax_rate            NUMERIC NOT NULL DEFAULT 0,
    discount_percentage NUMERIC NOT NULL DEFAULT 0,
    is_discount_active  BOOLEAN NOT NULL DEFAULT 0,
    exchange_rate_id    TEXT,
    is_active           BOOLEAN NOT NULL DEFAULT 1,
    created_at          TIMESTAMP NOT NULL,
    updated_at          TIMESTAMP NOT NULL,
    UNIQUE (merchant_id, sku)
);

CREATE TABLE product_units (
    id                  TEXT PRIMARY KEY,
    product_id          TEXT NOT NULL REFERENCES products (id) ON DELETE CASCADE,
    unit_name           TEXT NOT NULL,
    type                TEXT NOT NULL DEFAULT '',
    user_input          NUMERIC,
    conversion_factor   NUMERIC NOT NULL CHECK (conversion_factor > 0),
    barcode             TEXT,
    price_usd           NUMERIC,
    cost_price          NUMERIC,
    profit_margin       NUMERIC,
    discount_percentage NUMERIC NOT NULL DEFAULT 0,
    is_discount_active  BOOLEAN NOT NULL DEFAULT 0,
    exchange_rate_id    TEXT,
    sort_order          INTEGER NOT NULL DEFAULT 0
);
`

// New returns an in-memory database with the schema applied. It is closed
// when the test ends.
func New(t testing.TB) *sqlx.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", uuid.NewString())
	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// One connection keeps every statement on the same in-memory database.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		t.Fatalf("apply schema: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}
