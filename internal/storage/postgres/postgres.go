// Package postgres stores portfolio prices in PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"portfolioquotes/internal/portfolio"
)

// Open connects to url and verifies the connection.
func Open(ctx context.Context, url string, maxOpenConns int) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if maxOpenConns > 0 {
		db.SetMaxOpenConns(maxOpenConns)
		db.SetMaxIdleConns(maxOpenConns / 2)
	}
	db.SetConnMaxLifetime(30 * time.Minute)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// Repository implements portfolio.Repository over the assets,
// portfolio_assets, portfolios and asset_classes tables.
type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) PortfolioTickers(ctx context.Context, portfolioID int64) ([]string, error) {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM portfolios WHERE id = $1)`, portfolioID); err != nil {
		return nil, fmt.Errorf("checking portfolio %d: %w", portfolioID, err)
	}
	if !exists {
		return nil, portfolio.ErrNotFound
	}

	query := `
	SELECT DISTINCT a.ticker
	FROM portfolio_assets pa
	JOIN assets a ON a.id = pa.asset_id
	WHERE pa.portfolio_id = $1
	ORDER BY a.ticker
	`
	var tickers []string
	if err := r.db.SelectContext(ctx, &tickers, query, portfolioID); err != nil {
		return nil, fmt.Errorf("listing tickers of portfolio %d: %w", portfolioID, err)
	}
	return tickers, nil
}

func (r *Repository) SavePrice(ctx context.Context, ticker string, price decimal.Decimal, source string, at time.Time) error {
	query := `
	UPDATE assets
	SET last_price = $1, last_price_updated = $2, price_source = $3
	WHERE ticker = $4
	`
	if _, err := r.db.ExecContext(ctx, query, price, at, source, ticker); err != nil {
		return fmt.Errorf("saving price of %s: %w", ticker, err)
	}
	return nil
}

func (r *Repository) TouchPortfolio(ctx context.Context, portfolioID int64, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE portfolios SET last_prices_updated = $1 WHERE id = $2`, at, portfolioID)
	if err != nil {
		return fmt.Errorf("touching portfolio %d: %w", portfolioID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return portfolio.ErrNotFound
	}
	return nil
}

func (r *Repository) Targets(ctx context.Context, portfolioID, classID int64) (portfolio.Targets, error) {
	query := `
	SELECT COALESCE(p.total_value, 0) AS total_value, COALESCE(c.target_percentage, 0) AS target_percentage
	FROM portfolios p
	JOIN asset_classes c ON c.id = $2
	WHERE p.id = $1
	`
	var t portfolio.Targets
	err := r.db.GetContext(ctx, &t, query, portfolioID, classID)
	if errors.Is(err, sql.ErrNoRows) {
		return portfolio.Targets{}, portfolio.ErrNotFound
	}
	if err != nil {
		return portfolio.Targets{}, fmt.Errorf("loading targets of portfolio %d: %w", portfolioID, err)
	}
	return t, nil
}
