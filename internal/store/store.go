// Package store persists saved quotes in SQLite.
package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/pressly/goose/v3"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"apparel-pricing/core/pricing"
	"apparel-pricing/core/quote"
	apperr "apparel-pricing/internal/errors"
	"apparel-pricing/internal/logging"
	"apparel-pricing/internal/metrics"
)

const sqliteDialect = "sqlite3"

// fixed-width so stored timestamps sort as text
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

//go:embed migrations/*.sql
var migrationsFS embed.FS

// goose keeps its dialect and filesystem in package globals
var migrateMu sync.Mutex

// Store is the SQLite quote store
type Store struct {
	db      *sql.DB
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// Summary is a quote listing row
type Summary struct {
	ID            string          `json:"id"`
	CustomerName  string          `json:"customer_name"`
	ProductLine   string          `json:"product_line"`
	TotalQuantity int             `json:"total_quantity"`
	GrandTotal    decimal.Decimal `json:"grand_total"`
	CreatedAt     time.Time       `json:"created_at"`
	ExpiresAt     time.Time       `json:"expires_at"`
}

// Open opens (creating if needed) the database at path and runs migrations
func Open(path string, m *metrics.Metrics) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, apperr.Wrap(apperr.TypeConfig, "cannot create database directory", err).WithContext("path", dir)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, apperr.Internal("open sqlite database", err)
	}
	// one writer; also keeps the per-connection pragmas below in force
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`
		PRAGMA journal_mode = WAL;
		PRAGMA foreign_keys = ON;
		PRAGMA busy_timeout = 5000;
	`); err != nil {
		db.Close()
		return nil, apperr.Internal("set sqlite pragmas", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, apperr.Internal("ping sqlite database", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, metrics: m, logger: logging.Named("store")}, nil
}

func migrate(db *sql.DB) error {
	migrateMu.Lock()
	defer migrateMu.Unlock()

	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(gooseLogger{logging.Named("goose").Sugar()})
	if err := goose.SetDialect(sqliteDialect); err != nil {
		return apperr.Internal("set goose dialect", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return apperr.Internal("run goose up migrations", err)
	}
	return nil
}

type gooseLogger struct {
	s *zap.SugaredLogger
}

func (l gooseLogger) Printf(format string, v ...interface{}) { l.s.Debugf(format, v...) }
func (l gooseLogger) Fatalf(format string, v ...interface{}) { l.s.Fatalf(format, v...) }

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// Save assigns the record its ID from the per-day sequence and writes the
// quote with its items in one transaction.
func (s *Store) Save(ctx context.Context, rec *quote.Record) (string, error) {
	if rec == nil || rec.Result == nil {
		return "", apperr.Input("nothing to save")
	}
	if rec.ID != "" {
		return "", apperr.Inputf("quote %s is already saved", rec.ID)
	}

	resultJSON, err := json.Marshal(rec.Result)
	if err != nil {
		return "", apperr.Internal("encode pricing result", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", apperr.Internal("begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	day := rec.CreatedAt.UTC()
	var seq int
	if err := tx.QueryRowContext(ctx, `
		INSERT INTO quote_sequences (prefix, month_day, last_seq) VALUES (?, ?, 1)
		ON CONFLICT (prefix, month_day) DO UPDATE SET last_seq = last_seq + 1
		RETURNING last_seq`, rec.Prefix, day.Format("0102")).Scan(&seq); err != nil {
		return "", apperr.Internal("next quote sequence", err)
	}
	id := quote.FormatID(rec.Prefix, day, seq)

	r := rec.Result
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO quote_sessions (
			id, session_id, prefix, customer_name, customer_email, company,
			product_line, tier_label, total_quantity, subtotal, ltm_fee, setup_fees,
			grand_total, notes, result_json, created_at, expires_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, rec.SessionID, rec.Prefix, rec.Customer.Name, rec.Customer.Email, rec.Customer.Company,
		rec.ProductLine, r.TierLabel, r.TotalQuantity, r.Subtotal.String(), r.LTMFeeTotal.String(), r.SetupFeesTotal.String(),
		r.GrandTotal.String(), rec.Notes, string(resultJSON), formatTime(rec.CreatedAt), formatTime(rec.ExpiresAt),
	); err != nil {
		return "", apperr.Internal("insert quote session", err)
	}

	for _, item := range rec.Items() {
		sizes, err := json.Marshal(item.Sizes)
		if err != nil {
			return "", apperr.Internal("encode sizes", err)
		}
		prices, err := json.Marshal(item.UnitPrices)
		if err != nil {
			return "", apperr.Internal("encode unit prices", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO quote_items (quote_id, line_number, style_number, color, quantity, sizes_json, unit_prices, subtotal)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			id, item.LineNumber, item.StyleNumber, item.Color, item.Quantity, string(sizes), string(prices), item.Subtotal.String(),
		); err != nil {
			return "", apperr.Internal("insert quote item", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", apperr.Internal("commit quote", err)
	}

	rec.ID = id
	s.metrics.ObserveQuoteSaved(rec.Prefix)
	s.logger.Info("quote saved",
		zap.String("quote_id", id),
		zap.String("product_line", rec.ProductLine),
		zap.Int("quantity", r.TotalQuantity),
		zap.String("grand_total", r.GrandTotal.StringFixed(2)))
	return id, nil
}

// Get loads a saved quote
func (s *Store) Get(ctx context.Context, id string) (*quote.Record, error) {
	if _, _, _, err := quote.ParseID(id); err != nil {
		return nil, err
	}
	id = strings.ToUpper(strings.TrimSpace(id))

	var (
		rec                  quote.Record
		resultJSON           string
		createdAt, expiresAt string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, session_id, prefix, customer_name, customer_email, company,
		       product_line, notes, result_json, created_at, expires_at
		FROM quote_sessions WHERE id = ?`, id).Scan(
		&rec.ID, &rec.SessionID, &rec.Prefix, &rec.Customer.Name, &rec.Customer.Email, &rec.Customer.Company,
		&rec.ProductLine, &rec.Notes, &resultJSON, &createdAt, &expiresAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("quote", id)
	}
	if err != nil {
		return nil, apperr.Internal("load quote", err)
	}

	var result pricing.PricingResult
	if err := json.Unmarshal([]byte(resultJSON), &result); err != nil {
		return nil, apperr.Internal("decode pricing result", err)
	}
	rec.Result = &result

	if rec.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if rec.ExpiresAt, err = parseTime(expiresAt); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Items loads the stored line items of a quote
func (s *Store) Items(ctx context.Context, id string) ([]quote.Item, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT line_number, style_number, color, quantity, sizes_json, unit_prices, subtotal
		FROM quote_items WHERE quote_id = ? ORDER BY line_number`, id)
	if err != nil {
		return nil, apperr.Internal("query quote items", err)
	}
	defer rows.Close()

	var items []quote.Item
	for rows.Next() {
		var (
			item                    quote.Item
			sizes, prices, subtotal string
		)
		if err := rows.Scan(&item.LineNumber, &item.StyleNumber, &item.Color, &item.Quantity, &sizes, &prices, &subtotal); err != nil {
			return nil, apperr.Internal("scan quote item", err)
		}
		if err := json.Unmarshal([]byte(sizes), &item.Sizes); err != nil {
			return nil, apperr.Internal("decode sizes", err)
		}
		if err := json.Unmarshal([]byte(prices), &item.UnitPrices); err != nil {
			return nil, apperr.Internal("decode unit prices", err)
		}
		if item.Subtotal, err = decimal.NewFromString(subtotal); err != nil {
			return nil, apperr.Internal("decode subtotal", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Internal("iterate quote items", err)
	}
	if len(items) == 0 {
		return nil, apperr.NotFound("quote", id)
	}
	return items, nil
}

// List returns the most recent quotes, newest first
func (s *Store) List(ctx context.Context, limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, customer_name, product_line, total_quantity, grand_total, created_at, expires_at
		FROM quote_sessions ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, apperr.Internal("list quotes", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var (
			sum                         Summary
			total, createdAt, expiresAt string
		)
		if err := rows.Scan(&sum.ID, &sum.CustomerName, &sum.ProductLine, &sum.TotalQuantity, &total, &createdAt, &expiresAt); err != nil {
			return nil, apperr.Internal("scan quote", err)
		}
		if sum.GrandTotal, err = decimal.NewFromString(total); err != nil {
			return nil, apperr.Internal("decode grand total", err)
		}
		if sum.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		if sum.ExpiresAt, err = parseTime(expiresAt); err != nil {
			return nil, err
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, apperr.Internal("decode timestamp", err)
	}
	return t, nil
}
