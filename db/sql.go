package db

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"matali-pricing/core/types"
	apperrors "matali-pricing/internal/errors"
)

const postgresSchema = `CREATE TABLE IF NOT EXISTS quotes (
	id             VARCHAR(36)   PRIMARY KEY,
	customer_name  VARCHAR(255)  NOT NULL,
	quote_date     TIMESTAMPTZ   NOT NULL,
	validity_days  INTEGER       NOT NULL,
	valid_until    TIMESTAMPTZ   NOT NULL,
	currency       VARCHAR(3)    NOT NULL,
	status         VARCHAR(16)   NOT NULL,
	total_revenue  NUMERIC(18,2) NOT NULL,
	total_cost     NUMERIC(18,2) NOT NULL,
	total_margin   NUMERIC(18,2) NOT NULL,
	margin_pct     NUMERIC(9,2)  NOT NULL,
	services_count INTEGER       NOT NULL,
	services       TEXT          NOT NULL,
	line_items     TEXT          NOT NULL,
	created_at     TIMESTAMPTZ   NOT NULL
)`

const mysqlSchema = `CREATE TABLE IF NOT EXISTS quotes (
	id             VARCHAR(36)   PRIMARY KEY,
	customer_name  VARCHAR(255)  NOT NULL,
	quote_date     DATETIME(6)   NOT NULL,
	validity_days  INT           NOT NULL,
	valid_until    DATETIME(6)   NOT NULL,
	currency       VARCHAR(3)    NOT NULL,
	status         VARCHAR(16)   NOT NULL,
	total_revenue  DECIMAL(18,2) NOT NULL,
	total_cost     DECIMAL(18,2) NOT NULL,
	total_margin   DECIMAL(18,2) NOT NULL,
	margin_pct     DECIMAL(9,2)  NOT NULL,
	services_count INT           NOT NULL,
	services       TEXT          NOT NULL,
	line_items     MEDIUMTEXT    NOT NULL,
	created_at     DATETIME(6)   NOT NULL
) CHARACTER SET utf8mb4`

const quoteColumns = `id, customer_name, quote_date, validity_days, valid_until, currency, status,
	total_revenue, total_cost, total_margin, margin_pct, services_count, services, line_items, created_at`

// SQLQuoteStore stores quotes in PostgreSQL or MySQL. Lines are kept as a JSON document.
type SQLQuoteStore struct {
	db     *sql.DB
	driver Driver
}

// OpenSQL connects, pings and creates the quotes table if missing
func OpenSQL(ctx context.Context, driver Driver, dsn string) (*SQLQuoteStore, error) {
	if dsn == "" {
		return nil, apperrors.Config("quote store dsn is required for driver "+string(driver), nil)
	}

	var err error
	switch driver {
	case DriverMySQL:
		dsn, err = mysqlDSN(dsn)
	case DriverPostgres:
		// lib/pq accepts both URLs and key=value strings
		if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
			_, err = pq.ParseURL(dsn)
		}
	default:
		return nil, apperrors.NotSupported("sql driver " + string(driver))
	}
	if err != nil {
		return nil, apperrors.Config("parse "+string(driver)+" dsn", err)
	}

	conn, err := sql.Open(string(driver), dsn)
	if err != nil {
		return nil, apperrors.Storage("open "+string(driver), err)
	}
	conn.SetMaxOpenConns(10)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(30 * time.Minute)

	s := &SQLQuoteStore{db: conn, driver: driver}
	if err := s.init(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLQuoteStore wraps an open connection; the schema must already exist
func NewSQLQuoteStore(conn *sql.DB, driver Driver) *SQLQuoteStore {
	return &SQLQuoteStore{db: conn, driver: driver}
}

// mysqlDSN forces the options the store depends on: time.Time scanning and
// affected-row counts that include unchanged rows.
func mysqlDSN(dsn string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", err
	}
	cfg.ParseTime = true
	cfg.ClientFoundRows = true
	cfg.Loc = time.UTC
	return cfg.FormatDSN(), nil
}

func (s *SQLQuoteStore) init(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return apperrors.Storage("connect to "+string(s.driver), err)
	}
	schema := postgresSchema
	if s.driver == DriverMySQL {
		schema = mysqlSchema
	}
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return apperrors.Storage("create quotes table", err)
	}
	return nil
}

// rebind rewrites ? placeholders as $1, $2... for PostgreSQL
func rebind(driver Driver, query string) string {
	if driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *SQLQuoteStore) Save(ctx context.Context, q *types.Quote) error {
	if err := checkNew(q); err != nil {
		return err
	}
	if q.CreatedAt.IsZero() {
		q.CreatedAt = time.Now().UTC()
	}
	lines, err := json.Marshal(q.Lines)
	if err != nil {
		return apperrors.Storage("marshal quote lines", err)
	}

	query := rebind(s.driver, `INSERT INTO quotes (`+quoteColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err = s.db.ExecContext(ctx, query,
		q.ID, q.Customer, q.Date.UTC(), q.ValidityDays, q.ValidUntil.UTC(), string(q.Currency), string(q.Status),
		q.Totals.Revenue, q.Totals.Cost, q.Totals.Margin, q.Totals.MarginPct,
		q.ServicesCount(), strings.Join(q.ServiceNames(), ", "), string(lines), q.CreatedAt.UTC())
	if isDuplicateKey(err) {
		return duplicate(q.ID)
	}
	if err != nil {
		return apperrors.Storage("insert quote", err)
	}
	return nil
}

func isDuplicateKey(err error) bool {
	var pqErr *pq.Error
	if stderrors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var myErr *mysql.MySQLError
	if stderrors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	return false
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuote(row rowScanner) (*types.Quote, error) {
	var (
		q                 types.Quote
		currency, status  string
		servicesCount     int
		services, lineDoc string
		revenue, cost     decimal.Decimal
		margin, marginPct decimal.Decimal
	)
	err := row.Scan(&q.ID, &q.Customer, &q.Date, &q.ValidityDays, &q.ValidUntil, &currency, &status,
		&revenue, &cost, &margin, &marginPct, &servicesCount, &services, &lineDoc, &q.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(lineDoc), &q.Lines); err != nil {
		return nil, apperrors.Storage("decode lines of quote "+q.ID, err)
	}
	q.Currency = types.Currency(currency)
	q.Status = types.QuoteStatus(status)
	q.Totals = types.QuoteTotals{Revenue: revenue, Cost: cost, Margin: margin, MarginPct: marginPct}
	q.Date = q.Date.UTC()
	q.ValidUntil = q.ValidUntil.UTC()
	q.CreatedAt = q.CreatedAt.UTC()
	return &q, nil
}

func (s *SQLQuoteStore) Get(ctx context.Context, id string) (*types.Quote, error) {
	row := s.db.QueryRowContext(ctx, rebind(s.driver, `SELECT `+quoteColumns+` FROM quotes WHERE id = ?`), id)
	q, err := scanQuote(row)
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFound("quote", id)
	}
	if err != nil {
		return nil, apperrors.Storage("get quote", err)
	}
	return q, nil
}

func (s *SQLQuoteStore) List(ctx context.Context, filter *ListFilter) ([]*types.Quote, error) {
	query, args := buildListQuery(s.driver, filter)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Storage("list quotes", err)
	}
	defer rows.Close()

	var out []*types.Quote
	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			return nil, apperrors.Storage("scan quote", err)
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Storage("list quotes", err)
	}
	return out, nil
}

func buildListQuery(driver Driver, f *ListFilter) (string, []any) {
	var (
		where []string
		args  []any
	)
	if f != nil {
		if f.Customer != "" {
			where = append(where, "LOWER(customer_name) = LOWER(?)")
			args = append(args, f.Customer)
		}
		if f.Status != "" {
			where = append(where, "status = ?")
			args = append(args, string(f.Status))
		}
		if !f.Since.IsZero() {
			where = append(where, "created_at >= ?")
			args = append(args, f.Since.UTC())
		}
		if !f.Until.IsZero() {
			where = append(where, "created_at <= ?")
			args = append(args, f.Until.UTC())
		}
	}

	query := `SELECT ` + quoteColumns + ` FROM quotes`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC, id ASC`

	if f != nil && (f.Limit > 0 || f.Offset > 0) {
		limit := f.Limit
		if limit <= 0 {
			// MySQL has no OFFSET without LIMIT
			limit = 1<<31 - 1
		}
		query += ` LIMIT ? OFFSET ?`
		args = append(args, limit, f.Offset)
	}
	return rebind(driver, query), args
}

func (s *SQLQuoteStore) UpdateStatus(ctx context.Context, id string, status types.QuoteStatus) (*types.Quote, error) {
	if err := checkStatus(status); err != nil {
		return nil, err
	}
	res, err := s.db.ExecContext(ctx, rebind(s.driver, `UPDATE quotes SET status = ? WHERE id = ?`), string(status), id)
	if err != nil {
		return nil, apperrors.Storage("update quote status", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, apperrors.Storage("update quote status", err)
	}
	if n == 0 {
		return nil, apperrors.NotFound("quote", id)
	}
	return s.Get(ctx, id)
}

func (s *SQLQuoteStore) Close() error {
	return s.db.Close()
}
