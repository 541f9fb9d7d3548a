package instrument

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
)

const schemaTimeout = 30 * time.Second

var tableNamePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

var recordColumns = []string{"universe_id", "pre_risk", "on_risk", "cusip", "isin", "created_at"}

type PostgresStore struct {
	db    *sql.DB
	table string

	schemaMu    sync.Mutex
	schemaReady bool
	applySchema func(ctx context.Context) error
}

func NewPostgresStore(db *sql.DB, table string) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("db is nil")
	}
	table = strings.TrimSpace(table)
	if table == "" {
		table = DefaultTable
	}
	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	s := &PostgresStore{db: db, table: table}
	s.applySchema = s.createTable
	return s, nil
}

// OpenPostgres opens a pgx-backed pool and verifies connectivity.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", strings.TrimSpace(dsn))
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return db, nil
}

// ensureSchema runs the DDL until it succeeds once. The statement is detached
// from the caller's cancellation so one aborted request cannot fail it for
// everyone else.
func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("db is nil")
	}
	s.schemaMu.Lock()
	defer s.schemaMu.Unlock()
	if s.schemaReady {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	ddlCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), schemaTimeout)
	defer cancel()
	if err := s.applySchema(ddlCtx); err != nil {
		return err
	}
	s.schemaReady = true
	return nil
}

func (s *PostgresStore) createTable(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schemaDDL(s.table))
	return err
}

func schemaDDL(table string) string {
	return fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %[1]s (
    universe_id BIGSERIAL PRIMARY KEY,
    pre_risk TEXT NOT NULL,
    on_risk TEXT NOT NULL,
    cusip TEXT NOT NULL,
    isin TEXT NOT NULL,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_%[1]s_cusip ON %[1]s(cusip);
`, table)
}

func (s *PostgresStore) Insert(ctx context.Context, fields Fields) (Record, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return Record{}, fmt.Errorf("ensure schema: %w", err)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Record{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query, args := insertQuery(s.table, fields)
	rec := Record{Fields: fields}
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&rec.UniverseID, &rec.CreatedAt); err != nil {
		return Record{}, fmt.Errorf("insert instrument: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return Record{}, fmt.Errorf("commit instrument: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) Get(ctx context.Context, universeID int64) (Record, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return Record{}, fmt.Errorf("ensure schema: %w", err)
	}
	query, args := getQuery(s.table, universeID)
	rec, err := scanRecord(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("get instrument %d: %w", universeID, err)
	}
	return rec, nil
}

func (s *PostgresStore) Latest(ctx context.Context, limit int) ([]Record, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	query, args := latestQuery(s.table, limit)
	return s.queryRecords(ctx, query, args)
}

func (s *PostgresStore) SearchByCUSIP(ctx context.Context, cusip string) ([]Record, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	query, args := searchQuery(s.table, strings.TrimSpace(cusip))
	return s.queryRecords(ctx, query, args)
}

func (s *PostgresStore) CountByPreRisk(ctx context.Context) ([]RiskCount, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	query, args := countQuery(s.table)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("count by pre_risk: %w", err)
	}
	defer rows.Close()

	out := make([]RiskCount, 0, 8)
	for rows.Next() {
		var c RiskCount
		if err := rows.Scan(&c.PreRisk, &c.Count); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PostgresStore) queryRecords(ctx context.Context, query string, args []any) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query instruments: %w", err)
	}
	defer rows.Close()

	out := make([]Record, 0, 16)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var rec Record
	err := row.Scan(&rec.UniverseID, &rec.PreRisk, &rec.OnRisk, &rec.CUSIP, &rec.ISIN, &rec.CreatedAt)
	return rec, err
}

func insertQuery(table string, f Fields) (string, []any) {
	return entsql.Dialect(dialect.Postgres).
		Insert(table).
		Columns("pre_risk", "on_risk", "cusip", "isin").
		Values(f.PreRisk, f.OnRisk, f.CUSIP, f.ISIN).
		Returning("universe_id", "created_at").
		Query()
}

func getQuery(table string, universeID int64) (string, []any) {
	return entsql.Dialect(dialect.Postgres).
		Select(recordColumns...).
		From(entsql.Table(table)).
		Where(entsql.EQ("universe_id", universeID)).
		Query()
}

func latestQuery(table string, limit int) (string, []any) {
	return entsql.Dialect(dialect.Postgres).
		Select(recordColumns...).
		From(entsql.Table(table)).
		OrderBy(entsql.Desc("created_at"), entsql.Desc("universe_id")).
		Limit(clampLimit(limit)).
		Query()
}

func searchQuery(table, cusip string) (string, []any) {
	return entsql.Dialect(dialect.Postgres).
		Select(recordColumns...).
		From(entsql.Table(table)).
		Where(entsql.EQ("cusip", cusip)).
		OrderBy(entsql.Desc("created_at"), entsql.Desc("universe_id")).
		Query()
}

func countQuery(table string) (string, []any) {
	return entsql.Dialect(dialect.Postgres).
		Select("pre_risk", entsql.Count("*")).
		From(entsql.Table(table)).
		GroupBy("pre_risk").
		OrderBy("pre_risk").
		Query()
}

// IsConstraintViolation reports whether err carries a Postgres integrity
// constraint violation (SQLSTATE class 23).
func IsConstraintViolation(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return strings.HasPrefix(pgErr.Code, "23")
}
