package tariffstore

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/triangle-intelligence/compliance-cli/internal/db"
	"github.com/triangle-intelligence/compliance-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

const tariffColumns = `hs_code, origin_country, section_301, section_232, section_201, reciprocal, verified_source, verified_date`

// preparedStatements lists queries to prepare on each new connection. The
// three lookup shapes dominate traffic: every BOM evaluation issues four
// category resolutions per component.
var preparedStatements = map[string]string{
	"lookup_exact":   `SELECT ` + tariffColumns + ` FROM policy_tariffs WHERE hs_code = $1 AND origin_country = $2`,
	"lookup_blanket": `SELECT ` + tariffColumns + ` FROM policy_tariffs WHERE hs_code = $1 AND origin_country = ''`,
	"lookup_chapter": `SELECT ` + tariffColumns + ` FROM policy_tariffs WHERE hs_code LIKE $1 AND origin_country = $2 ORDER BY verified_date DESC NULLS LAST LIMIT 1`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresFromPool wraps an existing pool. Used by tests with pgxmock.
func NewPostgresFromPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, closeFn: pool.Close}
}

// Pool returns the underlying database pool for subsystems that need
// direct query access.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS policy_tariffs (
	hs_code         TEXT NOT NULL,
	origin_country  TEXT NOT NULL DEFAULT '',
	section_301     DOUBLE PRECISION,
	section_232     DOUBLE PRECISION,
	section_201     DOUBLE PRECISION,
	reciprocal      DOUBLE PRECISION,
	verified_source TEXT,
	verified_date   TIMESTAMPTZ,
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (hs_code, origin_country)
);

CREATE INDEX IF NOT EXISTS idx_policy_tariffs_origin ON policy_tariffs(origin_country);
CREATE INDEX IF NOT EXISTS idx_policy_tariffs_prefix ON policy_tariffs(hs_code text_pattern_ops);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) Lookup(ctx context.Context, hsCode, originCountry string) (*model.PolicyTariffRecord, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+tariffColumns+` FROM policy_tariffs WHERE hs_code = $1 AND origin_country = $2`,
		hsCode, originCountry,
	)
	rec, err := scanRecord(row)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: lookup %s/%s", hsCode, originCountry)
	}
	return rec, nil
}

func (s *PostgresStore) LookupBlanket(ctx context.Context, hsCode string) (*model.PolicyTariffRecord, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+tariffColumns+` FROM policy_tariffs WHERE hs_code = $1 AND origin_country = ''`,
		hsCode,
	)
	rec, err := scanRecord(row)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: blanket lookup %s", hsCode)
	}
	return rec, nil
}

func (s *PostgresStore) LookupChapter(ctx context.Context, chapterPrefix, originCountry string) (*model.PolicyTariffRecord, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+tariffColumns+` FROM policy_tariffs WHERE hs_code LIKE $1 AND origin_country = $2 ORDER BY verified_date DESC NULLS LAST LIMIT 1`,
		chapterPrefix+"%", originCountry,
	)
	rec, err := scanRecord(row)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: chapter lookup %s/%s", chapterPrefix, originCountry)
	}
	return rec, nil
}

func (s *PostgresStore) Upsert(ctx context.Context, records []model.PolicyTariffRecord) (int64, error) {
	rows := make([][]any, len(records))
	for i, rec := range records {
		rows[i] = []any{
			rec.HSCode, rec.OriginCountry,
			rec.Section301, rec.Section232, rec.Section201, rec.Reciprocal,
			rec.VerifiedSource, rec.VerifiedDate,
		}
	}
	return db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table: "policy_tariffs",
		Columns: []string{
			"hs_code", "origin_country",
			"section_301", "section_232", "section_201", "reciprocal",
			"verified_source", "verified_date",
		},
		ConflictKeys: []string{"hs_code", "origin_country"},
	}, rows)
}

// scanRecord scans one tariff row, translating ErrNoRows to (nil, nil).
func scanRecord(row pgx.Row) (*model.PolicyTariffRecord, error) {
	var rec model.PolicyTariffRecord
	var verifiedSource *string
	err := row.Scan(
		&rec.HSCode, &rec.OriginCountry,
		&rec.Section301, &rec.Section232, &rec.Section201, &rec.Reciprocal,
		&verifiedSource, &rec.VerifiedDate,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if verifiedSource != nil {
		rec.VerifiedSource = *verifiedSource
	}
	return &rec, nil
}
