package tariffstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/triangle-intelligence/compliance-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. It backs the
// offline CLI workflow where no Postgres is available.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS policy_tariffs (
	hs_code         TEXT NOT NULL,
	origin_country  TEXT NOT NULL DEFAULT '',
	section_301     REAL,
	section_232     REAL,
	section_201     REAL,
	reciprocal      REAL,
	verified_source TEXT,
	verified_date   DATETIME,
	updated_at      DATETIME NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (hs_code, origin_country)
);

CREATE INDEX IF NOT EXISTS idx_policy_tariffs_origin ON policy_tariffs(origin_country);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const sqliteColumns = `hs_code, origin_country, section_301, section_232, section_201, reciprocal, verified_source, verified_date`

func (s *SQLiteStore) Lookup(ctx context.Context, hsCode, originCountry string) (*model.PolicyTariffRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sqliteColumns+` FROM policy_tariffs WHERE hs_code = ? AND origin_country = ?`,
		hsCode, originCountry,
	)
	rec, err := scanSQLiteRecord(row)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: lookup %s/%s", hsCode, originCountry)
	}
	return rec, nil
}

func (s *SQLiteStore) LookupBlanket(ctx context.Context, hsCode string) (*model.PolicyTariffRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sqliteColumns+` FROM policy_tariffs WHERE hs_code = ? AND origin_country = ''`,
		hsCode,
	)
	rec, err := scanSQLiteRecord(row)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: blanket lookup %s", hsCode)
	}
	return rec, nil
}

func (s *SQLiteStore) LookupChapter(ctx context.Context, chapterPrefix, originCountry string) (*model.PolicyTariffRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sqliteColumns+` FROM policy_tariffs
		 WHERE hs_code LIKE ? AND origin_country = ?
		 ORDER BY verified_date IS NULL, verified_date DESC LIMIT 1`,
		chapterPrefix+"%", originCountry,
	)
	rec, err := scanSQLiteRecord(row)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: chapter lookup %s/%s", chapterPrefix, originCountry)
	}
	return rec, nil
}

func (s *SQLiteStore) Upsert(ctx context.Context, records []model.PolicyTariffRecord) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin upsert")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO policy_tariffs (hs_code, origin_country, section_301, section_232, section_201, reciprocal, verified_source, verified_date, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (hs_code, origin_country) DO UPDATE SET
			section_301 = excluded.section_301,
			section_232 = excluded.section_232,
			section_201 = excluded.section_201,
			reciprocal = excluded.reciprocal,
			verified_source = excluded.verified_source,
			verified_date = excluded.verified_date,
			updated_at = excluded.updated_at`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare upsert")
	}
	defer stmt.Close()

	now := time.Now().UTC()
	var n int64
	for _, rec := range records {
		var source *string
		if rec.VerifiedSource != "" {
			source = &rec.VerifiedSource
		}
		if _, err := stmt.ExecContext(ctx,
			rec.HSCode, rec.OriginCountry,
			rec.Section301, rec.Section232, rec.Section201, rec.Reciprocal,
			source, rec.VerifiedDate, now,
		); err != nil {
			return 0, eris.Wrapf(err, "sqlite: upsert %s/%s", rec.HSCode, rec.OriginCountry)
		}
		n++
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit upsert")
	}
	return n, nil
}

func scanSQLiteRecord(row *sql.Row) (*model.PolicyTariffRecord, error) {
	var rec model.PolicyTariffRecord
	var verifiedSource sql.NullString
	var verifiedDate sql.NullTime
	err := row.Scan(
		&rec.HSCode, &rec.OriginCountry,
		&rec.Section301, &rec.Section232, &rec.Section201, &rec.Reciprocal,
		&verifiedSource, &verifiedDate,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	if verifiedSource.Valid {
		rec.VerifiedSource = verifiedSource.String
	}
	if verifiedDate.Valid {
		t := verifiedDate.Time
		rec.VerifiedDate = &t
	}
	return &rec, nil
}
