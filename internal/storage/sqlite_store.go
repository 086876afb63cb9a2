package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"github.com/denisok6893-rgb/place-matching/internal/domain"
)

type SQLiteStore struct {
	db *sql.DB
}

func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`PRAGMA journal_mode=WAL;`); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.Exec(`PRAGMA foreign_keys=ON;`); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

// EnsureSchema creates the places table. Scalar columns are nullable so a
// missing attribute survives a round trip.
func (s *SQLiteStore) EnsureSchema(ctx context.Context) error {
	const createTable = `
CREATE TABLE IF NOT EXISTS places (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  country TEXT NOT NULL DEFAULT '',
  type TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  tags_json TEXT NOT NULL DEFAULT '[]',
  cost REAL,
  crowd_level REAL,
  recommended_stay REAL,
  best_season REAL,
  transit REAL,
  accessibility REAL,
  average_rating REAL NOT NULL DEFAULT 0,
  population INTEGER NOT NULL DEFAULT 0,
  seq INTEGER NOT NULL DEFAULT 0
);
`
	if _, err := s.db.ExecContext(ctx, createTable); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_places_type ON places(type);`); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_places_seq ON places(seq);`); err != nil {
		return err
	}
	return nil
}

func (s *SQLiteStore) CountPlaces(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM places`).Scan(&n)
	return n, err
}

const insertPlace = `
INSERT %s INTO places
(id, name, country, type, description, tags_json, cost, crowd_level, recommended_stay,
 best_season, transit, accessibility, average_rating, population, seq)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM places))
`

// UpsertMany inserts the dataset without duplicating by id. Insertion order
// is kept in seq so listings come back in source order.
func (s *SQLiteStore) UpsertMany(ctx context.Context, items []domain.Place) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(insertPlace, "OR IGNORE"))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range items {
		args, err := placeArgs(p)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("insert place %q: %w", p.ID, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) CreatePlace(ctx context.Context, p domain.Place) (domain.Place, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	args, err := placeArgs(p)
	if err != nil {
		return p, err
	}
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf(insertPlace, ""), args...); err != nil {
		if isDuplicateKey(err) {
			return p, fmt.Errorf("%w: duplicate id %q", ErrInvalidPlace, p.ID)
		}
		return p, err
	}
	return p, nil
}

func isDuplicateKey(err error) bool {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey || se.ExtendedCode == sqlite3.ErrConstraintUnique
}

func (s *SQLiteStore) DeletePlace(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM places WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	aff, _ := res.RowsAffected()
	return aff > 0, nil
}

const selectPlace = `
SELECT id, name, country, type, description, tags_json, cost, crowd_level, recommended_stay,
       best_season, transit, accessibility, average_rating, population
FROM places
`

func (s *SQLiteStore) GetPlace(ctx context.Context, id string) (domain.Place, error) {
	row := s.db.QueryRowContext(ctx, selectPlace+"WHERE id = ?", id)
	p, err := scanPlace(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Place{}, ErrNotFound
	}
	return p, err
}

// ListPlaces returns every place in insertion order.
func (s *SQLiteStore) ListPlaces(ctx context.Context) ([]domain.Place, error) {
	return s.ListPlacesFiltered(ctx, PlaceQuery{})
}

// PlaceQuery narrows the candidate set in SQL before the in-memory pipeline.
type PlaceQuery struct {
	Types []domain.PlaceType
	// Text is a case-insensitive substring of name or country.
	Text string
}

func (s *SQLiteStore) ListPlacesFiltered(ctx context.Context, q PlaceQuery) ([]domain.Place, error) {
	where := make([]string, 0, 2)
	args := make([]any, 0, len(q.Types)+2)

	if len(q.Types) > 0 {
		ph := make([]string, 0, len(q.Types))
		for _, t := range q.Types {
			ph = append(ph, "?")
			args = append(args, string(t))
		}
		where = append(where, "type IN ("+strings.Join(ph, ", ")+")")
	}
	if strings.TrimSpace(q.Text) != "" {
		where = append(where, "(LOWER(name) LIKE '%' || LOWER(?) || '%' OR LOWER(country) LIKE '%' || LOWER(?) || '%')")
		args = append(args, q.Text, q.Text)
	}

	whereSQL := ""
	if len(where) > 0 {
		whereSQL = "WHERE " + strings.Join(where, " AND ") + "\n"
	}

	rows, err := s.db.QueryContext(ctx, selectPlace+whereSQL+"ORDER BY seq, id", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Place
	for rows.Next() {
		p, err := scanPlace(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPlace(sc scanner) (domain.Place, error) {
	var (
		p        domain.Place
		typ      string
		tagsJSON string
		scalars  [6]sql.NullFloat64
	)
	if err := sc.Scan(
		&p.ID, &p.Name, &p.Country, &typ, &p.Description, &tagsJSON,
		&scalars[0], &scalars[1], &scalars[2], &scalars[3], &scalars[4], &scalars[5],
		&p.AverageRating, &p.Population,
	); err != nil {
		return domain.Place{}, err
	}
	p.Type = domain.PlaceType(typ)
	if err := json.Unmarshal([]byte(tagsJSON), &p.Tags); err != nil {
		return domain.Place{}, fmt.Errorf("decode tags of %q: %w", p.ID, err)
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}

	ptr := func(v sql.NullFloat64) *float64 {
		if !v.Valid {
			return nil
		}
		return domain.Float(v.Float64)
	}
	p.Attributes = domain.PlaceAttributes{
		Cost:            ptr(scalars[0]),
		CrowdLevel:      ptr(scalars[1]),
		RecommendedStay: ptr(scalars[2]),
		BestSeason:      ptr(scalars[3]),
		Transit:         ptr(scalars[4]),
		Accessibility:   ptr(scalars[5]),
	}
	return p, nil
}

func placeArgs(p domain.Place) ([]any, error) {
	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return nil, fmt.Errorf("encode tags of %q: %w", p.ID, err)
	}

	null := func(v *float64) any {
		if v == nil {
			return nil
		}
		return *v
	}
	a := p.Attributes
	return []any{
		p.ID, p.Name, p.Country, string(p.Type), p.Description, string(tagsJSON),
		null(a.Cost), null(a.CrowdLevel), null(a.RecommendedStay),
		null(a.BestSeason), null(a.Transit), null(a.Accessibility),
		p.AverageRating, p.Population,
	}, nil
}
