// Package sqlite provides a SQLite-backed snapshot of the entity
// collections, used when the back-office API is not reachable.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"
	_ "modernc.org/sqlite"

	"portfolio-engine/internal/model"
	"portfolio-engine/internal/source"
)

const schema = `
CREATE TABLE IF NOT EXISTS clients (
	code INTEGER PRIMARY KEY,
	first_name TEXT NOT NULL DEFAULT '',
	last_name TEXT NOT NULL DEFAULT '',
	age REAL,
	birth_place TEXT NOT NULL DEFAULT '',
	residence TEXT NOT NULL DEFAULT '',
	profession TEXT NOT NULL DEFAULT '',
	income REAL,
	household_income REAL,
	children REAL,
	marital_status TEXT NOT NULL DEFAULT '',
	propensity_life REAL,
	propensity_non_life REAL,
	zone TEXT NOT NULL DEFAULT '',
	agency TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS policies (
	id INTEGER PRIMARY KEY,
	client_code INTEGER NOT NULL,
	product TEXT NOT NULL DEFAULT '',
	need_area TEXT NOT NULL DEFAULT '',
	issued_on TEXT NOT NULL DEFAULT '',
	recurring_premium REAL,
	single_premium REAL,
	revalued_capital REAL,
	ceiling REAL
);
CREATE TABLE IF NOT EXISTS claims (
	id INTEGER PRIMARY KEY,
	client_code INTEGER NOT NULL,
	product TEXT NOT NULL DEFAULT '',
	need_area TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS complaints (
	id INTEGER PRIMARY KEY,
	client_code INTEGER NOT NULL,
	product TEXT NOT NULL DEFAULT '',
	need_area TEXT NOT NULL DEFAULT '',
	text TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS notes (
	client_code INTEGER NOT NULL,
	first_name TEXT NOT NULL DEFAULT '',
	last_name TEXT NOT NULL DEFAULT '',
	lines TEXT NOT NULL DEFAULT '[]'
);
CREATE INDEX IF NOT EXISTS notes_client_code ON notes (client_code);
`

// Store reads and writes a snapshot file. It implements source.Source.
type Store struct {
	sqlDB *sql.DB
}

// Open opens (or creates) the snapshot database at path and makes sure
// the tables exist. ":memory:" is accepted for tests.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("snapshot path is required")
	}
	dsn := path
	if path != ":memory:" {
		dsn = filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// an in-memory database lives and dies with its connection
	sqlDB.SetMaxOpenConns(1)
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) ListClients(ctx context.Context) ([]model.Client, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT code, first_name, last_name, age, birth_place, residence,
		profession, income, household_income, children, marital_status, propensity_life,
		propensity_non_life, zone, agency FROM clients ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("query clients: %w", err)
	}
	defer rows.Close()

	out := []model.Client{}
	for rows.Next() {
		var c model.Client
		var age, income, household, children, life, nonLife sql.NullFloat64
		if err := rows.Scan(&c.Code, &c.FirstName, &c.LastName, &age, &c.BirthPlace, &c.Residence,
			&c.Profession, &income, &household, &children, &c.MaritalStatus, &life,
			&nonLife, &c.Zone, &c.Agency); err != nil {
			return nil, fmt.Errorf("scan client: %w", err)
		}
		c.Age, c.Income, c.HouseholdIncome = fromNull(age), fromNull(income), fromNull(household)
		c.Children, c.PropensityLife, c.PropensityNonLife = fromNull(children), fromNull(life), fromNull(nonLife)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) ListPolicies(ctx context.Context) ([]model.Policy, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT id, client_code, product, need_area, issued_on,
		recurring_premium, single_premium, revalued_capital, ceiling FROM policies ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query policies: %w", err)
	}
	defer rows.Close()

	out := []model.Policy{}
	for rows.Next() {
		var p model.Policy
		var recurring, single, revalued, ceiling sql.NullFloat64
		if err := rows.Scan(&p.ID, &p.ClientCode, &p.Product, &p.NeedArea, &p.IssuedOn,
			&recurring, &single, &revalued, &ceiling); err != nil {
			return nil, fmt.Errorf("scan policy: %w", err)
		}
		p.RecurringPremium, p.SinglePremium = fromNull(recurring), fromNull(single)
		p.RevaluedCapital, p.Ceiling = fromNull(revalued), fromNull(ceiling)
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) ListClaims(ctx context.Context) ([]model.Claim, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT id, client_code, product, need_area, description FROM claims ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query claims: %w", err)
	}
	defer rows.Close()

	out := []model.Claim{}
	for rows.Next() {
		var c model.Claim
		if err := rows.Scan(&c.ID, &c.ClientCode, &c.Product, &c.NeedArea, &c.Description); err != nil {
			return nil, fmt.Errorf("scan claim: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) ListComplaints(ctx context.Context) ([]model.Complaint, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT id, client_code, product, need_area, text FROM complaints ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query complaints: %w", err)
	}
	defer rows.Close()

	out := []model.Complaint{}
	for rows.Next() {
		var c model.Complaint
		if err := rows.Scan(&c.ID, &c.ClientCode, &c.Product, &c.NeedArea, &c.Text); err != nil {
			return nil, fmt.Errorf("scan complaint: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) ListNotes(ctx context.Context, clientCode int) ([]model.Note, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT client_code, first_name, last_name, lines FROM notes WHERE client_code = ? ORDER BY rowid`, clientCode)
	if err != nil {
		return nil, fmt.Errorf("query notes: %w", err)
	}
	defer rows.Close()

	out := []model.Note{}
	for rows.Next() {
		var n model.Note
		var lines string
		if err := rows.Scan(&n.ClientCode, &n.FirstName, &n.LastName, &lines); err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		if err := json.Unmarshal([]byte(lines), &n.Lines); err != nil {
			return nil, fmt.Errorf("decode note lines: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// Write replaces the whole snapshot with data in a single transaction.
func (s *Store) Write(ctx context.Context, data source.Data) (err error) {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin snapshot: %w", err)
	}
	defer func() {
		if err != nil {
			err = errors.Join(err, tx.Rollback())
		}
	}()

	for _, table := range []string{"clients", "policies", "claims", "complaints", "notes"} {
		if _, err = tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for _, c := range data.Clients {
		if _, err = tx.ExecContext(ctx, `INSERT INTO clients (code, first_name, last_name, age, birth_place,
			residence, profession, income, household_income, children, marital_status, propensity_life,
			propensity_non_life, zone, agency) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			c.Code, c.FirstName, c.LastName, toNull(c.Age), c.BirthPlace, c.Residence, c.Profession,
			toNull(c.Income), toNull(c.HouseholdIncome), toNull(c.Children), c.MaritalStatus,
			toNull(c.PropensityLife), toNull(c.PropensityNonLife), c.Zone, c.Agency); err != nil {
			return fmt.Errorf("insert client %d: %w", c.Code, err)
		}
	}
	for _, p := range data.Policies {
		if _, err = tx.ExecContext(ctx, `INSERT INTO policies (id, client_code, product, need_area, issued_on,
			recurring_premium, single_premium, revalued_capital, ceiling) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.ID, p.ClientCode, p.Product, p.NeedArea, p.IssuedOn, toNull(p.RecurringPremium),
			toNull(p.SinglePremium), toNull(p.RevaluedCapital), toNull(p.Ceiling)); err != nil {
			return fmt.Errorf("insert policy %d: %w", p.ID, err)
		}
	}
	for _, c := range data.Claims {
		if _, err = tx.ExecContext(ctx, `INSERT INTO claims (id, client_code, product, need_area, description)
			VALUES (?, ?, ?, ?, ?)`, c.ID, c.ClientCode, c.Product, c.NeedArea, c.Description); err != nil {
			return fmt.Errorf("insert claim %d: %w", c.ID, err)
		}
	}
	for _, c := range data.Complaints {
		if _, err = tx.ExecContext(ctx, `INSERT INTO complaints (id, client_code, product, need_area, text)
			VALUES (?, ?, ?, ?, ?)`, c.ID, c.ClientCode, c.Product, c.NeedArea, c.Text); err != nil {
			return fmt.Errorf("insert complaint %d: %w", c.ID, err)
		}
	}
	for _, n := range data.Notes {
		lines := n.Lines
		if lines == nil {
			lines = []string{}
		}
		var encoded []byte
		if encoded, err = json.Marshal(lines); err != nil {
			return fmt.Errorf("encode note lines: %w", err)
		}
		if _, err = tx.ExecContext(ctx, `INSERT INTO notes (client_code, first_name, last_name, lines)
			VALUES (?, ?, ?, ?)`, n.ClientCode, n.FirstName, n.LastName, string(encoded)); err != nil {
			return fmt.Errorf("insert note for %d: %w", n.ClientCode, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}
	return nil
}

func toNull(n model.Number) sql.NullFloat64 {
	return sql.NullFloat64{Float64: n.Float(), Valid: n.Valid()}
}

func fromNull(v sql.NullFloat64) model.Number {
	if !v.Valid {
		return model.Undefined()
	}
	return model.Number(v.Float64)
}
