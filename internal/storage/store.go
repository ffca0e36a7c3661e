// Package storage keeps finished runs in a SQLite database.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	jsoniter "github.com/json-iterator/go"
	_ "modernc.org/sqlite"

	"github.com/san-kum/ctmc/internal/markov"
)

const (
	dialect   = "sqlite3"
	tableRuns = "runs"
	tableEPR  = "epr"
	dbFile    = "runs.db"

	// rows per EPR insert, well below SQLite's bound-parameter limit
	eprBatch = 1000
)

var ErrNotFound = errors.New("storage: run not found")

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type Store struct {
	conn *sqlx.DB
	sql  goqu.DialectWrapper
}

// Run is one finished experiment.
type Run struct {
	ID            string             `json:"id"`
	CreatedAt     time.Time          `json:"created_at"`
	Generator     string             `json:"generator"`
	States        int                `json:"states"`
	Chains        int                `json:"chains"`
	Seed          uint64             `json:"seed"`
	MaxRate       float64            `json:"max_rate"`
	Params        map[string]float64 `json:"params,omitempty"`
	NESS          markov.Batch       `json:"ness"`
	NESSConverged bool               `json:"ness_converged"`
	MEPS          markov.Batch       `json:"meps"`
	MEPSConverged bool               `json:"meps_converged"`
	Iterations    int                `json:"iterations"`
	EPR           [][]float64        `json:"epr,omitempty"`
	Metrics       map[string]float64 `json:"metrics"`
}

type runRow struct {
	ID            string  `db:"id"`
	CreatedAt     int64   `db:"created_at"`
	Generator     string  `db:"generator"`
	States        int     `db:"states"`
	Chains        int     `db:"chains"`
	Seed          int64   `db:"seed"`
	MaxRate       float64 `db:"max_rate"`
	NESSConverged bool    `db:"ness_converged"`
	MEPSConverged bool    `db:"meps_converged"`
	Iterations    int     `db:"iterations"`
	ParamsJSON    string  `db:"params_json"`
	NESSJSON      string  `db:"ness_json"`
	MEPSJSON      string  `db:"meps_json"`
	MetricsJSON   string  `db:"metrics_json"`
}

var runColumns = []any{
	"id", "created_at", "generator", "states", "chains", "seed", "max_rate",
	"ness_converged", "meps_converged", "iterations",
	"params_json", "ness_json", "meps_json", "metrics_json",
}

// Open opens or creates the run database inside dir.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	path := filepath.Join(dir, dbFile)
	conn, err := sqlx.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	s := &Store{conn: conn, sql: goqu.Dialect(dialect)}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		created_at INTEGER NOT NULL,
		generator TEXT NOT NULL,
		states INTEGER NOT NULL,
		chains INTEGER NOT NULL,
		seed INTEGER NOT NULL,
		max_rate REAL NOT NULL,
		ness_converged INTEGER NOT NULL,
		meps_converged INTEGER NOT NULL,
		iterations INTEGER NOT NULL,
		params_json TEXT NOT NULL,
		ness_json TEXT NOT NULL,
		meps_json TEXT NOT NULL,
		metrics_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS epr (
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		iteration INTEGER NOT NULL,
		chain INTEGER NOT NULL,
		value REAL NOT NULL,
		PRIMARY KEY (run_id, iteration, chain)
	);
	`
	_, err := s.conn.Exec(schema)
	return err
}

func encode(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Save stores r and its EPR history and returns the new run ID. A zero
// CreatedAt is set to now.
func (s *Store) Save(r *Run) (string, error) {
	id := uuid.New().String()
	created := r.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}

	row := runRow{
		ID:            id,
		CreatedAt:     created.UnixNano(),
		Generator:     r.Generator,
		States:        r.States,
		Chains:        r.Chains,
		Seed:          int64(r.Seed),
		MaxRate:       r.MaxRate,
		NESSConverged: r.NESSConverged,
		MEPSConverged: r.MEPSConverged,
		Iterations:    r.Iterations,
	}
	var err error
	if row.ParamsJSON, err = encode(r.Params); err != nil {
		return "", fmt.Errorf("encode params: %w", err)
	}
	if row.NESSJSON, err = encode(r.NESS); err != nil {
		return "", fmt.Errorf("encode ness: %w", err)
	}
	if row.MEPSJSON, err = encode(r.MEPS); err != nil {
		return "", fmt.Errorf("encode meps: %w", err)
	}
	if row.MetricsJSON, err = encode(r.Metrics); err != nil {
		return "", fmt.Errorf("encode metrics: %w", err)
	}

	tx, err := s.conn.Beginx()
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	query, args, err := s.sql.Insert(tableRuns).Rows(row).Prepared(true).ToSQL()
	if err != nil {
		return "", fmt.Errorf("build insert: %w", err)
	}
	if _, err := tx.Exec(query, args...); err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	records := make([]any, 0, len(r.EPR)*r.Chains)
	for i, vals := range r.EPR {
		for k, v := range vals {
			records = append(records, goqu.Record{"run_id": id, "iteration": i, "chain": k, "value": v})
		}
	}
	for start := 0; start < len(records); start += eprBatch {
		end := min(start+eprBatch, len(records))
		query, args, err := s.sql.Insert(tableEPR).Rows(records[start:end]...).Prepared(true).ToSQL()
		if err != nil {
			return "", fmt.Errorf("build epr insert: %w", err)
		}
		if _, err := tx.Exec(query, args...); err != nil {
			return "", fmt.Errorf("insert epr: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return id, nil
}

func (row runRow) decode() (*Run, error) {
	r := &Run{
		ID:            row.ID,
		CreatedAt:     time.Unix(0, row.CreatedAt),
		Generator:     row.Generator,
		States:        row.States,
		Chains:        row.Chains,
		Seed:          uint64(row.Seed),
		MaxRate:       row.MaxRate,
		NESSConverged: row.NESSConverged,
		MEPSConverged: row.MEPSConverged,
		Iterations:    row.Iterations,
	}
	for _, f := range []struct {
		src string
		dst any
	}{
		{row.ParamsJSON, &r.Params},
		{row.NESSJSON, &r.NESS},
		{row.MEPSJSON, &r.MEPS},
		{row.MetricsJSON, &r.Metrics},
	} {
		if err := json.Unmarshal([]byte(f.src), f.dst); err != nil {
			return nil, fmt.Errorf("decode run %s: %w", row.ID, err)
		}
	}
	return r, nil
}

// List returns every stored run, newest first, without EPR histories.
func (s *Store) List() ([]*Run, error) {
	query, args, err := s.sql.From(tableRuns).
		Select(runColumns...).
		Order(goqu.C("created_at").Desc()).
		Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var rows []runRow
	if err := s.conn.Select(&rows, query, args...); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}

	runs := make([]*Run, 0, len(rows))
	for _, row := range rows {
		r, err := row.decode()
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, nil
}

// Load returns the run with the given ID, including its EPR history.
func (s *Store) Load(id string) (*Run, error) {
	query, args, err := s.sql.From(tableRuns).
		Select(runColumns...).
		Where(goqu.C("id").Eq(id)).
		Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var row runRow
	if err := s.conn.Get(&row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("load run: %w", err)
	}
	r, err := row.decode()
	if err != nil {
		return nil, err
	}

	if r.EPR, err = s.LoadEPR(id); err != nil {
		return nil, err
	}
	return r, nil
}

type eprRow struct {
	Iteration int     `db:"iteration"`
	Chain     int     `db:"chain"`
	Value     float64 `db:"value"`
}

// LoadEPR returns the iterations × chains EPR history of a run.
func (s *Store) LoadEPR(id string) ([][]float64, error) {
	query, args, err := s.sql.From(tableEPR).
		Select("iteration", "chain", "value").
		Where(goqu.C("run_id").Eq(id)).
		Order(goqu.C("iteration").Asc(), goqu.C("chain").Asc()).
		Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var rows []eprRow
	if err := s.conn.Select(&rows, query, args...); err != nil {
		return nil, fmt.Errorf("load epr: %w", err)
	}

	var out [][]float64
	for _, row := range rows {
		for len(out) <= row.Iteration {
			out = append(out, nil)
		}
		out[row.Iteration] = append(out[row.Iteration], row.Value)
	}
	return out, nil
}
