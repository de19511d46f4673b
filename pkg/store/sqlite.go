package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/praetorian-inc/locus/pkg/types"
	_ "modernc.org/sqlite"
)

// driverName is the database/sql name registered by modernc.org/sqlite.
const driverName = "sqlite"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a SQLite-based store.
func NewSQLite(path string) (*SQLiteStore, error) {
	db, err := openDB(path)
	if err != nil {
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// openDB opens path and makes sure the schema exists.
func openDB(path string) (*sql.DB, error) {
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// Each connection to ":memory:" would be a separate database.
	db.SetMaxOpenConns(1)

	if err := CreateSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return db, nil
}

// AddItem records an item.
func (s *SQLiteStore) AddItem(id types.ItemID, size int64) error {
	_, err := s.db.Exec("INSERT OR IGNORE INTO items (id, size) VALUES (?, ?)", id.Hex(), size)
	if err != nil {
		return fmt.Errorf("inserting item: %w", err)
	}
	return nil
}

// AddProvenance associates provenance with an item.
func (s *SQLiteStore) AddProvenance(id types.ItemID, prov types.Provenance) error {
	var index int
	switch p := prov.(type) {
	case types.FileProvenance:
		index = p.Index
	case types.StdinProvenance:
		index = p.Index
	case types.RequestProvenance:
		index = p.Index
	default:
		return fmt.Errorf("unknown provenance type: %T", prov)
	}

	_, err := s.db.Exec(`
		INSERT OR IGNORE INTO provenance (item_id, type, path, item_index)
		VALUES (?, ?, ?, ?)
	`,
		id.Hex(),
		prov.Kind(),
		prov.Path(),
		index,
	)
	if err != nil {
		return fmt.Errorf("inserting provenance: %w", err)
	}

	return nil
}

// AddResult stores a result (deduplicated by ID).
func (s *SQLiteStore) AddResult(r *types.Result) error {
	outputJSON, err := r.Output.MarshalJSON()
	if err != nil {
		return fmt.Errorf("marshaling output: %w", err)
	}

	var jobID *string
	if r.JobID != "" {
		jobID = &r.JobID
	}

	_, err = s.db.Exec(`
		INSERT OR IGNORE INTO results (id, item_id, command, options, job_id, source, output_json)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		r.ID,
		r.ItemID.Hex(),
		r.Command,
		r.Options,
		jobID,
		r.Source,
		string(outputJSON),
	)
	if err != nil {
		return fmt.Errorf("inserting result: %w", err)
	}

	return nil
}

// ItemExists checks if an item has already been processed.
func (s *SQLiteStore) ItemExists(id types.ItemID) (bool, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM items WHERE id = ?", id.Hex()).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking item existence: %w", err)
	}
	return count > 0, nil
}

// GetResults retrieves results for an item.
func (s *SQLiteStore) GetResults(id types.ItemID) ([]*types.Result, error) {
	return s.queryResults(`
		SELECT id, item_id, command, options, job_id, source, output_json
		FROM results
		WHERE item_id = ?
		ORDER BY seq
	`, id.Hex())
}

// GetAllResults retrieves all results in insertion order.
func (s *SQLiteStore) GetAllResults() ([]*types.Result, error) {
	return s.queryResults(`
		SELECT id, item_id, command, options, job_id, source, output_json
		FROM results
		ORDER BY seq
	`)
}

func (s *SQLiteStore) queryResults(query string, args ...any) ([]*types.Result, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying results: %w", err)
	}
	defer rows.Close()

	results := []*types.Result{}
	for rows.Next() {
		var r types.Result
		var jobID, source sql.NullString
		var outputJSON string

		err := rows.Scan(&r.ID, &r.ItemID, &r.Command, &r.Options, &jobID, &source, &outputJSON)
		if err != nil {
			return nil, fmt.Errorf("scanning result: %w", err)
		}
		r.JobID = jobID.String
		r.Source = source.String

		if err := json.Unmarshal([]byte(outputJSON), &r.Output); err != nil {
			return nil, fmt.Errorf("unmarshaling output of result %s: %w", r.ID, err)
		}

		results = append(results, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating results: %w", err)
	}

	return results, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
