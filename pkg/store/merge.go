package store

import (
	"database/sql"
	"fmt"
)

// MergeConfig configures the merge operation.
type MergeConfig struct {
	// SourcePaths are the database files to merge from.
	SourcePaths []string
	// DestPath is the destination database file.
	DestPath string
}

// MergeStats tracks merge operation statistics.
type MergeStats struct {
	ItemsMerged      int
	ResultsMerged    int
	ProvenanceMerged int
	SourcesProcessed int
}

// mergeTable describes how one table is copied between databases.
type mergeTable struct {
	name   string
	selec  string
	insert string
	cols   int
}

var mergeTables = []mergeTable{
	{
		name:   "items",
		selec:  "SELECT id, size FROM items",
		insert: "INSERT OR IGNORE INTO items (id, size) VALUES (?, ?)",
		cols:   2,
	},
	{
		name:   "results",
		selec:  "SELECT id, item_id, command, options, job_id, source, output_json FROM results ORDER BY seq",
		insert: "INSERT OR IGNORE INTO results (id, item_id, command, options, job_id, source, output_json) VALUES (?, ?, ?, ?, ?, ?, ?)",
		cols:   7,
	},
	{
		name:   "provenance",
		selec:  "SELECT item_id, type, path, item_index FROM provenance",
		insert: "INSERT OR IGNORE INTO provenance (item_id, type, path, item_index) VALUES (?, ?, ?, ?)",
		cols:   4,
	},
}

// Merge combines multiple history databases into one.
// Deduplication is handled via INSERT OR IGNORE on unique keys.
func Merge(cfg MergeConfig) (*MergeStats, error) {
	if len(cfg.SourcePaths) == 0 {
		return nil, fmt.Errorf("no source databases specified")
	}
	if cfg.DestPath == "" {
		return nil, fmt.Errorf("destination path is required")
	}

	destDB, err := openDB(cfg.DestPath)
	if err != nil {
		return nil, fmt.Errorf("opening destination database: %w", err)
	}
	defer destDB.Close()

	stats := &MergeStats{}

	for _, sourcePath := range cfg.SourcePaths {
		sourceStats, err := mergeFrom(destDB, sourcePath)
		if err != nil {
			return stats, fmt.Errorf("merging from %s: %w", sourcePath, err)
		}
		stats.ItemsMerged += sourceStats.ItemsMerged
		stats.ResultsMerged += sourceStats.ResultsMerged
		stats.ProvenanceMerged += sourceStats.ProvenanceMerged
		stats.SourcesProcessed++
	}

	return stats, nil
}

// mergeFrom copies data from a source database to the destination in one
// transaction.
func mergeFrom(destDB *sql.DB, sourcePath string) (*MergeStats, error) {
	sourceDB, err := sql.Open(driverName, sourcePath)
	if err != nil {
		return nil, fmt.Errorf("opening source database: %w", err)
	}
	defer sourceDB.Close()

	version, err := ReadSchemaVersion(sourceDB)
	if err != nil {
		return nil, err
	}
	if version != SchemaVersion {
		return nil, fmt.Errorf("unsupported schema version %d (want %d)", version, SchemaVersion)
	}

	tx, err := destDB.Begin()
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	counts := make(map[string]int, len(mergeTables))
	for _, table := range mergeTables {
		n, err := copyRows(tx, sourceDB, table)
		if err != nil {
			return nil, fmt.Errorf("merging %s: %w", table.name, err)
		}
		counts[table.name] = n
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}

	return &MergeStats{
		ItemsMerged:      counts["items"],
		ResultsMerged:    counts["results"],
		ProvenanceMerged: counts["provenance"],
	}, nil
}

// copyRows copies every row of table and returns how many were new.
func copyRows(tx *sql.Tx, sourceDB *sql.DB, table mergeTable) (int, error) {
	rows, err := sourceDB.Query(table.selec)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	stmt, err := tx.Prepare(table.insert)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	vals := make([]any, table.cols)
	ptrs := make([]any, table.cols)
	for i := range vals {
		ptrs[i] = &vals[i]
	}

	count := 0
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return count, err
		}
		result, err := stmt.Exec(vals...)
		if err != nil {
			return count, err
		}
		affected, _ := result.RowsAffected()
		if affected > 0 {
			count++
		}
	}
	return count, rows.Err()
}
