// Package training persists software compensation training samples in
// SQLite.
package training

import (
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/pflow/internal/monitoring"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Run groups the records written by one capture session.
type Run struct {
	RunID       string `json:"run_id"`
	TreeName    string `json:"tree_name"`
	CreatedAtNs int64  `json:"created_at_ns"`
}

// Store provides persistence for training runs and records.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the SQLite database at path. Call
// MigrateUp before use.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open training db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open training db: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// MigrateUp applies all pending schema migrations.
func (s *Store) MigrateUp() error {
	m, err := s.newMigrate()
	if err != nil {
		return err
	}
	// m is not closed: that would close the shared database handle.
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// MigrateVersion returns the current schema version; 0 when none is applied.
func (s *Store) MigrateVersion() (version uint, dirty bool, err error) {
	m, err := s.newMigrate()
	if err != nil {
		return 0, false, err
	}
	version, dirty, err = m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

func (s *Store) newMigrate() (*migrate.Migrate, error) {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(s.db, &sqlite.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create sqlite driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	m.Log = &migrateLogger{}
	return m, nil
}

// migrateLogger implements migrate.Logger on top of monitoring.Logf.
type migrateLogger struct{}

func (l *migrateLogger) Printf(format string, v ...interface{}) {
	monitoring.Logf("[migrate] "+format, v...)
}

func (l *migrateLogger) Verbose() bool {
	return false
}

// StartRun creates a new run for treeName.
func (s *Store) StartRun(treeName string) (*Run, error) {
	if treeName == "" {
		return nil, fmt.Errorf("start run: empty tree name")
	}
	run := &Run{
		RunID:       uuid.New().String(),
		TreeName:    treeName,
		CreatedAtNs: time.Now().UnixNano(),
	}
	_, err := s.db.Exec(
		`INSERT INTO training_runs (run_id, tree_name, created_at_ns) VALUES (?, ?, ?)`,
		run.RunID, run.TreeName, run.CreatedAtNs,
	)
	if err != nil {
		return nil, fmt.Errorf("start run: %w", err)
	}
	return run, nil
}

// Runs lists all runs, oldest first.
func (s *Store) Runs() ([]*Run, error) {
	rows, err := s.db.Query(`SELECT run_id, tree_name, created_at_ns FROM training_runs ORDER BY created_at_ns, run_id`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.RunID, &r.TreeName, &r.CreatedAtNs); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, &r)
	}
	return runs, rows.Err()
}

// Insert stores rec under rec.RunID. If rec.RecordID is empty, a new UUID
// is generated.
func (s *Store) Insert(rec *Record) error {
	if rec.RunID == "" {
		return fmt.Errorf("insert record: missing run id")
	}
	n := len(rec.HitEnergies)
	if len(rec.CellSize0) != n || len(rec.CellSize1) != n || len(rec.CellThickness) != n || len(rec.HitType) != n {
		return fmt.Errorf("insert record: hit columns have different lengths")
	}
	if rec.RecordID == "" {
		rec.RecordID = uuid.New().String()
	}
	if rec.CreatedAtNs == 0 {
		rec.CreatedAtNs = time.Now().UnixNano()
	}

	columns := make([]string, 0, 5)
	for _, v := range []interface{}{rec.HitEnergies, rec.CellSize0, rec.CellSize1, rec.CellThickness, rec.HitType} {
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("insert record: %w", err)
		}
		columns = append(columns, string(b))
	}

	query := `
		INSERT INTO training_records (
			record_id, run_id, event_number, pfo_energy, raw_energy_of_cluster,
			hit_energies_json, cell_size0_json, cell_size1_json, cell_thickness_json, hit_type_json,
			created_at_ns
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.Exec(query,
		rec.RecordID,
		rec.RunID,
		rec.EventNumber,
		rec.PfoEnergy,
		rec.RawEnergyOfCluster,
		columns[0], columns[1], columns[2], columns[3], columns[4],
		rec.CreatedAtNs,
	)
	if err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

// ListByRun returns the records of runID ordered by event number.
func (s *Store) ListByRun(runID string) ([]*Record, error) {
	query := `
		SELECT record_id, run_id, event_number, pfo_energy, raw_energy_of_cluster,
		       hit_energies_json, cell_size0_json, cell_size1_json, cell_thickness_json, hit_type_json,
		       created_at_ns
		FROM training_records
		WHERE run_id = ?
		ORDER BY event_number, created_at_ns
	`
	rows, err := s.db.Query(query, runID)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		var rec Record
		var energies, size0, size1, thickness, hitType string
		if err := rows.Scan(
			&rec.RecordID,
			&rec.RunID,
			&rec.EventNumber,
			&rec.PfoEnergy,
			&rec.RawEnergyOfCluster,
			&energies, &size0, &size1, &thickness, &hitType,
			&rec.CreatedAtNs,
		); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		targets := []struct {
			raw string
			dst interface{}
		}{
			{energies, &rec.HitEnergies},
			{size0, &rec.CellSize0},
			{size1, &rec.CellSize1},
			{thickness, &rec.CellThickness},
			{hitType, &rec.HitType},
		}
		for _, t := range targets {
			if err := json.Unmarshal([]byte(t.raw), t.dst); err != nil {
				return nil, fmt.Errorf("decode record %s: %w", rec.RecordID, err)
			}
		}
		records = append(records, &rec)
	}
	return records, rows.Err()
}
