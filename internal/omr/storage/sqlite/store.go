package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/banshee-data/sheet.skeleton/internal/omr/l3lag"
	"github.com/banshee-data/sheet.skeleton/internal/omr/l6measures"
	"github.com/banshee-data/sheet.skeleton/internal/timeutil"
)

// Run is one analysed sheet.
type Run struct {
	RunID      string          `json:"run_id"`
	Sheet      string          `json:"sheet"`
	Width      int             `json:"width"`
	Height     int             `json:"height"`
	Interline  int             `json:"interline"`
	ParamsJSON json.RawMessage `json:"params_json,omitempty"`
	Warnings   int             `json:"warnings"`
	CreatedAt  int64           `json:"created_at"`
}

// SystemRecord is the persisted box of a system.
type SystemRecord struct {
	SystemID int `json:"system_id"`
	Left     int `json:"left"`
	Top      int `json:"top"`
	Width    int `json:"width"`
	Height   int `json:"height"`
}

// StickRecord is the contour box of one bar stick, bounds inclusive.
type StickRecord struct {
	StickID int `json:"stick_id"`
	Left    int `json:"left"`
	Right   int `json:"right"`
	Top     int `json:"top"`
	Bottom  int `json:"bottom"`
}

// MeasureRecord is a persisted measure and the sticks of its bar line.
type MeasureRecord struct {
	PartID     int           `json:"part_id"`
	MeasureID  int           `json:"measure_id"`
	Left       int           `json:"left"`
	Right      int           `json:"right"`
	Artificial bool          `json:"artificial"`
	Sticks     []StickRecord `json:"sticks,omitempty"`
}

// startingMeasureID keys the starting bar line of a part in omr_barline_sticks.
const startingMeasureID = 0

// Store persists runs, lag snapshots and measure trees.
type Store struct {
	db    *sql.DB
	clock timeutil.Clock
}

// NewStore creates a new Store.
func NewStore(db *sql.DB) *Store {
	return NewStoreWithClock(db, timeutil.RealClock{})
}

// NewStoreWithClock creates a Store that stamps records and paces busy
// retries with clock.
func NewStoreWithClock(db *sql.DB, clock timeutil.Clock) *Store {
	return &Store{db: db, clock: clock}
}

// InsertRun persists a run. If RunID is empty, a UUID is generated.
func (s *Store) InsertRun(run *Run) error {
	if run.RunID == "" {
		run.RunID = uuid.New().String()
	}
	if run.CreatedAt == 0 {
		run.CreatedAt = s.clock.Now().UnixNano()
	}

	var paramsStr interface{}
	if len(run.ParamsJSON) > 0 {
		paramsStr = string(run.ParamsJSON)
	}

	return retryOnBusy(s.clock, func() error {
		_, err := s.db.Exec(`
			INSERT INTO omr_runs (
				run_id, sheet, width, height, interline, params_json, warnings, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			run.RunID, run.Sheet, run.Width, run.Height, run.Interline,
			paramsStr, run.Warnings, run.CreatedAt,
		)
		return err
	})
}

// UpdateWarnings sets the warning count of a run.
func (s *Store) UpdateWarnings(runID string, warnings int) error {
	return retryOnBusy(s.clock, func() error {
		result, err := s.db.Exec(`UPDATE omr_runs SET warnings = ? WHERE run_id = ?`, warnings, runID)
		if err != nil {
			return fmt.Errorf("update run: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("run %s not found", runID)
		}
		return nil
	})
}

// GetRun returns a single run by ID.
func (s *Store) GetRun(runID string) (*Run, error) {
	row := s.db.QueryRow(`
		SELECT run_id, sheet, width, height, interline, params_json, warnings, created_at
		FROM omr_runs
		WHERE run_id = ?`, runID)

	var r Run
	var paramsStr sql.NullString
	err := row.Scan(&r.RunID, &r.Sheet, &r.Width, &r.Height, &r.Interline, &paramsStr, &r.Warnings, &r.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("run %s not found", runID)
		}
		return nil, fmt.Errorf("scan run: %w", err)
	}
	if paramsStr.Valid {
		r.ParamsJSON = json.RawMessage(paramsStr.String)
	}
	return &r, nil
}

// InsertLagSnapshot stores the current state of lag for a run.
func (s *Store) InsertLagSnapshot(runID string, lag *l3lag.Lag) error {
	var sections int
	var version uint64
	lag.Read(func(v *l3lag.View) {
		sections = v.Len()
		version = v.Version()
	})
	blob, err := l3lag.Encode(lag)
	if err != nil {
		return fmt.Errorf("encode lag %s: %w", lag.Name(), err)
	}

	return retryOnBusy(s.clock, func() error {
		_, err := s.db.Exec(`
			INSERT INTO omr_lag_snapshots (
				run_id, lag_name, orientation, version, section_count, blob, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			runID, lag.Name(), lag.Orientation().String(), int64(version), sections, blob, s.clock.Now().UnixNano(),
		)
		return err
	})
}

// LatestLagSnapshot restores the most recent snapshot of the named lag.
func (s *Store) LatestLagSnapshot(runID, lagName string) (*l3lag.Lag, error) {
	var blob []byte
	err := s.db.QueryRow(`
		SELECT blob FROM omr_lag_snapshots
		WHERE run_id = ? AND lag_name = ?
		ORDER BY version DESC, snapshot_id DESC
		LIMIT 1`, runID, lagName).Scan(&blob)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("no snapshot of lag %s for run %s", lagName, runID)
		}
		return nil, fmt.Errorf("query lag snapshot: %w", err)
	}
	return l3lag.Decode(blob)
}

// InsertSystem stores the box, measures and bar lines of an assembled system
// in one transaction.
func (s *Store) InsertSystem(runID string, sys *l6measures.System) error {
	return retryOnBusy(s.clock, func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("begin: %w", err)
		}
		defer tx.Rollback()

		if _, err := tx.Exec(`
			INSERT INTO omr_systems (run_id, system_id, left_x, top_y, width, height)
			VALUES (?, ?, ?, ?, ?, ?)`,
			runID, sys.ID, sys.Left, sys.Top, sys.Width, sys.Height,
		); err != nil {
			return fmt.Errorf("insert system %d: %w", sys.ID, err)
		}

		for _, p := range sys.Parts {
			if p.StartingBarline != nil {
				if err := insertBarline(tx, runID, sys.ID, p.ID, startingMeasureID, p.StartingBarline); err != nil {
					return err
				}
			}
			for _, m := range p.Measures {
				if _, err := tx.Exec(`
					INSERT INTO omr_measures (run_id, system_id, part_id, measure_id, left_x, right_x, artificial)
					VALUES (?, ?, ?, ?, ?, ?, ?)`,
					runID, sys.ID, p.ID, m.ID, m.Left, m.Right, m.Artificial(),
				); err != nil {
					return fmt.Errorf("insert measure %d of part %d: %w", m.ID, p.ID, err)
				}
				if m.Barline != nil {
					if err := insertBarline(tx, runID, sys.ID, p.ID, m.ID, m.Barline); err != nil {
						return err
					}
				}
			}
		}
		return tx.Commit()
	})
}

func insertBarline(tx *sql.Tx, runID string, systemID, partID, measureID int, b *l6measures.Barline) error {
	for _, st := range b.Sticks {
		r := st.Bounds()
		if _, err := tx.Exec(`
			INSERT INTO omr_barline_sticks (
				run_id, system_id, part_id, measure_id, stick_id, left_x, right_x, top_y, bottom_y
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, systemID, partID, measureID, st.ID, r.Min.X, r.Max.X-1, r.Min.Y, r.Max.Y-1,
		); err != nil {
			return fmt.Errorf("insert stick %d of measure %d: %w", st.ID, measureID, err)
		}
	}
	return nil
}

// ListSystems returns the systems of a run ordered by id.
func (s *Store) ListSystems(runID string) ([]SystemRecord, error) {
	rows, err := s.db.Query(`
		SELECT system_id, left_x, top_y, width, height
		FROM omr_systems
		WHERE run_id = ?
		ORDER BY system_id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query systems: %w", err)
	}
	defer rows.Close()

	var out []SystemRecord
	for rows.Next() {
		var r SystemRecord
		if err := rows.Scan(&r.SystemID, &r.Left, &r.Top, &r.Width, &r.Height); err != nil {
			return nil, fmt.Errorf("scan system row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListMeasures returns the measures of a system ordered by part then
// measure, each with the sticks of its bar line.
func (s *Store) ListMeasures(runID string, systemID int) ([]MeasureRecord, error) {
	rows, err := s.db.Query(`
		SELECT part_id, measure_id, left_x, right_x, artificial
		FROM omr_measures
		WHERE run_id = ? AND system_id = ?
		ORDER BY part_id, measure_id`, runID, systemID)
	if err != nil {
		return nil, fmt.Errorf("query measures: %w", err)
	}
	var out []MeasureRecord
	for rows.Next() {
		var m MeasureRecord
		if err := rows.Scan(&m.PartID, &m.MeasureID, &m.Left, &m.Right, &m.Artificial); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan measure row: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	// Sticks are read once the measure cursor is closed so that a
	// single-connection pool is not deadlocked.
	for i := range out {
		sticks, err := s.barlineSticks(runID, systemID, out[i].PartID, out[i].MeasureID)
		if err != nil {
			return nil, err
		}
		out[i].Sticks = sticks
	}
	return out, nil
}

// StartingBarline returns the sticks of a part's starting bar line, empty
// when the part has none.
func (s *Store) StartingBarline(runID string, systemID, partID int) ([]StickRecord, error) {
	return s.barlineSticks(runID, systemID, partID, startingMeasureID)
}

func (s *Store) barlineSticks(runID string, systemID, partID, measureID int) ([]StickRecord, error) {
	rows, err := s.db.Query(`
		SELECT stick_id, left_x, right_x, top_y, bottom_y
		FROM omr_barline_sticks
		WHERE run_id = ? AND system_id = ? AND part_id = ? AND measure_id = ?
		ORDER BY left_x, stick_id`, runID, systemID, partID, measureID)
	if err != nil {
		return nil, fmt.Errorf("query barline sticks: %w", err)
	}
	defer rows.Close()

	var out []StickRecord
	for rows.Next() {
		var r StickRecord
		if err := rows.Scan(&r.StickID, &r.Left, &r.Right, &r.Top, &r.Bottom); err != nil {
			return nil, fmt.Errorf("scan barline stick row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
