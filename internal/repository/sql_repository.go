package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"

	"print-scheduler/internal/models"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"
)

// SQLRepository implements EventRepository on database/sql for SQLite and Postgres
type SQLRepository struct {
	db       *sql.DB
	postgres bool
	timeout  time.Duration
}

// NewSQLiteRepository opens (or creates) a SQLite database file
func NewSQLiteRepository(dbPath string) (*SQLRepository, error) {
	return Open(DriverSQLite, dbPath+"?_journal_mode=WAL&_timeout=5000")
}

// NewPostgresRepository connects through the pgx stdlib driver
func NewPostgresRepository(dsn string) (*SQLRepository, error) {
	return Open(DriverPostgres, dsn)
}

// Open connects with one of the supported drivers and initializes the schema
func Open(driver, dsn string) (*SQLRepository, error) {
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	repo := &SQLRepository{db: db, postgres: driver == DriverPostgres, timeout: 5 * time.Second}
	if err := repo.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return repo, nil
}

// Close closes the database connection
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

func (r *SQLRepository) initSchema() error {
	realType := "REAL"
	if r.postgres {
		realType = "DOUBLE PRECISION"
	}
	statements := []string{
		`CREATE TABLE IF NOT EXISTS schedule_events (
			id TEXT PRIMARY KEY,
			job_id TEXT NOT NULL,
			staff_id TEXT NOT NULL DEFAULT '',
			machine_id TEXT NOT NULL DEFAULT '',
			start_time BIGINT NOT NULL,
			end_time BIGINT NOT NULL,
			notes TEXT NOT NULL DEFAULT '',
			is_auto_scheduled BOOLEAN NOT NULL,
			updated_at BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_job_id ON schedule_events(job_id)`,
		`CREATE INDEX IF NOT EXISTS idx_events_start_time ON schedule_events(start_time)`,
		`CREATE TABLE IF NOT EXISTS jobs (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL DEFAULT '',
			client TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			priority TEXT NOT NULL,
			job_type TEXT NOT NULL,
			deadline BIGINT,
			estimated_hours ` + realType + ` NOT NULL,
			required_machines TEXT NOT NULL DEFAULT '[]',
			dependencies TEXT NOT NULL DEFAULT '[]',
			assigned_to TEXT NOT NULL DEFAULT '',
			updated_at BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status)`,
	}
	for _, stmt := range statements {
		if _, err := r.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// ApplyChanges writes one drained batch of store changes in a single transaction
func (r *SQLRepository) ApplyChanges(ctx context.Context, changes []models.EventChange) error {
	if len(changes) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	upsert := r.rebind(`
		INSERT INTO schedule_events (id, job_id, staff_id, machine_id, start_time, end_time, notes, is_auto_scheduled, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			job_id = excluded.job_id,
			staff_id = excluded.staff_id,
			machine_id = excluded.machine_id,
			start_time = excluded.start_time,
			end_time = excluded.end_time,
			notes = excluded.notes,
			is_auto_scheduled = excluded.is_auto_scheduled,
			updated_at = excluded.updated_at
	`)
	del := r.rebind(`DELETE FROM schedule_events WHERE id = ?`)

	for _, c := range changes {
		e := c.Event
		switch c.Op {
		case models.ChangeCreate, models.ChangeUpdate:
			_, err = tx.ExecContext(ctx, upsert,
				e.ID,
				e.JobID,
				e.StaffID,
				e.MachineID,
				e.StartTime.UnixNano(),
				e.EndTime.UnixNano(),
				e.Notes,
				e.IsAutoScheduled,
				c.At.UnixNano(),
			)
		case models.ChangeDelete:
			_, err = tx.ExecContext(ctx, del, e.ID)
		default:
			err = fmt.Errorf("unknown change op %q", c.Op)
		}
		if err != nil {
			return fmt.Errorf("failed to apply %s of event %s: %w", c.Op, e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ListEvents returns the persisted snapshot ordered by start time
func (r *SQLRepository) ListEvents(ctx context.Context) ([]models.ScheduleEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT id, job_id, staff_id, machine_id, start_time, end_time, notes, is_auto_scheduled
		FROM schedule_events
		ORDER BY start_time ASC, id ASC
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []models.ScheduleEvent
	for rows.Next() {
		var e models.ScheduleEvent
		var start, end int64
		if err := rows.Scan(&e.ID, &e.JobID, &e.StaffID, &e.MachineID, &start, &end, &e.Notes, &e.IsAutoScheduled); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		e.StartTime = time.Unix(0, start).UTC()
		e.EndTime = time.Unix(0, end).UTC()
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate events: %w", err)
	}
	return events, nil
}

// UpsertJob stores the current state of a job
func (r *SQLRepository) UpsertJob(ctx context.Context, job models.Job) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	machines, err := json.Marshal(nonNil(job.RequiredMachines))
	if err != nil {
		return fmt.Errorf("failed to encode required machines: %w", err)
	}
	deps, err := json.Marshal(nonNil(job.Dependencies))
	if err != nil {
		return fmt.Errorf("failed to encode dependencies: %w", err)
	}

	// Zero deadline is stored as NULL
	var deadline interface{}
	if !job.Deadline.IsZero() {
		deadline = job.Deadline.UnixNano()
	}

	query := r.rebind(`
		INSERT INTO jobs (id, title, client, status, priority, job_type, deadline, estimated_hours,
		                  required_machines, dependencies, assigned_to, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			title = excluded.title,
			client = excluded.client,
			status = excluded.status,
			priority = excluded.priority,
			job_type = excluded.job_type,
			deadline = excluded.deadline,
			estimated_hours = excluded.estimated_hours,
			required_machines = excluded.required_machines,
			dependencies = excluded.dependencies,
			assigned_to = excluded.assigned_to,
			updated_at = excluded.updated_at
	`)
	_, err = r.db.ExecContext(ctx, query,
		job.ID,
		job.Title,
		job.Client,
		job.Status,
		job.Priority,
		job.JobType,
		deadline,
		job.EstimatedHours,
		string(machines),
		string(deps),
		job.AssignedTo,
		time.Now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert job: %w", err)
	}
	return nil
}

// ListJobs returns every stored job ordered by id
func (r *SQLRepository) ListJobs(ctx context.Context) ([]models.Job, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT id, title, client, status, priority, job_type, deadline, estimated_hours,
		       required_machines, dependencies, assigned_to
		FROM jobs
		ORDER BY id ASC
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query jobs: %w", err)
	}
	defer rows.Close()

	var jobs []models.Job
	for rows.Next() {
		var job models.Job
		var deadline sql.NullInt64
		var machines, deps string
		err := rows.Scan(
			&job.ID,
			&job.Title,
			&job.Client,
			&job.Status,
			&job.Priority,
			&job.JobType,
			&deadline,
			&job.EstimatedHours,
			&machines,
			&deps,
			&job.AssignedTo,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		if deadline.Valid {
			job.Deadline = time.Unix(0, deadline.Int64).UTC()
		}
		if err := json.Unmarshal([]byte(machines), &job.RequiredMachines); err != nil {
			return nil, fmt.Errorf("failed to decode required machines of job %s: %w", job.ID, err)
		}
		if err := json.Unmarshal([]byte(deps), &job.Dependencies); err != nil {
			return nil, fmt.Errorf("failed to decode dependencies of job %s: %w", job.ID, err)
		}
		jobs = append(jobs, job)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate jobs: %w", err)
	}
	return jobs, nil
}

// rebind rewrites ? placeholders to $1..$n for Postgres
func (r *SQLRepository) rebind(query string) string {
	if !r.postgres {
		return query
	}
	return Rebind(query)
}

// Rebind converts ? placeholders to Postgres positional parameters
func Rebind(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, ch := range query {
		if ch == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(ch)
	}
	return b.String()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
