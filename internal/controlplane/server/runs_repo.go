package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Run is one `freqtrade trade` process started by this server.
type Run struct {
	ID          string     `json:"id"`
	Strategy    string     `json:"strategy"`
	Description *string    `json:"description,omitempty"`
	ConfigPath  *string    `json:"config_path,omitempty"`
	LogPath     string     `json:"log_path"`
	PID         *int       `json:"pid,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	StoppedAt   *time.Time `json:"stopped_at,omitempty"`
	ExitCode    *int       `json:"exit_code,omitempty"`
	LastError   *string    `json:"last_error,omitempty"`
}

// timeLayout is fixed-width UTC so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const runColumns = `id,strategy,description,config_path,log_path,pid,started_at,stopped_at,exit_code,last_error`

func (s *Server) insertRun(ctx context.Context, r Run) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO runs (id,strategy,description,config_path,log_path,pid,started_at)
VALUES (?,?,?,?,?,?,?)
`, r.ID, r.Strategy, r.Description, r.ConfigPath, r.LogPath, r.PID, r.StartedAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

func (s *Server) setRunPID(ctx context.Context, id string, pid int) error {
	if _, err := s.db.ExecContext(ctx, `UPDATE runs SET pid=? WHERE id=?`, pid, id); err != nil {
		return fmt.Errorf("set run pid: %w", err)
	}
	return nil
}

// activeRun returns the newest run not yet marked stopped, or nil.
func (s *Server) activeRun(ctx context.Context) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT `+runColumns+`
FROM runs WHERE stopped_at IS NULL ORDER BY started_at DESC, rowid DESC LIMIT 1
`)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return r, err
}

func (s *Server) getRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id=?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return r, err
}

// markRunStopped records the end of a run. Only the first call for a run sticks.
func (s *Server) markRunStopped(ctx context.Context, id string, exitCode *int, lastErr *string) error {
	_, err := s.db.ExecContext(ctx, `
UPDATE runs SET stopped_at=?, exit_code=?, last_error=?
WHERE id=? AND stopped_at IS NULL
`, s.now().UTC().Format(timeLayout), exitCode, lastErr, id)
	if err != nil {
		return fmt.Errorf("mark run stopped: %w", err)
	}
	return nil
}

func (s *Server) listRuns(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT `+runColumns+`
FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?
`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var (
		r                   Run
		description, config sql.NullString
		lastErr, stoppedAt  sql.NullString
		pid, exitCode       sql.NullInt64
		startedAt           string
	)
	if err := row.Scan(&r.ID, &r.Strategy, &description, &config, &r.LogPath, &pid, &startedAt, &stoppedAt, &exitCode, &lastErr); err != nil {
		return nil, err
	}
	if description.Valid {
		r.Description = &description.String
	}
	if config.Valid {
		r.ConfigPath = &config.String
	}
	if pid.Valid {
		v := int(pid.Int64)
		r.PID = &v
	}
	r.StartedAt, _ = time.Parse(timeLayout, startedAt)
	if stoppedAt.Valid {
		t, _ := time.Parse(timeLayout, stoppedAt.String)
		r.StoppedAt = &t
	}
	if exitCode.Valid {
		v := int(exitCode.Int64)
		r.ExitCode = &v
	}
	if lastErr.Valid {
		r.LastError = &lastErr.String
	}
	return &r, nil
}
