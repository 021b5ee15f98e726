package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/freqdash/freqdash/internal/domain"
)

const statusCacheKey = "status"

// scanStrategies lists <dir>/*.py except __init__.py. A missing dir yields none.
func scanStrategies(dir string) ([]domain.Strategy, error) {
	out := []domain.Strategy{}
	info, err := os.Stat(dir)
	if errors.Is(err, os.ErrNotExist) {
		return out, nil
	}
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}
	matches, err := filepath.Glob(filepath.Join(dir, "*.py"))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	for _, path := range matches {
		base := filepath.Base(path)
		if base == "__init__.py" {
			continue
		}
		out = append(out, domain.Strategy{Name: strings.TrimSuffix(base, ".py"), Path: path})
	}
	return out, nil
}

// fetchStatus returns the stdout of `freqtrade status`, cached for StatusCacheTTL.
func (s *Server) fetchStatus(ctx context.Context) (string, error) {
	load := func() (string, error) {
		res, err := s.runner.Run(ctx, s.cfg.FreqtradeBin, "status")
		if err != nil {
			return "", err
		}
		if res.ExitCode != 0 {
			log.WithField("exit_code", res.ExitCode).Warnf("freqtrade status: %s", strings.TrimSpace(string(res.Stderr)))
		}
		return string(res.Stdout), nil
	}
	if s.cfg.StatusCacheTTL <= 0 {
		return load()
	}
	return s.statusCache.GetOrLoad(statusCacheKey, load)
}

// exportTrades runs the export and returns the file's JSON. A missing file gives "[]".
func (s *Server) exportTrades(ctx context.Context) (json.RawMessage, error) {
	res, err := s.runner.Run(ctx, s.cfg.FreqtradeBin, "trades", "--export", s.cfg.TradesExport)
	if err != nil {
		return nil, err
	}
	if res.ExitCode != 0 {
		log.WithField("exit_code", res.ExitCode).Warnf("freqtrade trades: %s", strings.TrimSpace(string(res.Stderr)))
	}
	b, err := os.ReadFile(s.cfg.TradesExport)
	if errors.Is(err, os.ErrNotExist) {
		return json.RawMessage("[]"), nil
	}
	if err != nil {
		return nil, err
	}
	if !json.Valid(b) {
		return nil, fmt.Errorf("%s does not contain valid JSON", s.cfg.TradesExport)
	}
	return json.RawMessage(b), nil
}

type startResult struct {
	Run            Run
	AlreadyRunning bool
}

func (s *Server) startRun(ctx context.Context, req domain.StartRequest) (startResult, error) {
	s.procMu.Lock()
	defer s.procMu.Unlock()

	active, err := s.activeRun(ctx)
	if err != nil {
		return startResult{}, fmt.Errorf("db get: %w", err)
	}
	if active != nil {
		if active.PID != nil && s.runner.Alive(*active.PID) {
			return startResult{Run: *active, AlreadyRunning: true}, nil
		}
		// stale row from a process that died while we were not watching
		_ = s.markRunStopped(ctx, active.ID, nil, ptrString("process not found"))
	}

	run := Run{
		ID:          uuid.NewString(),
		Strategy:    req.Name,
		Description: req.Description,
		StartedAt:   s.now(),
	}
	run.LogPath = filepath.Join(s.cfg.LogsDir, "run-"+run.ID+".log")

	args := []string{"trade", "--strategy", req.Name, "--config", s.cfg.BaseConfig}
	if len(req.Config) > 0 {
		path, err := s.writeOverlay(run.ID, req.Config)
		if err != nil {
			return startResult{}, err
		}
		run.ConfigPath = &path
		args = append(args, "--config", path)
	}

	// the row goes in first so an instant exit still finds it
	if err := s.insertRun(ctx, run); err != nil {
		return startResult{}, err
	}
	runID := run.ID
	pid, err := s.runner.Spawn(s.cfg.FreqtradeBin, args, run.LogPath, func(exitCode int, waitErr error) {
		var lastErr *string
		if waitErr != nil {
			lastErr = ptrString(waitErr.Error())
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := s.markRunStopped(ctx, runID, &exitCode, lastErr); err != nil {
			log.WithField("run_id", runID).Warnf("record exit: %v", err)
		}
		log.WithFields(logrus.Fields{"run_id": runID, "exit_code": exitCode}).Info("trading process exited")
	})
	if err != nil {
		_ = s.markRunStopped(ctx, runID, nil, ptrString(err.Error()))
		return startResult{}, err
	}
	run.PID = &pid
	if err := s.setRunPID(ctx, runID, pid); err != nil {
		return startResult{}, err
	}
	s.statusCache.Delete(statusCacheKey)
	log.WithFields(logrus.Fields{"run_id": run.ID, "strategy": run.Strategy, "pid": pid}).Info("trading started")
	return startResult{Run: run}, nil
}

func (s *Server) writeOverlay(runID string, config map[string]any) (string, error) {
	dir := filepath.Join(s.cfg.DataDir, "runs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	b, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode config: %w", err)
	}
	path := filepath.Join(dir, runID+".json")
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return "", err
	}
	return path, nil
}

// stopRun stops the tracked run if it is alive, and otherwise falls back to the
// configured stop command.
func (s *Server) stopRun(ctx context.Context) error {
	s.procMu.Lock()
	defer s.procMu.Unlock()
	defer s.statusCache.Delete(statusCacheKey)

	active, err := s.activeRun(ctx)
	if err != nil {
		return fmt.Errorf("db get: %w", err)
	}
	if active != nil && active.PID != nil && s.runner.Alive(*active.PID) {
		killed, err := s.runner.Terminate(*active.PID, s.cfg.StopTimeout)
		if err != nil {
			return fmt.Errorf("stop pid %d: %w", *active.PID, err)
		}
		var note *string
		if killed {
			note = ptrString(fmt.Sprintf("killed after %s", s.cfg.StopTimeout))
			log.WithField("run_id", active.ID).Warn("trading process ignored SIGTERM, killed")
		}
		if err := s.markRunStopped(ctx, active.ID, nil, note); err != nil {
			return err
		}
		log.WithField("run_id", active.ID).Info("trading stopped")
		return nil
	}
	if active != nil {
		_ = s.markRunStopped(ctx, active.ID, nil, ptrString("process not found"))
	}

	res, err := s.runner.Run(ctx, s.cfg.FreqtradeBin, s.cfg.StopArgs...)
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		log.WithField("exit_code", res.ExitCode).Warnf("freqtrade %s: %s", strings.Join(s.cfg.StopArgs, " "), strings.TrimSpace(string(res.Stderr)))
	}
	return nil
}

func ptrString(s string) *string { return &s }
