package scheduler

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"unicms/backend/internal/traffic"
	"unicms/backend/pkg/logger"
)

// staleUploadAge is how long a staged raw upload may sit in the staging
// directory before the sweeper collects it. Staged files normally disappear
// right after optimization; survivors mean a failed or abandoned upload.
const staleUploadAge = time.Hour

// Sweeper periodically evicts idle limiter state and collects stale staged
// uploads.
type Sweeper struct {
	guard          *traffic.Guard
	throttle       *traffic.Throttle
	tempUploadsDir string
	interval       time.Duration
	stopCh         chan struct{}
	wg             sync.WaitGroup
}

func New(guard *traffic.Guard, throttle *traffic.Throttle, tempUploadsDir string, interval time.Duration) *Sweeper {
	return &Sweeper{
		guard:          guard,
		throttle:       throttle,
		tempUploadsDir: tempUploadsDir,
		interval:       interval,
		stopCh:         make(chan struct{}),
	}
}

func (s *Sweeper) Start() {
	s.wg.Add(1)
	go s.run()
	logger.Info("sweeper started", "interval", s.interval)
}

func (s *Sweeper) Stop() {
	close(s.stopCh)
	s.wg.Wait()
	logger.Info("sweeper stopped")
}

func (s *Sweeper) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stopCh:
			return
		}
	}
}

func (s *Sweeper) sweep() {
	evictedClients := s.guard.Sweep()
	evictedCounters := s.throttle.Sweep()
	removedUploads := s.collectStaleUploads()

	if evictedClients > 0 || evictedCounters > 0 || removedUploads > 0 {
		logger.Debug("sweep completed",
			"evictedClients", evictedClients,
			"evictedCounters", evictedCounters,
			"removedUploads", removedUploads)
	}
}

// collectStaleUploads removes staged files older than staleUploadAge and
// returns how many were removed.
func (s *Sweeper) collectStaleUploads() int {
	entries, err := os.ReadDir(s.tempUploadsDir)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("failed to scan staging directory", "dir", s.tempUploadsDir, "error", err)
		}
		return 0
	}

	cutoff := time.Now().Add(-staleUploadAge)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}

		path := filepath.Join(s.tempUploadsDir, entry.Name())
		if err := os.Remove(path); err != nil {
			logger.Warn("failed to remove stale upload", "path", path, "error", err)
			continue
		}
		removed++
	}

	if removed > 0 {
		logger.Info("collected stale staged uploads", "count", removed)
	}
	return removed
}
