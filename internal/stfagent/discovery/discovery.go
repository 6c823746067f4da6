// Package discovery produces file-appearance candidates for the sampling
// pipeline. Sources only produce candidates; accept/reject decisions belong
// to the sampler and the ledger downstream.
package discovery

import (
	"context"
	"os"
	"path/filepath"
	"time"

	lru "github.com/hashicorp/golang-lru/simplelru"
	log "github.com/sirupsen/logrus"

	"github.com/epic-swf/stfmon/internal/stfagent/metrics"
)

// Candidate is a file that has appeared and may be sampled.
type Candidate struct {
	Path         string
	SizeBytes    int64
	CreationTime time.Time
}

// Source yields candidates onto out until ctx is cancelled.
type Source interface {
	Run(ctx context.Context, out chan<- Candidate) error
}

// ScanSource polls a set of directories at a fixed interval. A bounded LRU
// of recently yielded paths prevents the same path from being re-yielded on
// every tick before the ledger has recorded it; once a path ages out of the
// cache the ledger's file_url uniqueness keeps re-yields harmless.
type ScanSource struct {
	directories  []string
	patterns     []string
	scanInterval time.Duration
	recent       *lru.LRU
	metrics      *metrics.Metrics
}

func NewScanSource(directories []string, patterns []string, scanInterval time.Duration, cacheSize int, m *metrics.Metrics) (*ScanSource, error) {
	cache, err := lru.NewLRU(cacheSize, nil)
	if err != nil {
		return nil, err
	}
	return &ScanSource{
		directories:  directories,
		patterns:     patterns,
		scanInterval: scanInterval,
		recent:       cache,
		metrics:      m,
	}, nil
}

func (s *ScanSource) Run(ctx context.Context, out chan<- Candidate) error {
	ticker := time.NewTicker(s.scanInterval)
	defer ticker.Stop()

	log.WithField("directories", s.directories).Info("Starting directory scan source")

	// Scan immediately rather than waiting out the first interval.
	s.scanOnce(ctx, out)
	for {
		select {
		case <-ctx.Done():
			log.Info("Shutting down directory scan source")
			return nil
		case <-ticker.C:
			s.scanOnce(ctx, out)
		}
	}
}

func (s *ScanSource) scanOnce(ctx context.Context, out chan<- Candidate) {
	for _, dir := range s.directories {
		for _, candidate := range ScanDirectory(dir, s.patterns) {
			if _, seen := s.recent.Get(candidate.Path); seen {
				continue
			}
			s.recent.Add(candidate.Path, struct{}{})
			if s.metrics != nil {
				s.metrics.RecordCandidateDiscovered()
			}
			select {
			case out <- candidate:
			case <-ctx.Done():
				return
			}
		}
	}
}

// ScanDirectory returns all regular files in dir matching any of the glob
// patterns. Unreadable directories are logged and skipped; discovery errors
// are never fatal, the next cycle retries.
func ScanDirectory(dir string, patterns []string) []Candidate {
	info, err := os.Stat(dir)
	if err != nil {
		log.WithError(err).Warnf("Watch directory not readable: %s", dir)
		return nil
	}
	if !info.IsDir() {
		// A trigger may name a single file directly.
		if c, ok := statCandidate(dir, patterns); ok {
			return []Candidate{c}
		}
		return nil
	}

	var candidates []Candidate
	for _, pattern := range patterns {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			log.WithError(err).Errorf("Invalid file pattern %q", pattern)
			continue
		}
		for _, match := range matches {
			if c, ok := statCandidate(match, nil); ok {
				candidates = append(candidates, c)
			}
		}
	}
	return candidates
}

func statCandidate(path string, patterns []string) (Candidate, bool) {
	if patterns != nil && !matchesAny(filepath.Base(path), patterns) {
		return Candidate{}, false
	}
	info, err := os.Stat(path)
	if err != nil {
		log.WithError(err).Warnf("Cannot stat %s", path)
		return Candidate{}, false
	}
	if !info.Mode().IsRegular() {
		return Candidate{}, false
	}
	return Candidate{
		Path:         path,
		SizeBytes:    info.Size(),
		CreationTime: info.ModTime(),
	}, true
}

func matchesAny(name string, patterns []string) bool {
	for _, pattern := range patterns {
		if ok, err := filepath.Match(pattern, name); err == nil && ok {
			return true
		}
	}
	return false
}
