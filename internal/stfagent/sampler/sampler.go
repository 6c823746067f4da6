// Package sampler decides which discovered candidates become monitored
// files. Filtering is two-stage: a lookback window bounds the live working
// set, then an independent Bernoulli trial per candidate keeps the sampling
// rate stable under variable arrival rates without any shared counter.
package sampler

import (
	"math/rand"
	"time"

	"github.com/epic-swf/stfmon/internal/stfagent/discovery"
)

type Outcome string

const (
	// Accepted: the candidate proceeds to ingestion.
	Accepted Outcome = "accepted"
	// RejectedStale: creation time at or before now-lookback.
	RejectedStale Outcome = "stale"
	// RejectedNotSelected: in-window but lost the probability trial.
	// Rejections are not persisted anywhere; only accepted files exist in
	// the data model.
	RejectedNotSelected Outcome = "not_selected"
)

type Sampler struct {
	lookback time.Duration
	fraction float64

	// Injected for deterministic tests.
	now   func() time.Time
	trial func() float64
}

func New(lookback time.Duration, fraction float64) *Sampler {
	return &Sampler{
		lookback: lookback,
		fraction: fraction,
		now:      time.Now,
		trial:    rand.Float64,
	}
}

// NewWithSource returns a Sampler with an explicit clock and randomness
// source.
func NewWithSource(lookback time.Duration, fraction float64, now func() time.Time, trial func() float64) *Sampler {
	return &Sampler{
		lookback: lookback,
		fraction: fraction,
		now:      now,
		trial:    trial,
	}
}

// Accept classifies a single candidate. The window boundary is exclusive:
// a candidate created exactly lookback ago is stale.
func (s *Sampler) Accept(c discovery.Candidate) Outcome {
	cutoff := s.now().Add(-s.lookback)
	if !c.CreationTime.After(cutoff) {
		return RejectedStale
	}
	if s.trial() < s.fraction {
		return Accepted
	}
	return RejectedNotSelected
}
