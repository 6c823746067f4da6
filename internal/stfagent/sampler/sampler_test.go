package sampler

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/epic-swf/stfmon/internal/stfagent/discovery"
)

var baseTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedNow() time.Time {
	return baseTime
}

func candidateCreatedAt(ts time.Time) discovery.Candidate {
	return discovery.Candidate{
		Path:         "/data/run_1_stf_1.stf",
		SizeBytes:    1024,
		CreationTime: ts,
	}
}

func TestLookbackWindow(t *testing.T) {
	lookback := time.Minute
	// Fraction 1 so the trial never rejects; only the window decides.
	s := NewWithSource(lookback, 1.0, fixedNow, func() float64 { return 0 })

	tests := map[string]struct {
		createdAt time.Time
		expected  Outcome
	}{
		"created now":           {baseTime, Accepted},
		"just inside window":    {baseTime.Add(-lookback + time.Millisecond), Accepted},
		"exactly on boundary":   {baseTime.Add(-lookback), RejectedStale},
		"just outside window":   {baseTime.Add(-lookback - time.Millisecond), RejectedStale},
		"well before window":    {baseTime.Add(-24 * time.Hour), RejectedStale},
		"created in the future": {baseTime.Add(time.Second), Accepted},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.expected, s.Accept(candidateCreatedAt(tc.createdAt)))
		})
	}
}

func TestFractionZeroRejectsEverything(t *testing.T) {
	s := NewWithSource(time.Minute, 0.0, fixedNow, rand.New(rand.NewSource(1)).Float64)
	for i := 0; i < 1000; i++ {
		assert.Equal(t, RejectedNotSelected, s.Accept(candidateCreatedAt(baseTime)))
	}
}

func TestFractionOneAcceptsEverything(t *testing.T) {
	s := NewWithSource(time.Minute, 1.0, fixedNow, rand.New(rand.NewSource(1)).Float64)
	for i := 0; i < 1000; i++ {
		assert.Equal(t, Accepted, s.Accept(candidateCreatedAt(baseTime)))
	}
}

func TestFractionConvergesOverManyTrials(t *testing.T) {
	const n = 100000
	s := NewWithSource(time.Minute, 0.1, fixedNow, rand.New(rand.NewSource(42)).Float64)
	accepted := 0
	for i := 0; i < n; i++ {
		if s.Accept(candidateCreatedAt(baseTime)) == Accepted {
			accepted++
		}
	}
	rate := float64(accepted) / float64(n)
	assert.InDelta(t, 0.1, rate, 0.01)
}

func TestStaleTakesPrecedenceOverTrial(t *testing.T) {
	// The trial would accept, but the window check runs first.
	s := NewWithSource(time.Minute, 1.0, fixedNow, func() float64 { return 0 })
	outcome := s.Accept(candidateCreatedAt(baseTime.Add(-time.Hour)))
	assert.Equal(t, RejectedStale, outcome)
}
