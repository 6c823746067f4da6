package discovery

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("stf payload"), 0o644))
	return path
}

func paths(candidates []Candidate) []string {
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, c.Path)
	}
	sort.Strings(out)
	return out
}

func TestScanDirectory(t *testing.T) {
	dir := t.TempDir()
	matching := writeFile(t, dir, "run_1_stf_001.stf")
	writeFile(t, dir, "run_1.log")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "run_1_stf_002.stf"), 0o755))

	candidates := ScanDirectory(dir, []string{"*.stf"})
	assert.Equal(t, []string{matching}, paths(candidates))
	assert.Equal(t, int64(len("stf payload")), candidates[0].SizeBytes)
	assert.WithinDuration(t, time.Now(), candidates[0].CreationTime, time.Minute)
}

func TestScanDirectoryMultiplePatterns(t *testing.T) {
	dir := t.TempDir()
	stf := writeFile(t, dir, "run_1_stf_001.stf")
	dat := writeFile(t, dir, "run_1_stf_002.dat")
	writeFile(t, dir, "run_1.log")

	candidates := ScanDirectory(dir, []string{"*.stf", "*.dat"})
	assert.Equal(t, []string{stf, dat}, paths(candidates))
}

func TestScanDirectoryMissingDir(t *testing.T) {
	candidates := ScanDirectory(filepath.Join(t.TempDir(), "nope"), []string{"*.stf"})
	assert.Empty(t, candidates)
}

func TestScanDirectorySingleFile(t *testing.T) {
	// Triggers may name a file rather than a directory.
	dir := t.TempDir()
	path := writeFile(t, dir, "run_1_stf_001.stf")

	candidates := ScanDirectory(path, []string{"*.stf"})
	assert.Equal(t, []string{path}, paths(candidates))

	// The pattern filter still applies to a direct file path.
	candidates = ScanDirectory(path, []string{"*.dat"})
	assert.Empty(t, candidates)
}

func TestScanSourceDeduplicatesAcrossScans(t *testing.T) {
	dir := t.TempDir()
	first := writeFile(t, dir, "run_1_stf_001.stf")

	source, err := NewScanSource([]string{dir}, []string{"*.stf"}, 10*time.Millisecond, 100, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := make(chan Candidate, 100)
	done := make(chan struct{})
	go func() {
		_ = source.Run(ctx, out)
		close(done)
	}()

	assert.Equal(t, first, (<-out).Path)

	// Add a second file; only it should be yielded on subsequent scans.
	second := writeFile(t, dir, "run_1_stf_002.stf")
	assert.Equal(t, second, (<-out).Path)

	// Let a few more scan cycles run, then verify nothing was re-yielded.
	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done
	close(out)
	for c := range out {
		t.Errorf("unexpected re-yielded candidate %s", c.Path)
	}
}

func TestScanSourceReYieldsAfterCacheEviction(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "run_1_stf_001.stf")
	writeFile(t, dir, "run_1_stf_002.stf")

	// Cache of one entry: the first path is evicted as soon as the second
	// is added, so rescans keep yielding.
	source, err := NewScanSource([]string{dir}, []string{"*.stf"}, 5*time.Millisecond, 1, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	out := make(chan Candidate, 1000)
	done := make(chan struct{})
	go func() {
		_ = source.Run(ctx, out)
		close(done)
	}()
	<-done

	seen := map[string]int{}
	close(out)
	for c := range out {
		seen[filepath.Base(c.Path)]++
	}
	assert.Greater(t, seen["run_1_stf_001.stf"], 1)
}

func TestMatchesAny(t *testing.T) {
	assert.True(t, matchesAny("run_1_stf_001.stf", []string{"*.dat", "*.stf"}))
	assert.False(t, matchesAny("run_1.log", []string{"*.dat", "*.stf"}))
	assert.False(t, matchesAny("run_1.stf", nil))
}
