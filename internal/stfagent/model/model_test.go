package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	allowed := map[FileStatus]map[FileStatus]bool{
		FileRegistered: {FileProcessing: true},
		FileProcessing: {FileProcessed: true, FileFailed: true},
		FileProcessed:  {FileDone: true},
		FileFailed:     {},
		FileDone:       {},
	}
	for _, from := range AllFileStatuses {
		for _, to := range AllFileStatuses {
			assert.Equal(
				t, allowed[from][to], from.CanTransition(to),
				"transition %s -> %s", from, to,
			)
		}
	}
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, FileRegistered.IsTerminal())
	assert.False(t, FileProcessing.IsTerminal())
	assert.False(t, FileProcessed.IsTerminal())
	assert.True(t, FileFailed.IsTerminal())
	assert.True(t, FileDone.IsTerminal())
}

func TestUnknownStatusHasNoTransitions(t *testing.T) {
	bogus := FileStatus("archived")
	for _, to := range AllFileStatuses {
		assert.False(t, bogus.CanTransition(to))
	}
	assert.True(t, bogus.IsTerminal())
}
