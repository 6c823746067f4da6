package discovery

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/epic-swf/stfmon/internal/common/config"
)

func triggerPayload(t *testing.T, msgType, path string) []byte {
	t.Helper()
	payload, err := json.Marshal(TriggerMessage{MsgType: msgType, Path: path})
	require.NoError(t, err)
	return payload
}

func TestHandleTriggerScansNamedDirectory(t *testing.T) {
	dir := t.TempDir()
	stf := writeFile(t, dir, "run_1_stf_001.stf")
	writeFile(t, dir, "run_1.log")

	source := NewTriggerSource(config.PulsarConfig{}, "test", []string{"*.stf"}, nil)
	out := make(chan Candidate, 10)
	source.handleTrigger(context.Background(), triggerPayload(t, MsgTypeDataReady, dir), out)
	close(out)

	var got []Candidate
	for c := range out {
		got = append(got, c)
	}
	assert.Equal(t, []string{stf}, paths(got))
}

func TestHandleTriggerSingleFile(t *testing.T) {
	dir := t.TempDir()
	stf := writeFile(t, dir, "run_1_stf_001.stf")

	source := NewTriggerSource(config.PulsarConfig{}, "test", []string{"*.stf"}, nil)
	out := make(chan Candidate, 10)
	source.handleTrigger(context.Background(), triggerPayload(t, MsgTypeDataReady, stf), out)
	close(out)

	c, ok := <-out
	require.True(t, ok)
	assert.Equal(t, stf, c.Path)
}

func TestHandleTriggerIgnoresBadMessages(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "run_1_stf_001.stf")

	source := NewTriggerSource(config.PulsarConfig{}, "test", []string{"*.stf"}, nil)
	out := make(chan Candidate, 10)

	source.handleTrigger(context.Background(), []byte("not json"), out)
	source.handleTrigger(context.Background(), triggerPayload(t, "run_imminent", dir), out)
	source.handleTrigger(context.Background(), triggerPayload(t, MsgTypeDataReady, ""), out)
	close(out)

	_, ok := <-out
	assert.False(t, ok, "no candidates expected from bad triggers")
}
