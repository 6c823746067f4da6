package stfevents

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	in := &StfFileNotification{
		MsgType:       MsgTypeStfFileRegistered,
		FileID:        uuid.New(),
		RunNumber:     100123,
		StfIdentifier: 42,
		FileURL:       "file:///data/run_100123_stf_042.stf",
		SizeBytes:     2 << 20,
		Checksum:      "d41d8cd98f00b204e9800998ecf8427e",
		Status:        "processed",
		CreatedAt:     time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		ProcessedAt:   time.Date(2024, 3, 1, 12, 0, 5, 0, time.UTC),
	}
	payload, err := in.Marshal()
	require.NoError(t, err)

	out, err := Unmarshal(payload)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestUnmarshalRejectsBadMessages(t *testing.T) {
	valid := &StfFileNotification{
		MsgType: MsgTypeStfFileRegistered,
		FileID:  uuid.New(),
		FileURL: "file:///data/run_1_stf_1.stf",
	}

	tests := map[string]func(n *StfFileNotification){
		"wrong msg_type":   func(n *StfFileNotification) { n.MsgType = "run_imminent" },
		"missing msg_type": func(n *StfFileNotification) { n.MsgType = "" },
		"missing file_id":  func(n *StfFileNotification) { n.FileID = uuid.Nil },
		"missing file_url": func(n *StfFileNotification) { n.FileURL = "" },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			n := *valid
			mutate(&n)
			payload, err := n.Marshal()
			require.NoError(t, err)
			_, err = Unmarshal(payload)
			assert.Error(t, err)
		})
	}
}

func TestUnmarshalRejectsInvalidJson(t *testing.T) {
	_, err := Unmarshal([]byte("not json at all"))
	assert.Error(t, err)
}
