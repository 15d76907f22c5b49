package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGameStatusUnmarshal(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    GameStatus
		wantErr bool
	}{
		{name: "playing", input: `"playing"`, want: GameStatusPlaying},
		{name: "backlog", input: `"backlog"`, want: GameStatusBacklog},
		{name: "completed", input: `"completed"`, want: GameStatusCompleted},
		{name: "abandoned", input: `"abandoned"`, want: GameStatusAbandoned},
		{name: "unknown value", input: `"finished"`, wantErr: true},
		{name: "wrong case", input: `"Playing"`, wantErr: true},
		{name: "not a string", input: `3`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got GameStatus
			err := json.Unmarshal([]byte(tt.input), &got)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestQuestStatusRejectsUnknownInsideStruct(t *testing.T) {
	var body struct {
		Status *QuestStatus `json:"status"`
	}

	require.NoError(t, json.Unmarshal([]byte(`{"status":"in_progress"}`), &body))
	require.NotNil(t, body.Status)
	assert.Equal(t, QuestStatusInProgress, *body.Status)

	err := json.Unmarshal([]byte(`{"status":"done"}`), &body)
	assert.ErrorContains(t, err, "invalid quest status")
}

func TestHintTypeValid(t *testing.T) {
	assert.True(t, HintTypeGeneral.Valid())
	assert.True(t, HintTypeSpecific.Valid())
	assert.True(t, HintTypeSolution.Valid())
	assert.False(t, HintType("").Valid())
	assert.False(t, HintType("spoiler").Valid())

	var hintType HintType
	assert.Error(t, json.Unmarshal([]byte(`"spoiler"`), &hintType))
}
