package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseActionKind(t *testing.T) {
	tests := []struct {
		input string
		want  ActionKind
	}{
		{"call", Call},
		{"c", Call},
		{"RAISE", Raise},
		{"k", Check},
		{" fold ", Fold},
		{"start", Start},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseActionKind(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseActionKind("allin")
	assert.Error(t, err)
}

func TestActionKindClassification(t *testing.T) {
	for _, k := range []ActionKind{Call, Raise, Check, Fold} {
		assert.True(t, k.Submittable(), k.String())
		assert.True(t, k.Observed(), k.String())
	}
	for _, k := range []ActionKind{Idle, AllIn} {
		assert.False(t, k.Submittable(), k.String())
		assert.True(t, k.Observed(), k.String())
	}
	assert.False(t, Start.Observed())
	assert.False(t, Start.Submittable())
	assert.False(t, ActionKind(0).Observed())
	assert.Equal(t, "action(9)", ActionKind(9).String())
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "pending", Pending.String())
	assert.Equal(t, "in progress", InProgress.String())
	assert.Equal(t, "ended", Ended.String())
	assert.False(t, Status(3).Valid())
}
