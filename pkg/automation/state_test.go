package automation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStateTransitions(t *testing.T) {
	tests := []struct {
		from, to State
		legal    bool
	}{
		{StateUninitialized, StateReady, true},
		{StateUninitialized, StateClosed, true},
		{StateUninitialized, StateQuerying, false},
		{StateReady, StateQuerying, true},
		{StateReady, StateClosed, true},
		{StateReady, StateUninitialized, false},
		{StateQuerying, StateReady, true},
		{StateQuerying, StateClosed, true},
		{StateQuerying, StateQuerying, false},
		{StateClosed, StateReady, true},
		{StateClosed, StateClosed, true},
		{StateClosed, StateQuerying, false},
	}

	for _, tt := range tests {
		t.Run(tt.from.String()+"_to_"+tt.to.String(), func(t *testing.T) {
			assert.Equal(t, tt.legal, canTransition(tt.from, tt.to))
		})
	}
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "uninitialized", StateUninitialized.String())
	assert.Equal(t, "ready", StateReady.String())
	assert.Equal(t, "querying", StateQuerying.String())
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "unknown", State(42).String())
}
