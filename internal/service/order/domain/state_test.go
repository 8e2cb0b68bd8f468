package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition_Table(t *testing.T) {
	allowed := map[State][]State{
		StateDraft:             {StateProcessingPayment},
		StateProcessingPayment: {StateFailedPayment, StatePaid, StateCancelled},
		StateFailedPayment:     {StateProcessingPayment, StateCancelled},
		StatePaid:              {StatePendingShipping, StateRefunded},
		StatePendingShipping:   {StateShipped, StateRefunded},
		StateShipped:           {StateDelivered, StateRefunded},
		StateDelivered:         {StateRefunded},
	}

	for _, from := range AllStates() {
		for _, to := range AllStates() {
			want := false
			for _, s := range allowed[from] {
				if s == to {
					want = true
				}
			}
			assert.Equal(t, want, CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestCanTransition_TerminalStatesHaveNoExits(t *testing.T) {
	for _, terminal := range []State{StateCancelled, StateRefunded} {
		assert.True(t, terminal.IsTerminal())
		for _, to := range AllStates() {
			assert.False(t, CanTransition(terminal, to), "%s -> %s", terminal, to)
		}
		assert.False(t, CanTransition(terminal, State("SOMETHING_ELSE")))
	}
}

func TestCanTransition_SelfTransitionsAreIllegal(t *testing.T) {
	for _, s := range AllStates() {
		assert.False(t, CanTransition(s, s), "%s -> %s", s, s)
	}
}

func TestCanTransition_UnknownStates(t *testing.T) {
	assert.False(t, CanTransition(State("BOGUS"), StateDraft))
	assert.False(t, CanTransition(StateDraft, State("BOGUS")))
}

func TestIsTerminal_OnlyCancelledAndRefunded(t *testing.T) {
	for _, s := range AllStates() {
		want := s == StateCancelled || s == StateRefunded
		assert.Equal(t, want, s.IsTerminal(), string(s))
	}
	assert.False(t, State("BOGUS").IsTerminal())
}

func TestParseState(t *testing.T) {
	s, err := ParseState("PENDING_SHIPPING")
	require.NoError(t, err)
	assert.Equal(t, StatePendingShipping, s)

	_, err = ParseState("pending_shipping")
	assert.Error(t, err)
}
