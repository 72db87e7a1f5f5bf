package agent

import "fmt"

// TurnState is the position of a turn in the model/tool loop.
type TurnState string

const (
	TurnStateAwaitingModel    TurnState = "awaiting_model"
	TurnStateToolCallReceived TurnState = "tool_call_received"
	TurnStatePlanReceived     TurnState = "plan_received"
	TurnStateTextReceived     TurnState = "text_received"
	TurnStateFailed           TurnState = "failed"
	TurnStateCancelled        TurnState = "cancelled"
)

// IsTerminal reports whether no further transition is allowed from state.
func (s TurnState) IsTerminal() bool {
	switch s {
	case TurnStatePlanReceived, TurnStateTextReceived, TurnStateFailed, TurnStateCancelled:
		return true
	default:
		return false
	}
}

func validateTurnStateTransition(from, to TurnState) error {
	if from == to {
		return nil
	}

	allowed, ok := allowedTurnStateTransitions[from]
	if !ok {
		return fmt.Errorf("%w: unknown source state %q", ErrInvalidTurnTransition, from)
	}
	if _, ok := allowed[to]; !ok {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTurnTransition, from, to)
	}
	return nil
}

// TransitionTurnState moves state to the target when the transition is allowed.
func TransitionTurnState(state *TurnState, to TurnState) error {
	if err := validateTurnStateTransition(*state, to); err != nil {
		return err
	}
	*state = to
	return nil
}

var allowedTurnStateTransitions = map[TurnState]map[TurnState]struct{}{
	"": {
		TurnStateAwaitingModel: {},
	},
	TurnStateAwaitingModel: {
		TurnStateToolCallReceived: {},
		TurnStatePlanReceived:     {},
		TurnStateTextReceived:     {},
		TurnStateFailed:           {},
		TurnStateCancelled:        {},
	},
	TurnStateToolCallReceived: {
		TurnStateAwaitingModel: {},
		TurnStateFailed:        {},
		TurnStateCancelled:     {},
	},
	TurnStatePlanReceived: {},
	TurnStateTextReceived: {},
	TurnStateFailed:       {},
	TurnStateCancelled:    {},
}
