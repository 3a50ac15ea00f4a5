package domain

import "fmt"

// TransactionState is the lifecycle state of a lending transaction.
type TransactionState string

// Lending transaction states.
const (
	StateInitialRequest TransactionState = "initial_request"
	StateApproved       TransactionState = "approved"
	StateRejected       TransactionState = "rejected"
	StateLent           TransactionState = "lent"
	StateReturned       TransactionState = "returned"
	StateExtension      TransactionState = "extension"
	StateLost           TransactionState = "lost"
)

var transactionStates = []TransactionState{
	StateInitialRequest,
	StateApproved,
	StateRejected,
	StateLent,
	StateReturned,
	StateExtension,
	StateLost,
}

// TransactionStates lists every state in declaration order.
func TransactionStates() []TransactionState {
	out := make([]TransactionState, len(transactionStates))
	copy(out, transactionStates)
	return out
}

// Valid reports whether the state is known.
func (s TransactionState) Valid() bool {
	for _, known := range transactionStates {
		if s == known {
			return true
		}
	}
	return false
}

// IsActive reports whether the transaction still holds the copy.
func (s TransactionState) IsActive() bool {
	switch s {
	case StateInitialRequest, StateApproved, StateLent, StateExtension:
		return true
	}
	return false
}

// IsTerminal reports whether the state ends the transaction.
func (s TransactionState) IsTerminal() bool {
	return s.Valid() && !s.IsActive()
}

// DeriveStatus maps a transaction state to the status its copy must carry.
// It is applied after every state change, including the free-form edit.
func DeriveStatus(state TransactionState) BookStatus {
	switch {
	case state.IsActive():
		return StatusOutForRent
	case state == StateLost:
		return StatusUnavailable
	default:
		return StatusAvailable
	}
}

// ReplyEvent is an owner's answer to a borrow request.
type ReplyEvent string

// Reply events.
const (
	ReplyApprove ReplyEvent = "approve"
	ReplyReject  ReplyEvent = "reject"
)

// ReplyFor maps the accept flag to a reply event.
func ReplyFor(accept bool) ReplyEvent {
	if accept {
		return ReplyApprove
	}
	return ReplyReject
}

type replyEdge struct {
	from  TransactionState
	event ReplyEvent
}

var replyTransitions = map[replyEdge]TransactionState{
	{StateInitialRequest, ReplyApprove}: StateApproved,
	{StateInitialRequest, ReplyReject}:  StateRejected,
}

// InvalidTransitionError reports a reply on a transaction in the wrong state.
type InvalidTransitionError struct {
	From  TransactionState
	Event ReplyEvent
}

func (e InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot %s a transaction in state %q", e.Event, e.From)
}

// ApplyReply returns the state reached by applying event to from.
func ApplyReply(from TransactionState, event ReplyEvent) (TransactionState, error) {
	to, ok := replyTransitions[replyEdge{from: from, event: event}]
	if !ok {
		return from, InvalidTransitionError{From: from, Event: event}
	}
	return to, nil
}
