package transact

import "time"

// Handler advances a transaction one step: it inspects/mutates ts and
// returns the NextAction to dispatch on next. Exactly one Handler is
// registered per NextAction.
type Handler func(ts *TransactionState) NextAction

// Hook is a plugin callback point: invoked exactly
// once per transit of its NextAction, may mutate ts, and returns whether
// the transaction should continue or fault into the error path.
type Hook func(ts *TransactionState) HookResult

// HookResult is a hook's verdict.
type HookResult int

const (
	HookContinue HookResult = iota
	HookError
)

// FSM drives one TransactionState through its NextAction states until
// ActionTransactionDone, invoking registered hooks and handlers in the
// order every transaction follows.
type FSM struct {
	Handlers map[NextAction]Handler
	Hooks    map[NextAction][]Hook
	Now      func() time.Time
}

// NewFSM returns an FSM with no handlers or hooks registered; callers
// populate Handlers for every NextAction they want to drive and Hooks for
// any hook points they want callbacks at.
func NewFSM() *FSM {
	return &FSM{
		Handlers: make(map[NextAction]Handler),
		Hooks:    make(map[NextAction][]Hook),
		Now:      time.Now,
	}
}

// Register installs h as the single handler for action, panicking if one
// is already registered — the NextAction set is closed and each member
// has exactly one handler.
func (f *FSM) Register(action NextAction, h Handler) {
	if _, exists := f.Handlers[action]; exists {
		panic("transact: handler already registered for " + action.String())
	}
	f.Handlers[action] = h
}

// RegisterHook appends hook to the callback points fired when the FSM
// transits action.
func (f *FSM) RegisterHook(action NextAction, hook Hook) {
	f.Hooks[action] = append(f.Hooks[action], hook)
}

// Run drives ts to completion (ActionTransactionDone) or until a handler
// is missing for the current NextAction:
//
//	loop:
//	  state = current.next_action
//	  invoke hook(state)
//	  dispatch on state → handler
//	  handler mutates current, sets current.next_action = <new>
//	  if current.next_action == Done: break
func (f *FSM) Run(ts *TransactionState) {
	for {
		action := ts.NextAction
		ts.Mark(action, f.Now())

		faulted := false
		for _, hook := range f.Hooks[action] {
			if hook(ts) == HookError {
				ts.Err = NewError(ErrAPIError, nil)
				ts.NextAction = ActionError
				faulted = true
				break
			}
		}
		if faulted {
			continue
		}

		handler, ok := f.Handlers[action]
		if !ok {
			return
		}
		next := handler(ts)
		ts.NextAction = next
		if ts.NextAction.Done() {
			ts.Mark(ts.NextAction, f.Now())
			return
		}
	}
}
