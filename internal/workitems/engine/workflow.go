package engine

import (
	"fmt"
	"sort"
	"strings"
)

// TransitionError reports a status change the transition table forbids. The
// message names the attempted transition and the allowed successors so the
// caller can surface it directly.
type TransitionError struct {
	From    string
	To      string
	Allowed []string
}

func (e *TransitionError) Error() string {
	if len(e.Allowed) == 0 {
		return fmt.Sprintf("cannot transition from terminal status %q", e.From)
	}
	return fmt.Sprintf("cannot transition from %q to %q; allowed: %s", e.From, e.To, strings.Join(e.Allowed, ", "))
}

// Workflow is a state machine defined by a configured transition table.
type Workflow struct {
	transitions map[string][]string
}

// NewWorkflow creates a workflow from a transition table. The table maps
// each status to its allowed successors; statuses mapping to an empty list
// are terminal.
func NewWorkflow(transitions map[string][]string) *Workflow {
	copied := make(map[string][]string, len(transitions))
	for status, successors := range transitions {
		copied[status] = append([]string(nil), successors...)
	}
	return &Workflow{transitions: copied}
}

// Validate reports whether from -> to is an allowed transition. A nil
// return means the transition is legal.
func (w *Workflow) Validate(from, to string) error {
	allowed, ok := w.transitions[from]
	if !ok {
		return &TransitionError{From: from, To: to}
	}
	for _, successor := range allowed {
		if successor == to {
			return nil
		}
	}
	return &TransitionError{From: from, To: to, Allowed: append([]string(nil), allowed...)}
}

// Allowed returns the legal successors of a status, sorted.
func (w *Workflow) Allowed(from string) []string {
	successors := append([]string(nil), w.transitions[from]...)
	sort.Strings(successors)
	return successors
}

// Known reports whether the status appears in the transition table.
func (w *Workflow) Known(status string) bool {
	_, ok := w.transitions[status]
	return ok
}

// Terminal reports whether a status has no legal successors.
func (w *Workflow) Terminal(status string) bool {
	successors, ok := w.transitions[status]
	return ok && len(successors) == 0
}

// Statuses returns every status in the table, sorted.
func (w *Workflow) Statuses() []string {
	statuses := make([]string, 0, len(w.transitions))
	for status := range w.transitions {
		statuses = append(statuses, status)
	}
	sort.Strings(statuses)
	return statuses
}
