package service

import (
	"sort"

	"zedcmms/internal/apperror"
	"zedcmms/internal/model"
)

// workflow is a state machine: each state maps to the states reachable from it.
// A state with no outgoing edges is terminal.
type workflow struct {
	entity string
	edges  map[string][]string
}

var (
	worksheetFlow = workflow{entity: "worksheet", edges: map[string][]string{
		model.WorksheetOpen:    {model.WorksheetWaiting, model.WorksheetClosed},
		model.WorksheetWaiting: {model.WorksheetClosed},
		model.WorksheetClosed:  nil,
	}}

	machineFlow = workflow{entity: "machine", edges: map[string][]string{
		model.MachineActive:      {model.MachineStopped, model.MachineMaintenance, model.MachineScrapped},
		model.MachineStopped:     {model.MachineActive, model.MachineMaintenance, model.MachineScrapped},
		model.MachineMaintenance: {model.MachineActive, model.MachineStopped, model.MachineScrapped},
		model.MachineScrapped:    nil,
	}}

	pmFlow = workflow{entity: "pm_task", edges: map[string][]string{
		model.PMPending:    {model.PMDueToday, model.PMOverdue, model.PMInProgress, model.PMCompleted, model.PMCancelled},
		model.PMDueToday:   {model.PMInProgress, model.PMCompleted, model.PMOverdue},
		model.PMOverdue:    {model.PMInProgress, model.PMCompleted, model.PMCancelled},
		model.PMInProgress: {model.PMCompleted, model.PMCancelled},
		model.PMCompleted:  nil,
		model.PMCancelled:  nil,
	}}
)

func (w workflow) known(state string) bool {
	_, ok := w.edges[state]
	return ok
}

// terminal reports whether state has no outgoing edges.
func (w workflow) terminal(state string) bool {
	edges, ok := w.edges[state]
	return ok && len(edges) == 0
}

// validate checks from -> to. Staying in the same state is allowed.
func (w workflow) validate(from, to string) error {
	if !w.known(to) {
		return apperror.Validation("status", "unknown "+w.entity+" status: "+to).
			With("allowed", w.states())
	}
	if from == to {
		return nil
	}
	for _, s := range w.edges[from] {
		if s == to {
			return nil
		}
	}
	return apperror.StateTransition(w.entity, from, to).With("allowed", w.allowed(from))
}

func (w workflow) allowed(from string) []string {
	out := append([]string{}, w.edges[from]...)
	sort.Strings(out)
	return out
}

func (w workflow) states() []string {
	out := make([]string, 0, len(w.edges))
	for s := range w.edges {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
