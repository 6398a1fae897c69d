package task

import "github.com/cisco-sastre/sastre-engine/pkg/types"

// StepVerb is what a PlanStep will do (or, under dry-run, would do) to
// one item.
type StepVerb string

const (
	StepCreate StepVerb = "create"
	StepUpdate StepVerb = "update"
	StepSkip   StepVerb = "skip" // e.g. factory-default item already present
	StepDelete StepVerb = "delete"
)

// PlanStep is one item-level action within a Plan.
type PlanStep struct {
	Verb   StepVerb
	Kind   string
	Name   string
	ID     string // backup-side ID; may differ from the controller-assigned ID after Create
	Reason string
}

// Plan is the ordered sequence of item-level actions a restore, delete,
// or migrate would take. Plan.Steps is always in the order execution
// uses, so a dry-run Plan is a faithful preview.
type Plan struct {
	Steps []PlanStep
}

func (p *Plan) add(verb StepVerb, kind string, entry types.IndexEntry, reason string) {
	p.Steps = append(p.Steps, PlanStep{Verb: verb, Kind: kind, Name: entry.Name, ID: entry.ID, Reason: reason})
}

// CountByVerb summarizes the plan, e.g. for a one-line progress log.
func (p *Plan) CountByVerb() map[StepVerb]int {
	out := make(map[StepVerb]int)
	for _, s := range p.Steps {
		out[s.Verb]++
	}
	return out
}
