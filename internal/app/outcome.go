package app

import (
	"github.com/Sumatoshi-tech/ocaport/pkg/porting"
	"github.com/Sumatoshi-tech/ocaport/pkg/workflow"
)

// Kind classifies the result of a run.
type Kind int

// Run results.
const (
	NothingToDo Kind = iota
	MigrationEligible
	PortsEligible
)

// String returns the snake_case name used in machine output.
func (k Kind) String() string {
	switch k {
	case MigrationEligible:
		return "migration_eligible"
	case PortsEligible:
		return "ports_eligible"
	default:
		return "nothing_to_do"
	}
}

// Processes named in result documents.
const (
	ProcessPortCommits = "port_commits"
	ProcessMigrate     = "migrate"
)

// Outcome is what a run found, and did when interactive.
type Outcome struct {
	Kind Kind
	// Diff is set when the addon exists on both branches.
	Diff *porting.Diff
	// Migration is set when the addon is missing on the target branch.
	Migration *workflow.Migration
	// Port is set once the port workflow ran.
	Port *workflow.PortReport
}

// Report is the machine-readable result document. It is empty when there
// is nothing to port.
type Report struct {
	Process string `json:"process,omitempty" yaml:"process,omitempty"`
	Results any    `json:"results,omitempty" yaml:"results,omitempty"`
}

// Report builds the result document of o.
func (o Outcome) Report() Report {
	switch {
	case o.Migration != nil:
		return Report{Process: ProcessMigrate, Results: o.Migration.Results()}
	case o.Kind == PortsEligible && o.Diff != nil:
		return Report{Process: ProcessPortCommits, Results: o.Diff.Results()}
	default:
		return Report{}
	}
}
