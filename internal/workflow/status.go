package workflow

import (
	"math"
	"sort"
)

// StatusOf derives the aggregate status of a workflow from its steps.
// A rejected required step overrides everything else.
func StatusOf(steps []Step) Status {
	allApproved := true
	for _, s := range steps {
		if !s.IsRequired {
			continue
		}
		if s.Status == StepRejected {
			return StatusRejected
		}
		if s.Status != StepApproved {
			allApproved = false
		}
	}
	if allApproved {
		return StatusApproved
	}
	return StatusPendingApproval
}

// IsComplete reports whether every required step is approved.
func IsComplete(steps []Step) bool {
	return StatusOf(steps) == StatusApproved
}

// IsRejected reports whether a required step has been rejected.
func IsRejected(steps []Step) bool {
	return StatusOf(steps) == StatusRejected
}

// CurrentStep returns the next actionable step: the lowest-order pending
// required step, falling back to the lowest-order pending optional step.
// ok is false once nothing is pending.
func CurrentStep(steps []Step) (step Step, ok bool) {
	ordered := CloneSteps(steps)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Order < ordered[j].Order })

	for _, s := range ordered {
		if s.IsRequired && s.Status == StepPending {
			return s, true
		}
	}
	for _, s := range ordered {
		if !s.IsRequired && s.Status == StepPending {
			return s, true
		}
	}
	return Step{}, false
}

// ProgressPercentage is the share of required steps that are approved, as a
// whole percentage. Workflows without required steps report 0.
func ProgressPercentage(steps []Step) int {
	var required, approved int
	for _, s := range steps {
		if !s.IsRequired {
			continue
		}
		required++
		if s.Status == StepApproved {
			approved++
		}
	}
	if required == 0 {
		return 0
	}
	return int(math.Round(float64(approved) * 100 / float64(required)))
}

// Badge is the presentation variant for a status value.
type Badge struct {
	Label string `json:"label"`
	Tone  string `json:"tone"`
	Icon  string `json:"icon"`
}

var stepBadges = map[StepStatus]Badge{
	StepPending:  {Label: "Pending", Tone: "warning", Icon: "clock"},
	StepApproved: {Label: "Approved", Tone: "success", Icon: "check-circle"},
	StepRejected: {Label: "Rejected", Tone: "danger", Icon: "x-circle"},
	StepSkipped:  {Label: "Skipped", Tone: "muted", Icon: "skip-forward"},
}

var statusBadges = map[Status]Badge{
	StatusPendingApproval: {Label: "Pending Approval", Tone: "warning", Icon: "clock"},
	StatusApproved:        {Label: "Approved", Tone: "success", Icon: "check-circle"},
	StatusRejected:        {Label: "Rejected", Tone: "danger", Icon: "x-circle"},
}

var unknownBadge = Badge{Label: "Unknown", Tone: "muted", Icon: "help-circle"}

// Badge returns the presentation variant for s.
func (s StepStatus) Badge() Badge {
	if b, ok := stepBadges[s]; ok {
		return b
	}
	return unknownBadge
}

// Badge returns the presentation variant for s.
func (s Status) Badge() Badge {
	if b, ok := statusBadges[s]; ok {
		return b
	}
	return unknownBadge
}
