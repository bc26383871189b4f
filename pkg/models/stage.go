package models

// TaskStage is the authoritative, locally persisted lifecycle status of a
// collection task. The engine's own status vocabulary is reconciled into
// this stage; the two never mix.
type TaskStage string

const (
	// StageDraft: editable, not yet committed to execution.
	StageDraft TaskStage = "draft"
	// StageSaved: validated and persisted, not yet submitted.
	StageSaved TaskStage = "saved"
	// StageApplied: submitted to the execution engine, awaiting confirmation.
	StageApplied TaskStage = "applied"
	// StageRunning: engine confirmed execution has started.
	StageRunning TaskStage = "running"
	// StageSuccess is terminal.
	StageSuccess TaskStage = "success"
	// StageFailed is terminal. Cancellations land here with a reason recorded.
	StageFailed TaskStage = "failed"
)

// stageTransitions is the explicit transition table. Anything not listed is
// an illegal transition.
var stageTransitions = map[TaskStage][]TaskStage{
	StageDraft:   {StageSaved},
	StageSaved:   {StageApplied},
	StageApplied: {StageRunning, StageSuccess, StageFailed},
	StageRunning: {StageSuccess, StageFailed},
}

// CanTransition reports whether moving from one stage to another is legal.
// Same-stage "transitions" are not transitions and return false.
func CanTransition(from, to TaskStage) bool {
	for _, next := range stageTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether a stage is immutable once reached.
func (s TaskStage) IsTerminal() bool {
	return s == StageSuccess || s == StageFailed
}

// HasExecution reports whether a task in this stage has been handed to the
// engine, i.e. carries a meaningful execution id.
func (s TaskStage) HasExecution() bool {
	return s == StageApplied || s == StageRunning || s.IsTerminal()
}
