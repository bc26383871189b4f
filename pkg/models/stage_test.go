package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// Exhaustive check of the transition table over every (from, to) pair.
func TestCanTransitionExhaustive(t *testing.T) {
	stages := []TaskStage{StageDraft, StageSaved, StageApplied, StageRunning, StageSuccess, StageFailed}

	legal := map[TaskStage]map[TaskStage]bool{
		StageDraft:   {StageSaved: true},
		StageSaved:   {StageApplied: true},
		StageApplied: {StageRunning: true, StageSuccess: true, StageFailed: true},
		StageRunning: {StageSuccess: true, StageFailed: true},
	}

	for _, from := range stages {
		for _, to := range stages {
			want := legal[from][to]
			assert.Equalf(t, want, CanTransition(from, to), "transition %s -> %s", from, to)
		}
	}
}

func TestTerminalStagesRejectEverything(t *testing.T) {
	for _, terminal := range []TaskStage{StageSuccess, StageFailed} {
		assert.True(t, terminal.IsTerminal())
		for _, to := range []TaskStage{StageDraft, StageSaved, StageApplied, StageRunning, StageSuccess, StageFailed} {
			assert.Falsef(t, CanTransition(terminal, to), "terminal %s must reject %s", terminal, to)
		}
	}
}

func TestHasExecution(t *testing.T) {
	assert.False(t, StageDraft.HasExecution())
	assert.False(t, StageSaved.HasExecution())
	assert.True(t, StageApplied.HasExecution())
	assert.True(t, StageRunning.HasExecution())
	assert.True(t, StageSuccess.HasExecution())
	assert.True(t, StageFailed.HasExecution())
}
