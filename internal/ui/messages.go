package ui

import "github.com/ryanboscobanze/speech-companion/internal/sequencer"

// RowsMsg replaces the displayed rows
type RowsMsg struct {
	Rows []sequencer.Row
}

// StatusMsg updates the status line
type StatusMsg struct {
	Status sequencer.Status
}

// ControlsMsg enables or disables the record and picker controls
type ControlsMsg struct {
	Enabled bool
}

// ToggleResultMsg carries the outcome of a start or stop request
type ToggleResultMsg struct {
	Err error
}

type levelTickMsg struct{}
