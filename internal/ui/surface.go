package ui

import (
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ryanboscobanze/speech-companion/internal/sequencer"
)

// Surface forwards sequencer and controller updates into a running program.
// Updates sent before Attach are dropped.
type Surface struct {
	program atomic.Pointer[tea.Program]
}

// NewSurface creates an unattached surface
func NewSurface() *Surface {
	return &Surface{}
}

// Attach binds the surface to a program
func (s *Surface) Attach(p *tea.Program) {
	s.program.Store(p)
}

func (s *Surface) send(msg tea.Msg) {
	if p := s.program.Load(); p != nil {
		p.Send(msg)
	}
}

// RenderRows implements sequencer.Surface
func (s *Surface) RenderRows(rows []sequencer.Row) {
	s.send(RowsMsg{Rows: rows})
}

// SetStatus implements sequencer.Surface
func (s *Surface) SetStatus(status sequencer.Status) {
	s.send(StatusMsg{Status: status})
}

// SetControlsEnabled implements sequencer.Surface
func (s *Surface) SetControlsEnabled(enabled bool) {
	s.send(ControlsMsg{Enabled: enabled})
}
