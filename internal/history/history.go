// Package history keeps a bounded undo/redo stack of whole-project
// snapshots for a single editing session.
package history

import "github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/project"

// DefaultDepth is the number of undo steps retained.
const DefaultDepth = 20

// Manager owns the past and future snapshot stacks. past is ordered
// oldest to newest; future is ordered next-to-redo first. Snapshots are
// copied on the way in and on the way out.
type Manager struct {
	depth   int
	past    []project.Project
	future  []project.Project
	current *project.Project
}

// NewManager returns a Manager bounded to depth entries. Non-positive
// depths fall back to DefaultDepth.
func NewManager(depth int) *Manager {
	if depth <= 0 {
		depth = DefaultDepth
	}
	return &Manager{depth: depth}
}

// Load replaces the current snapshot and discards all history.
func (m *Manager) Load(p project.Project) {
	cp := p.Clone()
	m.current = &cp
	m.past = nil
	m.future = nil
}

// Reset unloads the project and clears history.
func (m *Manager) Reset() {
	m.current = nil
	m.past = nil
	m.future = nil
}

// Commit records p as the new current snapshot. It is a no-op returning
// false when no project is loaded.
func (m *Manager) Commit(p project.Project) bool {
	if m.current == nil {
		return false
	}
	m.past = append(m.past, *m.current)
	if over := len(m.past) - m.depth; over > 0 {
		m.past = append([]project.Project(nil), m.past[over:]...)
	}
	cp := p.Clone()
	m.current = &cp
	m.future = nil
	return true
}

// Undo restores the most recent past snapshot. It reports whether anything
// changed.
func (m *Manager) Undo() bool {
	if len(m.past) == 0 || m.current == nil {
		return false
	}
	last := len(m.past) - 1
	prev := m.past[last]
	m.past = m.past[:last]
	m.future = append([]project.Project{*m.current}, m.future...)
	m.current = &prev
	return true
}

// Redo re-applies the next future snapshot. It reports whether anything
// changed.
func (m *Manager) Redo() bool {
	if len(m.future) == 0 || m.current == nil {
		return false
	}
	next := m.future[0]
	m.future = m.future[1:]
	m.past = append(m.past, *m.current)
	m.current = &next
	return true
}

// Current returns a copy of the current snapshot.
func (m *Manager) Current() (project.Project, bool) {
	if m.current == nil {
		return project.Project{}, false
	}
	return m.current.Clone(), true
}

func (m *Manager) Loaded() bool  { return m.current != nil }
func (m *Manager) CanUndo() bool { return len(m.past) > 0 }
func (m *Manager) CanRedo() bool { return len(m.future) > 0 }
func (m *Manager) Depth() int    { return m.depth }

// Depths returns the sizes of the undo and redo stacks.
func (m *Manager) Depths() (undo, redo int) {
	return len(m.past), len(m.future)
}
