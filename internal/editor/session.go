package editor

import (
	"log/slog"
	"sync"

	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/history"
	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/project"
)

// Operation computes a new project from the current one.
type Operation func(project.Project) (project.Project, error)

// State is a read-only view of a session.
type State struct {
	Project   project.Project
	Selected  string
	UndoDepth int
	RedoDepth int
}

// Session is one editing session: the current project, its history and the
// clip selection. All methods are serialized, so edits never interleave.
type Session struct {
	mu       sync.Mutex
	history  *history.Manager
	selected string
	logger   *slog.Logger
}

// NewSession creates a session with an undo stack of the given depth.
func NewSession(depth int, logger *slog.Logger) *Session {
	return &Session{
		history: history.NewManager(depth),
		logger:  logger,
	}
}

// NewProject starts a fresh project, replacing whatever was loaded.
func (s *Session) NewProject(name string, aspect project.AspectRatio) (project.Project, error) {
	p := project.New(name, aspect)
	if err := s.Load(p); err != nil {
		return project.Project{}, err
	}
	return p, nil
}

// Load validates p and makes it the current project. History and selection
// do not carry over from the previous project.
func (s *Session) Load(p project.Project) error {
	if err := project.Validate(p); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history.Load(p)
	s.selected = ""
	if s.logger != nil {
		s.logger.Info("project loaded", "project_id", p.ID, "clips", p.ClipCount())
	}
	return nil
}

// Close unloads the project.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history.Reset()
	s.selected = ""
}

// Current returns the current project.
func (s *Session) Current() (project.Project, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Current()
}

// State returns the current project together with selection and history
// depths.
func (s *Session) State() (State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.history.Current()
	if !ok {
		return State{}, false
	}
	undo, redo := s.history.Depths()
	return State{Project: p, Selected: s.selected, UndoDepth: undo, RedoDepth: redo}, true
}

// Apply runs op against the current project and commits the result.
func (s *Session) Apply(name string, op Operation) (project.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.history.Current()
	if !ok {
		return project.Project{}, ErrNoProject
	}
	next, err := op(cur)
	if err != nil {
		if s.logger != nil {
			s.logger.Debug("edit rejected", "op", name, "project_id", cur.ID, "error", err)
		}
		return project.Project{}, err
	}
	s.history.Commit(next)
	s.reconcileSelection(next)
	if s.logger != nil {
		s.logger.Debug("edit committed", "op", name, "project_id", next.ID, "clips", next.ClipCount())
	}
	return next, nil
}

func (s *Session) InsertClip(args InsertArgs) (project.Clip, error) {
	var clip project.Clip
	_, err := s.Apply("insert_clip", func(p project.Project) (project.Project, error) {
		next, c, err := InsertClip(p, args)
		clip = c
		return next, err
	})
	return clip, err
}

func (s *Session) MoveClip(clipID string, newStart float64) (project.Project, error) {
	return s.Apply("move_clip", func(p project.Project) (project.Project, error) {
		return MoveClip(p, clipID, newStart)
	})
}

func (s *Session) TrimClip(clipID string, trim Trim) (project.Project, error) {
	return s.Apply("trim_clip", func(p project.Project) (project.Project, error) {
		return TrimClip(p, clipID, trim)
	})
}

func (s *Session) SplitClip(clipID string, at float64, source *float64) (left, right project.Clip, err error) {
	_, err = s.Apply("split_clip", func(p project.Project) (project.Project, error) {
		next, l, r, err := SplitClip(p, clipID, at, source)
		left, right = l, r
		return next, err
	})
	return left, right, err
}

func (s *Session) DeleteClip(clipID string) (project.Project, error) {
	return s.Apply("delete_clip", func(p project.Project) (project.Project, error) {
		return DeleteClip(p, clipID)
	})
}

// Select marks a clip as selected; an empty ID clears the selection.
// Selection is not recorded in history.
func (s *Session) Select(clipID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.history.Current()
	if !ok {
		return ErrNoProject
	}
	if clipID != "" {
		if _, found := cur.Clip(clipID); !found {
			return notFound(clipID)
		}
	}
	s.selected = clipID
	return nil
}

// Selected returns the selected clip ID, or "".
func (s *Session) Selected() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// Undo steps back one snapshot. It reports whether anything changed.
func (s *Session) Undo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.history.Undo() {
		return false
	}
	cur, _ := s.history.Current()
	s.reconcileSelection(cur)
	return true
}

// Redo steps forward one snapshot. It reports whether anything changed.
func (s *Session) Redo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.history.Redo() {
		return false
	}
	cur, _ := s.history.Current()
	s.reconcileSelection(cur)
	return true
}

// reconcileSelection drops a selection whose clip no longer exists.
func (s *Session) reconcileSelection(p project.Project) {
	if s.selected == "" {
		return
	}
	if _, ok := p.Clip(s.selected); !ok {
		s.selected = ""
	}
}
