package quiz

import (
	"github.com/park285/opening-quiz/internal/domain"
	"github.com/park285/opening-quiz/internal/openingindex"
	"github.com/park285/opening-quiz/internal/pgn"
)

// Action is a request to change a State. The set is closed.
type Action interface {
	Name() string
	action()
}

type (
	// PlayMove applies a move given in SAN or UCI.
	PlayMove struct{ Move string }
	// PlayRandomMove plays one of the indexed replies when auto-move is on.
	PlayRandomMove struct{}
	// Undo pops the last move.
	Undo struct{}
	// Reset returns to the loaded database's initial position.
	Reset struct{}
	// JumpToRandomPosition moves to an indexed position with the player to move.
	JumpToRandomPosition struct{}

	ToggleAutoMove    struct{}
	ToggleShowAllowed struct{}
	ToggleAutoJump    struct{}
	Flip              struct{}

	SetFlipped    struct{ Flipped bool }
	SetIndex      struct{ Index *openingindex.Index }
	SetSaved      struct{ Saved []domain.SavedQuiz }
	SetPGN        struct{ PGN string }
	SetLoaded     struct{ Loaded *pgn.Database }
	SetSquareSize struct{ Size int }
	SetSelected   struct{ ID string }

	// LoadQuiz installs a parsed database with its index and resets onto
	// it in one step. Selected replaces the selection when Select is set.
	LoadQuiz struct {
		PGN      string
		Loaded   *pgn.Database
		Index    *openingindex.Index
		Selected string
		Select   bool
	}
)

func (PlayMove) Name() string             { return "playMove" }
func (PlayRandomMove) Name() string       { return "playRandomMove" }
func (Undo) Name() string                 { return "undoMove" }
func (Reset) Name() string                { return "resetPosition" }
func (JumpToRandomPosition) Name() string { return "jumpToRandomPosition" }
func (ToggleAutoMove) Name() string       { return "toggleAutoMove" }
func (ToggleShowAllowed) Name() string    { return "toggleShowAllowed" }
func (ToggleAutoJump) Name() string       { return "toggleAutoJump" }
func (Flip) Name() string                 { return "flip" }
func (SetFlipped) Name() string           { return "setFlipped" }
func (SetIndex) Name() string             { return "setIndex" }
func (SetSaved) Name() string             { return "setSaved" }
func (SetPGN) Name() string               { return "setPgn" }
func (SetLoaded) Name() string            { return "setLoaded" }
func (SetSquareSize) Name() string        { return "setSquareSize" }
func (SetSelected) Name() string          { return "setSelected" }
func (LoadQuiz) Name() string             { return "loadQuiz" }

func (PlayMove) action()             {}
func (PlayRandomMove) action()       {}
func (Undo) action()                 {}
func (Reset) action()                {}
func (JumpToRandomPosition) action() {}
func (ToggleAutoMove) action()       {}
func (ToggleShowAllowed) action()    {}
func (ToggleAutoJump) action()       {}
func (Flip) action()                 {}
func (SetFlipped) action()           {}
func (SetIndex) action()             {}
func (SetSaved) action()             {}
func (SetPGN) action()               {}
func (SetLoaded) action()            {}
func (SetSquareSize) action()        {}
func (SetSelected) action()          {}
func (LoadQuiz) action()             {}
