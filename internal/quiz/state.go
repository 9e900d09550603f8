// Package quiz implements the opening quiz session: a pure reducer over
// State plus a Session runtime that serializes dispatch and schedules
// the automatic reply.
package quiz

import (
	"github.com/park285/opening-quiz/internal/board"
	"github.com/park285/opening-quiz/internal/domain"
	"github.com/park285/opening-quiz/internal/openingindex"
	"github.com/park285/opening-quiz/internal/pgn"
)

const DefaultSquareSize = 100

// StackEntry records a move and the board it was played from.
type StackEntry struct {
	Before *board.Board
	Move   board.Move
}

// View holds presentation state that the reducer stores but never
// interprets.
type View struct {
	ShowAllowed bool
	SquareSize  int
	PGN         string
	Saved       []domain.SavedQuiz
	Selected    string
}

// State is a quiz session snapshot. Reduce never mutates a State it was
// given; slices are replaced rather than appended in place.
type State struct {
	Board    *board.Board
	Stack    []StackEntry
	Index    *openingindex.Index
	Loaded   *pgn.Database
	AutoMove bool
	AutoJump bool
	Flipped  bool
	View     View
}

// NewState returns the initial session state.
func NewState() State {
	return State{
		Board:    board.Start(),
		Index:    openingindex.Empty(),
		AutoMove: true,
		View: View{
			ShowAllowed: true,
			SquareSize:  DefaultSquareSize,
		},
	}
}

// PlayerSide is black when the board is flipped, white otherwise.
func (s State) PlayerSide() board.Side {
	if s.Flipped {
		return board.Black
	}
	return board.White
}

// InitialBoard is where Reset returns to.
func (s State) InitialBoard() *board.Board {
	if s.Loaded == nil {
		return board.Start()
	}
	return s.Loaded.InitialBoard()
}

// Moves lists the SAN of every move on the stack, oldest first.
func (s State) Moves() []string {
	out := make([]string, len(s.Stack))
	for i, e := range s.Stack {
		out[i] = e.Move.SAN
	}
	return out
}

func (s State) push(next *board.Board, mv board.Move) State {
	stack := make([]StackEntry, len(s.Stack), len(s.Stack)+1)
	copy(stack, s.Stack)
	s.Stack = append(stack, StackEntry{Before: s.Board, Move: mv})
	s.Board = next
	return s
}
