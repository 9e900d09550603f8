package quiz

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/park285/opening-quiz/internal/board"
	"github.com/park285/opening-quiz/internal/domain"
)

var (
	ErrEmptyMove     = errors.New("move is empty")
	ErrUnknownAction = errors.New("unknown quiz action")
)

// Machine reduces actions over State. Randomness comes from the injected
// source so tests can pin choices.
type Machine struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewMachine builds a Machine. A nil source is seeded from the clock.
func NewMachine(src rand.Source) *Machine {
	if src == nil {
		seed := uint64(time.Now().UnixNano())
		src = rand.NewPCG(seed, seed>>1|1)
	}
	return &Machine{rng: rand.New(src)}
}

func (m *Machine) intn(n int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rng.IntN(n)
}

// Reduce returns the state after applying a. On error the input state is
// returned unchanged.
func (m *Machine) Reduce(s State, a Action) (State, error) {
	switch act := a.(type) {
	case PlayMove:
		return playMove(s, act.Move)
	case PlayRandomMove:
		if !s.AutoMove {
			return s, nil
		}
		moves := s.Index.Moves(s.Board.Fingerprint())
		if len(moves) == 0 {
			return s, nil
		}
		return playMove(s, moves[m.intn(len(moves))])
	case Undo:
		n := len(s.Stack)
		if n == 0 {
			return s, nil
		}
		s.Board = s.Stack[n-1].Before
		s.Stack = s.Stack[: n-1 : n-1]
		return s, nil
	case Reset:
		s.Board = s.InitialBoard()
		s.Stack = nil
		return s, nil
	case JumpToRandomPosition:
		return m.jump(s)
	case ToggleAutoMove:
		s.AutoMove = !s.AutoMove
		return s, nil
	case ToggleShowAllowed:
		s.View.ShowAllowed = !s.View.ShowAllowed
		return s, nil
	case ToggleAutoJump:
		s.AutoJump = !s.AutoJump
		return s, nil
	case Flip:
		s.Flipped = !s.Flipped
		return s, nil
	case SetFlipped:
		s.Flipped = act.Flipped
		return s, nil
	case SetIndex:
		s.Index = act.Index
		return s, nil
	case SetSaved:
		s.View.Saved = append([]domain.SavedQuiz(nil), act.Saved...)
		return s, nil
	case SetPGN:
		s.View.PGN = act.PGN
		return s, nil
	case SetLoaded:
		s.Loaded = act.Loaded
		return s, nil
	case SetSquareSize:
		s.View.SquareSize = act.Size
		return s, nil
	case SetSelected:
		s.View.Selected = act.ID
		return s, nil
	case LoadQuiz:
		s.View.PGN = act.PGN
		s.Loaded = act.Loaded
		s.Index = act.Index
		if act.Select {
			s.View.Selected = act.Selected
		}
		s.Board = s.InitialBoard()
		s.Stack = nil
		return s, nil
	default:
		return s, fmt.Errorf("%w: %T", ErrUnknownAction, a)
	}
}

func playMove(s State, notation string) (State, error) {
	if notation == "" {
		return s, ErrEmptyMove
	}
	next, mv, err := s.Board.Play(notation)
	if err != nil {
		return s, err
	}
	return s.push(next, mv), nil
}

// jump picks a random indexed position, other than the standard start,
// where the player is to move.
func (m *Machine) jump(s State) (State, error) {
	player := s.PlayerSide()
	start := board.StartFingerprint()
	var candidates []board.Fingerprint
	for _, fp := range s.Index.Positions() {
		if fp == start || fp.Turn() != player {
			continue
		}
		candidates = append(candidates, fp)
	}
	if len(candidates) == 0 {
		return s, nil
	}
	fp := candidates[m.intn(len(candidates))]
	target, err := board.FromFEN(fp.String())
	if err != nil {
		return s, fmt.Errorf("jump to %s: %w", fp, err)
	}
	s.Board = target
	s.Stack = nil
	return s, nil
}
