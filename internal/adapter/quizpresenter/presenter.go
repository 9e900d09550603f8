// Package quizpresenter maps quiz states onto wire DTOs.
package quizpresenter

import (
	"fmt"
	"time"

	"github.com/park285/opening-quiz/internal/board"
	"github.com/park285/opening-quiz/internal/domain"
	"github.com/park285/opening-quiz/internal/msgcat"
	"github.com/park285/opening-quiz/internal/openingindex"
	"github.com/park285/opening-quiz/internal/openingname"
	"github.com/park285/opening-quiz/internal/pgn"
	"github.com/park285/opening-quiz/internal/quiz"
	"github.com/park285/opening-quiz/internal/savedquiz"
	"github.com/park285/opening-quiz/pkg/quizdto"
)

// Presenter renders states with catalog text.
type Presenter struct {
	cat *msgcat.Catalog
	loc *time.Location
}

func New(cat *msgcat.Catalog, loc *time.Location) *Presenter {
	if cat == nil {
		cat = msgcat.Default()
	}
	if loc == nil {
		loc = time.Local
	}
	return &Presenter{cat: cat, loc: loc}
}

func (p *Presenter) State(id string, st quiz.State) *quizdto.SessionState {
	fb := quiz.Derive(st)
	out := &quizdto.SessionState{
		ID:         id,
		FEN:        st.Board.FEN(),
		Turn:       st.Board.Turn().String(),
		PlayerSide: st.PlayerSide().String(),
		Moves:      st.Moves(),
		AutoMove:   st.AutoMove,
		AutoJump:   st.AutoJump,
		Flipped:    st.Flipped,
		Positions:  st.Index.Len(),
		Feedback:   p.Feedback(st, fb),
		View: quizdto.View{
			ShowAllowed: st.View.ShowAllowed,
			SquareSize:  st.View.SquareSize,
			PGN:         st.View.PGN,
			Selected:    st.View.Selected,
		},
		Saved: p.Saved(savedquiz.ForDisplay(st.View.Saved)),
	}
	if out.Moves == nil {
		out.Moves = []string{}
	}
	if fb.PlayerToMove {
		out.Legal = st.Board.Legal()
	}
	return out
}

// Feedback converts fb. Allowed moves are withheld when the view hides them.
func (p *Presenter) Feedback(st quiz.State, fb quiz.Feedback) quizdto.Feedback {
	out := quizdto.Feedback{
		Verdict:      string(fb.Verdict),
		EndOfLine:    fb.EndOfLine,
		Status:       string(fb.Status),
		StatusText:   p.cat.RenderOr("status."+string(fb.Status), nil, string(fb.Status)),
		MovesText:    fb.MovesText,
		PlayerToMove: fb.PlayerToMove,
	}
	if st.View.ShowAllowed {
		out.Allowed = fb.Allowed
	}
	if fb.LastMove != nil {
		mv := toMove(fb.LastMove.Move)
		out.LastMove = &mv
		out.VerdictText = p.cat.RenderOr("verdict."+string(fb.Verdict), map[string]any{"Move": mv.SAN}, "")
	}
	if fb.Opening != nil {
		out.Opening = &quizdto.Opening{Code: fb.Opening.Code, Title: fb.Opening.Title}
	}
	return out
}

func toMove(m board.Move) quizdto.Move {
	return quizdto.Move{SAN: m.SAN, UCI: m.UCI, From: m.From.String(), To: m.To.String()}
}

// Saved converts records in the given order.
func (p *Presenter) Saved(list []domain.SavedQuiz) []quizdto.SavedQuiz {
	if len(list) == 0 {
		return nil
	}
	out := make([]quizdto.SavedQuiz, 0, len(list))
	for _, q := range list {
		title := q.Title
		if title == "" {
			title = p.cat.RenderOr("saved.untitled", nil, "Untitled")
		}
		labelled := q
		labelled.Title = title
		out = append(out, quizdto.SavedQuiz{
			ID:       q.ID,
			Title:    title,
			Label:    savedquiz.Label(labelled, p.loc),
			SaveDate: q.SaveDate.UTC().Format(domain.SaveDateLayout),
			Plies:    savedquiz.Plies(q),
		})
	}
	return out
}

func Index(idx *openingindex.Index) quizdto.IndexSnapshot {
	return quizdto.IndexSnapshot{Positions: idx.Snapshot(), Moves: idx.MoveCount()}
}

func Openings(entries []openingname.Entry) []quizdto.OpeningLine {
	out := make([]quizdto.OpeningLine, 0, len(entries))
	for _, e := range entries {
		out = append(out, quizdto.OpeningLine{
			Opening: quizdto.Opening{Code: e.Code, Title: e.Title},
			Lines:   e.Lines,
			Example: pgn.MovesText(e.Example),
		})
	}
	return out
}

// Message renders an error text from the catalog, falling back to fallback.
func (p *Presenter) Message(key string, data map[string]any, fallback string) string {
	return p.cat.RenderOr("errors."+key, data, fallback)
}

// Action decodes a named action request. Actions carrying server-side data
// (index, loaded games, saved list) are not accepted from clients.
func Action(req quizdto.ActionRequest) (quiz.Action, error) {
	switch req.Type {
	case quiz.PlayMove{}.Name():
		return quiz.PlayMove{Move: req.Move}, nil
	case quiz.PlayRandomMove{}.Name():
		return quiz.PlayRandomMove{}, nil
	case quiz.Undo{}.Name():
		return quiz.Undo{}, nil
	case quiz.Reset{}.Name():
		return quiz.Reset{}, nil
	case quiz.JumpToRandomPosition{}.Name():
		return quiz.JumpToRandomPosition{}, nil
	case quiz.ToggleAutoMove{}.Name():
		return quiz.ToggleAutoMove{}, nil
	case quiz.ToggleShowAllowed{}.Name():
		return quiz.ToggleShowAllowed{}, nil
	case quiz.ToggleAutoJump{}.Name():
		return quiz.ToggleAutoJump{}, nil
	case quiz.Flip{}.Name():
		return quiz.Flip{}, nil
	case quiz.SetFlipped{}.Name():
		if req.Flipped == nil {
			return nil, fmt.Errorf("%s requires flipped", req.Type)
		}
		return quiz.SetFlipped{Flipped: *req.Flipped}, nil
	case quiz.SetSquareSize{}.Name():
		return quiz.SetSquareSize{Size: req.SquareSize}, nil
	case quiz.SetSelected{}.Name():
		return quiz.SetSelected{ID: req.ID}, nil
	case quiz.SetPGN{}.Name():
		return quiz.SetPGN{PGN: req.PGN}, nil
	}
	return nil, fmt.Errorf("%w: %q", quiz.ErrUnknownAction, req.Type)
}
