// Package savedquiz persists the user's saved PGNs as an append-ordered
// list and notifies watchers when it changes.
package savedquiz

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/park285/opening-quiz/internal/domain"
	"github.com/park285/opening-quiz/internal/pgn"
)

// DefaultKey is the storage key used by the browser version of the trainer.
const DefaultKey = "pgns"

var ErrNotFound = errors.New("saved quiz not found")

// Store holds saved quizzes in save order (oldest first).
type Store interface {
	List(ctx context.Context) ([]domain.SavedQuiz, error)
	Append(ctx context.Context, q domain.SavedQuiz) error
	Delete(ctx context.Context, id string) error
	// Watch delivers the full list whenever it changes, including changes
	// made by other processes. The channel closes when ctx is done.
	Watch(ctx context.Context) (<-chan []domain.SavedQuiz, error)
	Close() error
}

// Decode parses the stored JSON array. Empty input is an empty list.
// Records saved without an id get one derived from their content.
func Decode(raw string) ([]domain.SavedQuiz, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return []domain.SavedQuiz{}, nil
	}
	var list []domain.SavedQuiz
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return nil, fmt.Errorf("decode saved quizzes: %w", err)
	}
	for i := range list {
		if list[i].ID == "" {
			list[i].ID = LegacyID(list[i])
		}
	}
	return list, nil
}

func Encode(list []domain.SavedQuiz) (string, error) {
	if list == nil {
		list = []domain.SavedQuiz{}
	}
	raw, err := json.Marshal(list)
	if err != nil {
		return "", fmt.Errorf("encode saved quizzes: %w", err)
	}
	return string(raw), nil
}

// LegacyID derives a stable id for records written before ids existed.
func LegacyID(q domain.SavedQuiz) string {
	sum := sha256.Sum256([]byte(q.Title + "\x00" + q.PGN + "\x00" + q.SaveDate.UTC().Format(domain.SaveDateLayout)))
	return "legacy-" + hex.EncodeToString(sum[:6])
}

// ForDisplay returns the list newest first.
func ForDisplay(list []domain.SavedQuiz) []domain.SavedQuiz {
	out := make([]domain.SavedQuiz, len(list))
	for i, q := range list {
		out[len(list)-1-i] = q
	}
	return out
}

const labelPreviewRunes = 30

// Label renders "date - title - N moves - preview" for a saved quiz.
// N counts every move of the first game, variations included.
func Label(q domain.SavedQuiz, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	moves := Plies(q)
	preview := []rune(pgn.StripHeaders(q.PGN))
	if len(preview) > labelPreviewRunes {
		preview = preview[:labelPreviewRunes]
	}
	return fmt.Sprintf("%s - %s - %d moves - %s", q.SaveDate.In(loc).Format("2006-01-02 15:04:05"), q.Title, moves, string(preview))
}

// Plies counts the half-moves of the first game in q, variations included.
// Unreadable PGN counts as zero.
func Plies(q domain.SavedQuiz) int {
	db, err := pgn.Read(q.PGN)
	if err != nil {
		return 0
	}
	return db.First().PlyCount()
}

func removeByID(list []domain.SavedQuiz, id string) ([]domain.SavedQuiz, error) {
	for i, q := range list {
		if q.ID == id {
			out := make([]domain.SavedQuiz, 0, len(list)-1)
			out = append(out, list[:i]...)
			return append(out, list[i+1:]...), nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
}
