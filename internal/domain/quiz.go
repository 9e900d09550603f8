package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// SaveDateLayout matches JavaScript's Date.prototype.toISOString output.
const SaveDateLayout = "2006-01-02T15:04:05.000Z"

// SavedQuiz is a PGN the user stored for later practice.
type SavedQuiz struct {
	ID       string
	Title    string
	PGN      string
	SaveDate time.Time
}

type savedQuizJSON struct {
	ID       string `json:"id,omitempty"`
	Title    string `json:"title,omitempty"`
	PGN      string `json:"pgn"`
	SaveDate string `json:"saveDate"`
}

func (q SavedQuiz) MarshalJSON() ([]byte, error) {
	out := savedQuizJSON{ID: q.ID, Title: q.Title, PGN: q.PGN}
	if !q.SaveDate.IsZero() {
		out.SaveDate = q.SaveDate.UTC().Format(SaveDateLayout)
	}
	return json.Marshal(out)
}

func (q *SavedQuiz) UnmarshalJSON(b []byte) error {
	var in savedQuizJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	q.ID = in.ID
	q.Title = in.Title
	q.PGN = in.PGN
	q.SaveDate = time.Time{}
	if s := strings.TrimSpace(in.SaveDate); s != "" {
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return err
		}
		q.SaveDate = t
	}
	return nil
}
