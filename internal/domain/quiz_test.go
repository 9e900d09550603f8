package domain

import (
	"encoding/json"
	"testing"
	"time"
)

func TestSavedQuizJSONMatchesBrowserFormat(t *testing.T) {
	q := SavedQuiz{ID: "a1", Title: "Sicilian", PGN: "1. e4 c5 *", SaveDate: time.Date(2024, 3, 1, 12, 30, 0, 250e6, time.UTC)}
	raw, err := json.Marshal(q)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"id":"a1","title":"Sicilian","pgn":"1. e4 c5 *","saveDate":"2024-03-01T12:30:00.250Z"}`
	if string(raw) != want {
		t.Fatalf("json = %s, want %s", raw, want)
	}
}

func TestSavedQuizAcceptsLegacyRecord(t *testing.T) {
	var q SavedQuiz
	if err := json.Unmarshal([]byte(`{"pgn":"1. d4 *","saveDate":"2023-11-05T08:00:00.000Z"}`), &q); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if q.ID != "" || q.Title != "" || q.PGN != "1. d4 *" {
		t.Fatalf("unexpected record %+v", q)
	}
	if q.SaveDate.Year() != 2023 || q.SaveDate.Hour() != 8 {
		t.Fatalf("save date = %v", q.SaveDate)
	}
}
