package quizdto

const (
	EventState = "state"
	EventSaved = "saved"
)

// Event is pushed over the websocket stream.
type Event struct {
	Type  string        `json:"type"`
	State *SessionState `json:"state,omitempty"`
	Saved []SavedQuiz   `json:"saved,omitempty"`
}
