package quizdto

type CreateSessionResponse struct {
	State *SessionState `json:"state"`
}

type MoveRequest struct {
	Move string `json:"move" validate:"required,max=16"`
}

// ActionRequest carries a named action. Only the fields the action uses
// are read.
type ActionRequest struct {
	Type       string `json:"type" validate:"required"`
	Move       string `json:"move,omitempty" validate:"omitempty,max=16"`
	Flipped    *bool  `json:"flipped,omitempty"`
	SquareSize int    `json:"squareSize,omitempty" validate:"omitempty,min=16,max=160"`
	ID         string `json:"id,omitempty"`
	PGN        string `json:"pgn,omitempty"`
}

type LoadRequest struct {
	PGN  string `json:"pgn" validate:"required"`
	Save bool   `json:"save,omitempty"`
}

type StateResponse struct {
	State *SessionState `json:"state"`
}
