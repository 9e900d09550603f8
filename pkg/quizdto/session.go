package quizdto

type Move struct {
	SAN  string `json:"san"`
	UCI  string `json:"uci"`
	From string `json:"from"`
	To   string `json:"to"`
}

type Opening struct {
	Code  string `json:"code"`
	Title string `json:"title"`
}

// Feedback is the grading of the most recent player move.
type Feedback struct {
	LastMove     *Move    `json:"lastMove,omitempty"`
	Allowed      []string `json:"allowed,omitempty"`
	Verdict      string   `json:"verdict"`
	EndOfLine    bool     `json:"endOfLine"`
	Status       string   `json:"status"`
	StatusText   string   `json:"statusText"`
	VerdictText  string   `json:"verdictText,omitempty"`
	MovesText    string   `json:"movesText"`
	Opening      *Opening `json:"opening,omitempty"`
	PlayerToMove bool     `json:"playerToMove"`
}

type View struct {
	ShowAllowed bool   `json:"showAllowed"`
	SquareSize  int    `json:"squareSize"`
	PGN         string `json:"pgn"`
	Selected    string `json:"selected,omitempty"`
}

type SessionState struct {
	ID         string      `json:"id"`
	FEN        string      `json:"fen"`
	Turn       string      `json:"turn"`
	PlayerSide string      `json:"playerSide"`
	Moves      []string    `json:"moves"`
	Legal      []string    `json:"legal,omitempty"`
	AutoMove   bool        `json:"autoMove"`
	AutoJump   bool        `json:"autoJump"`
	Flipped    bool        `json:"flipped"`
	Positions  int         `json:"positions"`
	Feedback   Feedback    `json:"feedback"`
	View       View        `json:"view"`
	Saved      []SavedQuiz `json:"saved,omitempty"`
}

// IndexSnapshot lists every indexed position with its quiz moves.
type IndexSnapshot struct {
	Positions map[string][]string `json:"positions"`
	Moves     int                 `json:"moves"`
}

// OpeningLine groups the quiz lines that share an ECO classification.
type OpeningLine struct {
	Opening Opening `json:"opening"`
	Lines   int     `json:"lines"`
	Example string  `json:"example"`
}
