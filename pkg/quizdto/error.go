package quizdto

// Error codes returned in ErrorResponse.Code.
const (
	CodeBadRequest      = "bad_request"
	CodeParse           = "pgn_parse"
	CodeIllegalMove     = "illegal_move"
	CodeSessionNotFound = "session_not_found"
	CodeQuizNotFound    = "quiz_not_found"
	CodeTooManySessions = "too_many_sessions"
	CodeUnknownAction   = "unknown_action"
	CodeInternal        = "internal"
)

type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	Retryable bool   `json:"retryable,omitempty"`
}

// DomainError is what clients see for a non-2xx response.
type DomainError struct {
	Status    int
	Code      string
	Message   string
	Retryable bool
}

func (e DomainError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Code != "" {
		return e.Code
	}
	return "quiz service error"
}
