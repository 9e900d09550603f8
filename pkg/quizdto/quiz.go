package quizdto

type SavedQuiz struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Label    string `json:"label"`
	SaveDate string `json:"saveDate"`
	Plies    int    `json:"plies"`
}

type SavedList struct {
	Quizzes []SavedQuiz `json:"quizzes"`
}
