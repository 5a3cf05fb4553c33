package websocket

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError      Event = "error"
	EventSubmission Event = "submission"
)

// SubmissionMessage carries one accepted submission to a monitoring teacher.
type SubmissionMessage struct {
	Event     Event  `json:"event"`
	TestID    int64  `json:"test_id"`
	StudentID int    `json:"student_id"`
	Score     int    `json:"score"`
	Timestamp string `json:"timestamp"`
}

type ErrorMessage struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}
