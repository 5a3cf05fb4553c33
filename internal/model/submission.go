package model

import "time"

// Submission is one student's single accepted answer set for one test.
// The (TestID, StudentID) pair is unique for all time.
type Submission struct {
	ID        int64          `json:"id"`
	TestID    int64          `json:"test_id"`
	StudentID int            `json:"student_id"`
	Answers   map[int]string `json:"answers"`
	Score     int            `json:"score"`
	CreatedAt time.Time      `json:"created_at"`
}

// SubmitExamRequest is the payload for submitting an exam. Answers are keyed
// by question index; missing indices count as unanswered. The Score field is
// accepted for wire compatibility with older clients but never trusted — the
// server recomputes the score from the stored answer key.
type SubmitExamRequest struct {
	TestID  int64          `json:"test_id" binding:"required,min=1"`
	Answers map[int]string `json:"answers" binding:"required"`
	Score   *int           `json:"score" binding:"omitempty"`
}
