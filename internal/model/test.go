package model

import "time"

// OptionsPerQuestion is the fixed option count for every question.
const OptionsPerQuestion = 4

// Question is a single multiple-choice question. The correct answer is the
// literal option value, not an index or letter.
type Question struct {
	QuestionText  string   `json:"question_text"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
}

// Test represents a teacher-authored test. The question order is meaningful:
// submission answers are keyed by question index.
type Test struct {
	ID        int64      `json:"id"`
	TestName  string     `json:"test_name"`
	TeacherID int        `json:"teacher_id"`
	Questions []Question `json:"questions"`
	MaxMarks  int        `json:"max_marks"`
	CreatedAt time.Time  `json:"created_at"`
}

// CreateTestRequest is the payload for creating a new test.
type CreateTestRequest struct {
	TestName  string            `json:"test_name" binding:"required,min=1,max=255"`
	Questions []QuestionRequest `json:"questions" binding:"required,min=1,dive"`
	MaxMarks  int               `json:"max_marks" binding:"required,min=1"`
}

// QuestionRequest is one question in a CreateTestRequest.
// Option distinctness and answer membership are checked by the catalog
// service on top of these shape constraints.
type QuestionRequest struct {
	QuestionText  string   `json:"question_text" binding:"required,min=1,max=2000"`
	Options       []string `json:"options" binding:"required,len=4,dive,required,max=500"`
	CorrectAnswer string   `json:"correct_answer" binding:"required,max=500"`
}

// QuestionForStudent is a question with the correct answer stripped.
type QuestionForStudent struct {
	QuestionText string   `json:"question_text"`
	Options      []string `json:"options"`
}

// TestPayload is the student-facing view of a test (no answer key).
type TestPayload struct {
	ID        int64                `json:"id"`
	TestName  string               `json:"test_name"`
	Questions []QuestionForStudent `json:"questions"`
	MaxMarks  int                  `json:"max_marks"`
	CreatedAt time.Time            `json:"created_at"`
}

// ForStudent builds the answer-key-free view of a test.
func (t *Test) ForStudent() *TestPayload {
	questions := make([]QuestionForStudent, len(t.Questions))
	for i, q := range t.Questions {
		questions[i] = QuestionForStudent{
			QuestionText: q.QuestionText,
			Options:      q.Options,
		}
	}
	return &TestPayload{
		ID:        t.ID,
		TestName:  t.TestName,
		Questions: questions,
		MaxMarks:  t.MaxMarks,
		CreatedAt: t.CreatedAt,
	}
}
