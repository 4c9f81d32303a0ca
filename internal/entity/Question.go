package entity

type QuestionType string

const (
	QuestionTypeText        QuestionType = "TEXT"
	QuestionTypeChoice      QuestionType = "CHOICE"
	QuestionTypeMultiChoice QuestionType = "MULTICHOICE"
)

func (t QuestionType) Valid() bool {
	switch t {
	case QuestionTypeText, QuestionTypeChoice, QuestionTypeMultiChoice:
		return true
	}
	return false
}

type Question struct {
	ID      int64
	PollID  int64
	Text    string
	Type    QuestionType
	Choices []Choice
}

// QuestionUpdate lists every mutable question field. A nil field is left
// unchanged; a non-nil Choices replaces the question's entire choice set.
type QuestionUpdate struct {
	Text    *string
	Type    *QuestionType
	Choices *[]string
}
