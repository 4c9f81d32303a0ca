package entity

type Answer struct {
	ID            int64
	PollSessionID int64
	QuestionID    int64
	ChoiceID      *int64
	Value         *string

	// ChoiceText is joined in on reads when ChoiceID is set.
	ChoiceText *string
}

// AnswerInput is one answer supplied at session creation.
type AnswerInput struct {
	QuestionID int64
	ChoiceID   *int64
	Value      *string
}

// String renders the answer for session detail views: the selected choice
// text when a choice was picked, the free-text value otherwise.
func (a Answer) String() string {
	if a.ChoiceText != nil {
		return *a.ChoiceText
	}
	if a.Value != nil {
		return *a.Value
	}
	return ""
}
