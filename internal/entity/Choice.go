package entity

type Choice struct {
	ID         int64
	QuestionID int64
	Text       string
}
