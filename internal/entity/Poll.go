package entity

type Poll struct {
	ID          int64
	Title       string
	StartDate   Date
	EndDate     Date
	Description string
	Questions   []Question
}

// PollUpdate lists every mutable poll field. A nil field is left unchanged.
type PollUpdate struct {
	Title       *string
	StartDate   *Date
	EndDate     *Date
	Description *string
}
