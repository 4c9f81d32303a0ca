package entity

type PollSession struct {
	ID      int64
	PollID  int64
	UserID  *int64
	Date    Date
	Poll    *Poll
	Answers []Answer
}

// SessionFilter narrows a session listing. Nil fields are not applied.
type SessionFilter struct {
	PollID     *int64
	UserID     *int64
	UserIsNull *bool
}
