package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/egorlet/survey-service/internal/entity"
	"github.com/egorlet/survey-service/internal/repo"
)

var ErrValidation = errors.New("validation error")

type Survey struct {
	log             *slog.Logger
	pollStorage     PollStorage
	questionStorage QuestionStorage
	sessionStorage  SessionStorage
	now             func() time.Time
}

type PollStorage interface {
	SavePoll(ctx context.Context, title, description string, startDate, endDate entity.Date) (int64, error)
	GetPollByID(ctx context.Context, id int64) (entity.Poll, error)
	GetPolls(ctx context.Context) ([]entity.Poll, error)
	UpdatePoll(ctx context.Context, id int64, upd entity.PollUpdate) error
	DeletePoll(ctx context.Context, id int64) error
}

type QuestionStorage interface {
	SaveQuestion(ctx context.Context, pollID int64, text string, questionType entity.QuestionType, choices []string) (int64, error)
	GetQuestionByID(ctx context.Context, id int64) (entity.Question, error)
	GetQuestions(ctx context.Context) ([]entity.Question, error)
	UpdateQuestion(ctx context.Context, id int64, upd entity.QuestionUpdate) error
	DeleteQuestion(ctx context.Context, id int64) error
	GetChoiceByID(ctx context.Context, id int64) (entity.Choice, error)
}

type SessionStorage interface {
	SaveSession(ctx context.Context, pollID int64, userID *int64, date entity.Date, answers []entity.AnswerInput) (int64, error)
	GetSessionByID(ctx context.Context, id int64) (entity.PollSession, error)
	GetSessions(ctx context.Context, filter entity.SessionFilter) ([]entity.PollSession, error)
}

// NewSurvey builds the survey service. now supplies the current time so
// date rules stay deterministic under test.
func NewSurvey(
	log *slog.Logger,
	pollStorage PollStorage,
	questionStorage QuestionStorage,
	sessionStorage SessionStorage,
	now func() time.Time,
) *Survey {
	return &Survey{
		log:             log,
		pollStorage:     pollStorage,
		questionStorage: questionStorage,
		sessionStorage:  sessionStorage,
		now:             now,
	}
}

func (s *Survey) today() entity.Date {
	return entity.DateOf(s.now())
}

func (s *Survey) CreatePoll(ctx context.Context, title, description string, startDate, endDate *entity.Date) (entity.Poll, error) {
	const op = "Survey.CreatePoll"

	if title == "" {
		return entity.Poll{}, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if description == "" {
		return entity.Poll{}, fmt.Errorf("%w: description is required", ErrValidation)
	}

	start := s.today()
	if startDate != nil {
		start = *startDate
	}
	end := s.today()
	if endDate != nil {
		end = *endDate
	}

	pollID, err := s.pollStorage.SavePoll(ctx, title, description, start, end)
	if err != nil {
		return entity.Poll{}, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("poll created", slog.Int64("poll_id", pollID))

	poll, err := s.pollStorage.GetPollByID(ctx, pollID)
	if err != nil {
		return entity.Poll{}, fmt.Errorf("%s: %w", op, err)
	}

	return poll, nil
}

func (s *Survey) GetPollByID(ctx context.Context, id int64) (entity.Poll, error) {
	const op = "Survey.GetPollByID"

	poll, err := s.pollStorage.GetPollByID(ctx, id)
	if err != nil {
		return entity.Poll{}, fmt.Errorf("%s: %w", op, err)
	}

	return poll, nil
}

func (s *Survey) GetPolls(ctx context.Context) ([]entity.Poll, error) {
	const op = "Survey.GetPolls"

	polls, err := s.pollStorage.GetPolls(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return polls, nil
}

// UpdatePoll rejects any attempt to move the start date earlier than its
// stored value once the poll exists.
func (s *Survey) UpdatePoll(ctx context.Context, id int64, upd entity.PollUpdate) (entity.Poll, error) {
	const op = "Survey.UpdatePoll"

	current, err := s.pollStorage.GetPollByID(ctx, id)
	if err != nil {
		return entity.Poll{}, fmt.Errorf("%s: %w", op, err)
	}

	if upd.Title != nil && *upd.Title == "" {
		return entity.Poll{}, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if upd.Description != nil && *upd.Description == "" {
		return entity.Poll{}, fmt.Errorf("%w: description is required", ErrValidation)
	}
	if upd.StartDate != nil && upd.StartDate.Before(current.StartDate) {
		return entity.Poll{}, fmt.Errorf("%w: start_date cannot be moved earlier than %s", ErrValidation, current.StartDate)
	}

	if err := s.pollStorage.UpdatePoll(ctx, id, upd); err != nil {
		return entity.Poll{}, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("poll updated", slog.Int64("poll_id", id))

	poll, err := s.pollStorage.GetPollByID(ctx, id)
	if err != nil {
		return entity.Poll{}, fmt.Errorf("%s: %w", op, err)
	}

	return poll, nil
}

func (s *Survey) DeletePoll(ctx context.Context, id int64) error {
	const op = "Survey.DeletePoll"

	if err := s.pollStorage.DeletePoll(ctx, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("poll deleted", slog.Int64("poll_id", id))

	return nil
}

// CreateQuestion persists the question and its choices atomically. An empty
// questionType defaults to TEXT.
func (s *Survey) CreateQuestion(ctx context.Context, pollID int64, text string, questionType entity.QuestionType, choices []string) (entity.Question, error) {
	const op = "Survey.CreateQuestion"

	if text == "" {
		return entity.Question{}, fmt.Errorf("%w: text is required", ErrValidation)
	}
	if questionType == "" {
		questionType = entity.QuestionTypeText
	}
	if !questionType.Valid() {
		return entity.Question{}, fmt.Errorf("%w: unknown question type %q", ErrValidation, questionType)
	}

	if _, err := s.pollStorage.GetPollByID(ctx, pollID); err != nil {
		if errors.Is(err, repo.ErrPollNotFound) {
			return entity.Question{}, fmt.Errorf("%w: poll_id %d does not exist", ErrValidation, pollID)
		}
		return entity.Question{}, fmt.Errorf("%s: %w", op, err)
	}

	questionID, err := s.questionStorage.SaveQuestion(ctx, pollID, text, questionType, choices)
	if err != nil {
		return entity.Question{}, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("question created", slog.Int64("question_id", questionID), slog.Int64("poll_id", pollID))

	question, err := s.questionStorage.GetQuestionByID(ctx, questionID)
	if err != nil {
		return entity.Question{}, fmt.Errorf("%s: %w", op, err)
	}

	return question, nil
}

func (s *Survey) GetQuestionByID(ctx context.Context, id int64) (entity.Question, error) {
	const op = "Survey.GetQuestionByID"

	question, err := s.questionStorage.GetQuestionByID(ctx, id)
	if err != nil {
		return entity.Question{}, fmt.Errorf("%s: %w", op, err)
	}

	return question, nil
}

func (s *Survey) GetQuestions(ctx context.Context) ([]entity.Question, error) {
	const op = "Survey.GetQuestions"

	questions, err := s.questionStorage.GetQuestions(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return questions, nil
}

// UpdateQuestion replaces the question's entire choice set when upd.Choices
// is non-nil; individual choices are never patched.
func (s *Survey) UpdateQuestion(ctx context.Context, id int64, upd entity.QuestionUpdate) (entity.Question, error) {
	const op = "Survey.UpdateQuestion"

	if upd.Text != nil && *upd.Text == "" {
		return entity.Question{}, fmt.Errorf("%w: text is required", ErrValidation)
	}
	if upd.Type != nil && !upd.Type.Valid() {
		return entity.Question{}, fmt.Errorf("%w: unknown question type %q", ErrValidation, *upd.Type)
	}

	if err := s.questionStorage.UpdateQuestion(ctx, id, upd); err != nil {
		return entity.Question{}, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("question updated", slog.Int64("question_id", id))

	question, err := s.questionStorage.GetQuestionByID(ctx, id)
	if err != nil {
		return entity.Question{}, fmt.Errorf("%s: %w", op, err)
	}

	return question, nil
}

func (s *Survey) DeleteQuestion(ctx context.Context, id int64) error {
	const op = "Survey.DeleteQuestion"

	if err := s.questionStorage.DeleteQuestion(ctx, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("question deleted", slog.Int64("question_id", id))

	return nil
}

// CreateSession records one attempt at a poll together with all its
// answers. userID comes from the authenticated caller, nil for anonymous.
// The referenced poll must not have expired, and every referenced question
// and choice must exist before anything is written.
func (s *Survey) CreateSession(ctx context.Context, pollID int64, userID *int64, answers []entity.AnswerInput) (entity.PollSession, error) {
	const op = "Survey.CreateSession"

	poll, err := s.pollStorage.GetPollByID(ctx, pollID)
	if err != nil {
		if errors.Is(err, repo.ErrPollNotFound) {
			return entity.PollSession{}, fmt.Errorf("%w: poll_id %d does not exist", ErrValidation, pollID)
		}
		return entity.PollSession{}, fmt.Errorf("%s: %w", op, err)
	}

	if poll.EndDate.Before(s.today()) {
		return entity.PollSession{}, fmt.Errorf("%w: poll_id %d ended on %s", ErrValidation, pollID, poll.EndDate)
	}

	for _, a := range answers {
		if _, err := s.questionStorage.GetQuestionByID(ctx, a.QuestionID); err != nil {
			if errors.Is(err, repo.ErrQuestionNotFound) {
				return entity.PollSession{}, fmt.Errorf("%w: question_id %d does not exist", ErrValidation, a.QuestionID)
			}
			return entity.PollSession{}, fmt.Errorf("%s: %w", op, err)
		}
		if a.ChoiceID != nil {
			if _, err := s.questionStorage.GetChoiceByID(ctx, *a.ChoiceID); err != nil {
				if errors.Is(err, repo.ErrChoiceNotFound) {
					return entity.PollSession{}, fmt.Errorf("%w: choice_id %d does not exist", ErrValidation, *a.ChoiceID)
				}
				return entity.PollSession{}, fmt.Errorf("%s: %w", op, err)
			}
		}
	}

	sessionID, err := s.sessionStorage.SaveSession(ctx, pollID, userID, s.today(), answers)
	if err != nil {
		return entity.PollSession{}, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("poll session created",
		slog.Int64("session_id", sessionID),
		slog.Int64("poll_id", pollID),
		slog.Bool("anonymous", userID == nil),
	)

	session, err := s.sessionStorage.GetSessionByID(ctx, sessionID)
	if err != nil {
		return entity.PollSession{}, fmt.Errorf("%s: %w", op, err)
	}

	return session, nil
}

func (s *Survey) GetSessionByID(ctx context.Context, id int64) (entity.PollSession, error) {
	const op = "Survey.GetSessionByID"

	session, err := s.sessionStorage.GetSessionByID(ctx, id)
	if err != nil {
		return entity.PollSession{}, fmt.Errorf("%s: %w", op, err)
	}

	return session, nil
}

func (s *Survey) GetSessions(ctx context.Context, filter entity.SessionFilter) ([]entity.PollSession, error) {
	const op = "Survey.GetSessions"

	sessions, err := s.sessionStorage.GetSessions(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return sessions, nil
}
