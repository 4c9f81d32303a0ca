// Package testutil provides an in-memory implementation of the service
// storage interfaces so service and handler tests run without Postgres.
package testutil

import (
	"context"
	"sort"
	"sync"

	"github.com/egorlet/survey-service/internal/entity"
	"github.com/egorlet/survey-service/internal/repo"
)

type Storage struct {
	mu        sync.Mutex
	nextID    int64
	polls     map[int64]entity.Poll
	questions map[int64]entity.Question
	choices   map[int64]entity.Choice
	sessions  map[int64]entity.PollSession
	answers   map[int64]entity.Answer
}

func NewStorage() *Storage {
	return &Storage{
		polls:     make(map[int64]entity.Poll),
		questions: make(map[int64]entity.Question),
		choices:   make(map[int64]entity.Choice),
		sessions:  make(map[int64]entity.PollSession),
		answers:   make(map[int64]entity.Answer),
	}
}

func (s *Storage) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *Storage) SavePoll(_ context.Context, title, description string, startDate, endDate entity.Date) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.id()
	s.polls[id] = entity.Poll{
		ID:          id,
		Title:       title,
		StartDate:   startDate,
		EndDate:     endDate,
		Description: description,
	}
	return id, nil
}

func (s *Storage) GetPollByID(_ context.Context, id int64) (entity.Poll, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pollByID(id)
}

func (s *Storage) GetPolls(_ context.Context) ([]entity.Poll, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var polls []entity.Poll
	for _, poll := range s.polls {
		polls = append(polls, poll)
	}
	sort.Slice(polls, func(i, j int) bool { return polls[i].ID < polls[j].ID })
	return polls, nil
}

func (s *Storage) UpdatePoll(_ context.Context, id int64, upd entity.PollUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	poll, ok := s.polls[id]
	if !ok {
		return repo.ErrPollNotFound
	}
	if upd.Title != nil {
		poll.Title = *upd.Title
	}
	if upd.StartDate != nil {
		poll.StartDate = *upd.StartDate
	}
	if upd.EndDate != nil {
		poll.EndDate = *upd.EndDate
	}
	if upd.Description != nil {
		poll.Description = *upd.Description
	}
	s.polls[id] = poll
	return nil
}

func (s *Storage) DeletePoll(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.polls[id]; !ok {
		return repo.ErrPollNotFound
	}
	delete(s.polls, id)

	for questionID, question := range s.questions {
		if question.PollID == id {
			s.deleteQuestionLocked(questionID)
		}
	}
	for sessionID, session := range s.sessions {
		if session.PollID == id {
			s.deleteSessionLocked(sessionID)
		}
	}
	return nil
}

func (s *Storage) SaveQuestion(_ context.Context, pollID int64, text string, questionType entity.QuestionType, choices []string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.id()
	s.questions[id] = entity.Question{ID: id, PollID: pollID, Text: text, Type: questionType}
	for _, choiceText := range choices {
		choiceID := s.id()
		s.choices[choiceID] = entity.Choice{ID: choiceID, QuestionID: id, Text: choiceText}
	}
	return id, nil
}

func (s *Storage) GetQuestionByID(_ context.Context, id int64) (entity.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.questionByID(id)
}

func (s *Storage) GetQuestions(_ context.Context) ([]entity.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var questions []entity.Question
	for id := range s.questions {
		question, _ := s.questionByID(id)
		questions = append(questions, question)
	}
	sort.Slice(questions, func(i, j int) bool { return questions[i].ID < questions[j].ID })
	return questions, nil
}

func (s *Storage) UpdateQuestion(_ context.Context, id int64, upd entity.QuestionUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	question, ok := s.questions[id]
	if !ok {
		return repo.ErrQuestionNotFound
	}
	if upd.Text != nil {
		question.Text = *upd.Text
	}
	if upd.Type != nil {
		question.Type = *upd.Type
	}
	s.questions[id] = question

	if upd.Choices != nil {
		for choiceID, choice := range s.choices {
			if choice.QuestionID == id {
				delete(s.choices, choiceID)
			}
		}
		for _, choiceText := range *upd.Choices {
			choiceID := s.id()
			s.choices[choiceID] = entity.Choice{ID: choiceID, QuestionID: id, Text: choiceText}
		}
	}
	return nil
}

func (s *Storage) DeleteQuestion(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.questions[id]; !ok {
		return repo.ErrQuestionNotFound
	}
	s.deleteQuestionLocked(id)
	return nil
}

func (s *Storage) GetChoiceByID(_ context.Context, id int64) (entity.Choice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	choice, ok := s.choices[id]
	if !ok {
		return entity.Choice{}, repo.ErrChoiceNotFound
	}
	return choice, nil
}

func (s *Storage) SaveSession(_ context.Context, pollID int64, userID *int64, date entity.Date, answers []entity.AnswerInput) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.id()
	s.sessions[id] = entity.PollSession{ID: id, PollID: pollID, UserID: userID, Date: date}
	for _, a := range answers {
		answerID := s.id()
		s.answers[answerID] = entity.Answer{
			ID:            answerID,
			PollSessionID: id,
			QuestionID:    a.QuestionID,
			ChoiceID:      a.ChoiceID,
			Value:         a.Value,
		}
	}
	return id, nil
}

func (s *Storage) GetSessionByID(_ context.Context, id int64) (entity.PollSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return entity.PollSession{}, repo.ErrSessionNotFound
	}

	poll, err := s.pollByID(session.PollID)
	if err != nil {
		return entity.PollSession{}, err
	}
	session.Poll = &poll

	var answers []entity.Answer
	for _, answer := range s.answers {
		if answer.PollSessionID != id {
			continue
		}
		if answer.ChoiceID != nil {
			if choice, ok := s.choices[*answer.ChoiceID]; ok {
				text := choice.Text
				answer.ChoiceText = &text
			}
		}
		answers = append(answers, answer)
	}
	sort.Slice(answers, func(i, j int) bool { return answers[i].ID < answers[j].ID })
	session.Answers = answers

	return session, nil
}

func (s *Storage) GetSessions(_ context.Context, filter entity.SessionFilter) ([]entity.PollSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var sessions []entity.PollSession
	for _, session := range s.sessions {
		if filter.PollID != nil && session.PollID != *filter.PollID {
			continue
		}
		if filter.UserID != nil && (session.UserID == nil || *session.UserID != *filter.UserID) {
			continue
		}
		if filter.UserIsNull != nil && *filter.UserIsNull != (session.UserID == nil) {
			continue
		}
		sessions = append(sessions, session)
	}
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].ID < sessions[j].ID })
	return sessions, nil
}

// CountQuestions reports how many questions reference the poll.
func (s *Storage) CountQuestions(pollID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, question := range s.questions {
		if question.PollID == pollID {
			n++
		}
	}
	return n
}

// CountChoices reports how many choices reference the question.
func (s *Storage) CountChoices(questionID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, choice := range s.choices {
		if choice.QuestionID == questionID {
			n++
		}
	}
	return n
}

// CountAnswers reports how many answers reference the session.
func (s *Storage) CountAnswers(sessionID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, answer := range s.answers {
		if answer.PollSessionID == sessionID {
			n++
		}
	}
	return n
}

func (s *Storage) pollByID(id int64) (entity.Poll, error) {
	poll, ok := s.polls[id]
	if !ok {
		return entity.Poll{}, repo.ErrPollNotFound
	}

	var questions []entity.Question
	for questionID, question := range s.questions {
		if question.PollID != id {
			continue
		}
		full, _ := s.questionByID(questionID)
		questions = append(questions, full)
	}
	sort.Slice(questions, func(i, j int) bool { return questions[i].ID < questions[j].ID })
	poll.Questions = questions

	return poll, nil
}

func (s *Storage) questionByID(id int64) (entity.Question, error) {
	question, ok := s.questions[id]
	if !ok {
		return entity.Question{}, repo.ErrQuestionNotFound
	}

	var choices []entity.Choice
	for _, choice := range s.choices {
		if choice.QuestionID == id {
			choices = append(choices, choice)
		}
	}
	sort.Slice(choices, func(i, j int) bool { return choices[i].ID < choices[j].ID })
	question.Choices = choices

	return question, nil
}

func (s *Storage) deleteQuestionLocked(id int64) {
	delete(s.questions, id)
	for choiceID, choice := range s.choices {
		if choice.QuestionID == id {
			delete(s.choices, choiceID)
		}
	}
	for answerID, answer := range s.answers {
		if answer.QuestionID == id {
			delete(s.answers, answerID)
		}
	}
}

func (s *Storage) deleteSessionLocked(id int64) {
	delete(s.sessions, id)
	for answerID, answer := range s.answers {
		if answer.PollSessionID == id {
			delete(s.answers, answerID)
		}
	}
}
