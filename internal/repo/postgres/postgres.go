package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/egorlet/survey-service/internal/entity"
	"github.com/egorlet/survey-service/internal/repo"
	_ "github.com/lib/pq"
)

type Storage struct {
	db *sql.DB
}

func New(postgresURL string) (*Storage, error) {
	const op = "storage.postgres.New"

	db, err := sql.Open("postgres", postgresURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{db: db}, nil
}

func (s *Storage) SavePoll(ctx context.Context, title, description string, startDate, endDate entity.Date) (int64, error) {
	const op = "storage.postgres.SavePoll"

	query := `INSERT INTO polls (title, description, start_date, end_date) VALUES ($1, $2, $3, $4) RETURNING id`

	var id int64
	err := s.db.QueryRowContext(ctx, query, title, description, startDate, endDate).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

func (s *Storage) GetPollByID(ctx context.Context, id int64) (entity.Poll, error) {
	const op = "storage.postgres.GetPollByID"

	query := `SELECT id, title, start_date, end_date, description FROM polls WHERE id = $1`

	var poll entity.Poll
	err := s.db.QueryRowContext(ctx, query, id).Scan(&poll.ID, &poll.Title, &poll.StartDate, &poll.EndDate, &poll.Description)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entity.Poll{}, fmt.Errorf("%s: %w", op, repo.ErrPollNotFound)
		}
		return entity.Poll{}, fmt.Errorf("%s: %w", op, err)
	}

	questions, err := s.getQuestionsByPollID(ctx, id)
	if err != nil {
		return entity.Poll{}, fmt.Errorf("%s: %w", op, err)
	}
	poll.Questions = questions

	return poll, nil
}

func (s *Storage) GetPolls(ctx context.Context) ([]entity.Poll, error) {
	const op = "storage.postgres.GetPolls"

	query := `SELECT id, title, start_date, end_date, description FROM polls ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var polls []entity.Poll
	for rows.Next() {
		var poll entity.Poll
		if err := rows.Scan(&poll.ID, &poll.Title, &poll.StartDate, &poll.EndDate, &poll.Description); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		polls = append(polls, poll)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows error: %w", op, err)
	}

	return polls, nil
}

// UpdatePoll applies each non-nil field of upd. The static field list keeps
// the mutable surface explicit.
func (s *Storage) UpdatePoll(ctx context.Context, id int64, upd entity.PollUpdate) error {
	const op = "storage.postgres.UpdatePoll"

	var sets []string
	var args []any

	if upd.Title != nil {
		args = append(args, *upd.Title)
		sets = append(sets, fmt.Sprintf("title = $%d", len(args)))
	}
	if upd.StartDate != nil {
		args = append(args, *upd.StartDate)
		sets = append(sets, fmt.Sprintf("start_date = $%d", len(args)))
	}
	if upd.EndDate != nil {
		args = append(args, *upd.EndDate)
		sets = append(sets, fmt.Sprintf("end_date = $%d", len(args)))
	}
	if upd.Description != nil {
		args = append(args, *upd.Description)
		sets = append(sets, fmt.Sprintf("description = $%d", len(args)))
	}

	if len(sets) == 0 {
		return nil
	}

	args = append(args, id)
	query := fmt.Sprintf(`UPDATE polls SET %s WHERE id = $%d`, strings.Join(sets, ", "), len(args))

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s: %w", op, repo.ErrPollNotFound)
	}
	return nil
}

func (s *Storage) DeletePoll(ctx context.Context, id int64) error {
	const op = "storage.postgres.DeletePoll"

	query := `DELETE FROM polls WHERE id = $1`

	res, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return repo.ErrPollNotFound
	}

	return nil
}

// SaveQuestion inserts the question and its choices in one transaction,
// preserving the supplied choice order.
func (s *Storage) SaveQuestion(ctx context.Context, pollID int64, text string, questionType entity.QuestionType, choices []string) (int64, error) {
	const op = "storage.postgres.SaveQuestion"

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	defer tx.Rollback()

	query := `INSERT INTO questions (poll_id, text, type) VALUES ($1, $2, $3) RETURNING id`

	var id int64
	if err := tx.QueryRowContext(ctx, query, pollID, text, questionType).Scan(&id); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	if err := insertChoices(ctx, tx, id, choices); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

func (s *Storage) GetQuestionByID(ctx context.Context, id int64) (entity.Question, error) {
	const op = "storage.postgres.GetQuestionByID"

	query := `SELECT id, poll_id, text, type FROM questions WHERE id = $1`

	var question entity.Question
	err := s.db.QueryRowContext(ctx, query, id).Scan(&question.ID, &question.PollID, &question.Text, &question.Type)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entity.Question{}, fmt.Errorf("%s: %w", op, repo.ErrQuestionNotFound)
		}
		return entity.Question{}, fmt.Errorf("%s: %w", op, err)
	}

	choices, err := s.getChoicesByQuestionID(ctx, id)
	if err != nil {
		return entity.Question{}, fmt.Errorf("%s: %w", op, err)
	}
	question.Choices = choices

	return question, nil
}

func (s *Storage) GetQuestions(ctx context.Context) ([]entity.Question, error) {
	const op = "storage.postgres.GetQuestions"

	query := `SELECT id, poll_id, text, type FROM questions ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var questions []entity.Question
	for rows.Next() {
		var question entity.Question
		if err := rows.Scan(&question.ID, &question.PollID, &question.Text, &question.Type); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		questions = append(questions, question)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows error: %w", op, err)
	}

	return questions, nil
}

// UpdateQuestion applies each non-nil field of upd. A non-nil Choices
// replaces the question's whole choice set inside the same transaction.
func (s *Storage) UpdateQuestion(ctx context.Context, id int64, upd entity.QuestionUpdate) error {
	const op = "storage.postgres.UpdateQuestion"

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer tx.Rollback()

	var sets []string
	var args []any

	if upd.Text != nil {
		args = append(args, *upd.Text)
		sets = append(sets, fmt.Sprintf("text = $%d", len(args)))
	}
	if upd.Type != nil {
		args = append(args, *upd.Type)
		sets = append(sets, fmt.Sprintf("type = $%d", len(args)))
	}

	if len(sets) > 0 {
		args = append(args, id)
		query := fmt.Sprintf(`UPDATE questions SET %s WHERE id = $%d`, strings.Join(sets, ", "), len(args))

		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("%s: %w", op, repo.ErrQuestionNotFound)
		}
	} else {
		var exists int64
		if err := tx.QueryRowContext(ctx, `SELECT id FROM questions WHERE id = $1`, id).Scan(&exists); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("%s: %w", op, repo.ErrQuestionNotFound)
			}
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	if upd.Choices != nil {
		if _, err := tx.ExecContext(ctx, `DELETE FROM choices WHERE question_id = $1`, id); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		if err := insertChoices(ctx, tx, id, *upd.Choices); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Storage) DeleteQuestion(ctx context.Context, id int64) error {
	const op = "storage.postgres.DeleteQuestion"

	query := `DELETE FROM questions WHERE id = $1`

	res, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return repo.ErrQuestionNotFound
	}

	return nil
}

func (s *Storage) GetChoiceByID(ctx context.Context, id int64) (entity.Choice, error) {
	const op = "storage.postgres.GetChoiceByID"

	query := `SELECT id, question_id, text FROM choices WHERE id = $1`

	var choice entity.Choice
	err := s.db.QueryRowContext(ctx, query, id).Scan(&choice.ID, &choice.QuestionID, &choice.Text)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entity.Choice{}, fmt.Errorf("%s: %w", op, repo.ErrChoiceNotFound)
		}
		return entity.Choice{}, fmt.Errorf("%s: %w", op, err)
	}

	return choice, nil
}

// SaveSession inserts the session and all its answers in one transaction;
// either everything persists or nothing does.
func (s *Storage) SaveSession(ctx context.Context, pollID int64, userID *int64, date entity.Date, answers []entity.AnswerInput) (int64, error) {
	const op = "storage.postgres.SaveSession"

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	defer tx.Rollback()

	query := `INSERT INTO poll_sessions (poll_id, user_id, date) VALUES ($1, $2, $3) RETURNING id`

	var id int64
	if err := tx.QueryRowContext(ctx, query, pollID, userID, date).Scan(&id); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	answerQuery := `INSERT INTO answers (poll_session_id, question_id, choice_id, value) VALUES ($1, $2, $3, $4)`
	for _, a := range answers {
		if _, err := tx.ExecContext(ctx, answerQuery, id, a.QuestionID, a.ChoiceID, a.Value); err != nil {
			return 0, fmt.Errorf("%s: %w", op, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

func (s *Storage) GetSessionByID(ctx context.Context, id int64) (entity.PollSession, error) {
	const op = "storage.postgres.GetSessionByID"

	query := `SELECT id, poll_id, user_id, date FROM poll_sessions WHERE id = $1`

	var session entity.PollSession
	err := s.db.QueryRowContext(ctx, query, id).Scan(&session.ID, &session.PollID, &session.UserID, &session.Date)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entity.PollSession{}, fmt.Errorf("%s: %w", op, repo.ErrSessionNotFound)
		}
		return entity.PollSession{}, fmt.Errorf("%s: %w", op, err)
	}

	poll, err := s.GetPollByID(ctx, session.PollID)
	if err != nil {
		return entity.PollSession{}, fmt.Errorf("%s: %w", op, err)
	}
	session.Poll = &poll

	answerQuery := `
		SELECT a.id, a.poll_session_id, a.question_id, a.choice_id, a.value, c.text
		FROM answers a
		LEFT JOIN choices c ON a.choice_id = c.id
		WHERE a.poll_session_id = $1
		ORDER BY a.id`

	rows, err := s.db.QueryContext(ctx, answerQuery, id)
	if err != nil {
		return entity.PollSession{}, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	for rows.Next() {
		var answer entity.Answer
		if err := rows.Scan(&answer.ID, &answer.PollSessionID, &answer.QuestionID, &answer.ChoiceID, &answer.Value, &answer.ChoiceText); err != nil {
			return entity.PollSession{}, fmt.Errorf("%s: scan: %w", op, err)
		}
		session.Answers = append(session.Answers, answer)
	}

	if err := rows.Err(); err != nil {
		return entity.PollSession{}, fmt.Errorf("%s: rows error: %w", op, err)
	}

	return session, nil
}

func (s *Storage) GetSessions(ctx context.Context, filter entity.SessionFilter) ([]entity.PollSession, error) {
	const op = "storage.postgres.GetSessions"

	var conds []string
	var args []any

	if filter.PollID != nil {
		args = append(args, *filter.PollID)
		conds = append(conds, fmt.Sprintf("poll_id = $%d", len(args)))
	}
	if filter.UserID != nil {
		args = append(args, *filter.UserID)
		conds = append(conds, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if filter.UserIsNull != nil {
		if *filter.UserIsNull {
			conds = append(conds, "user_id IS NULL")
		} else {
			conds = append(conds, "user_id IS NOT NULL")
		}
	}

	query := `SELECT id, poll_id, user_id, date FROM poll_sessions`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var sessions []entity.PollSession
	for rows.Next() {
		var session entity.PollSession
		if err := rows.Scan(&session.ID, &session.PollID, &session.UserID, &session.Date); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		sessions = append(sessions, session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows error: %w", op, err)
	}

	return sessions, nil
}

func (s *Storage) getQuestionsByPollID(ctx context.Context, pollID int64) ([]entity.Question, error) {
	query := `SELECT id, poll_id, text, type FROM questions WHERE poll_id = $1 ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, pollID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []entity.Question
	for rows.Next() {
		var question entity.Question
		if err := rows.Scan(&question.ID, &question.PollID, &question.Text, &question.Type); err != nil {
			return nil, err
		}
		questions = append(questions, question)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	choiceQuery := `
		SELECT c.id, c.question_id, c.text
		FROM choices c
		JOIN questions q ON c.question_id = q.id
		WHERE q.poll_id = $1
		ORDER BY c.id`

	choiceRows, err := s.db.QueryContext(ctx, choiceQuery, pollID)
	if err != nil {
		return nil, err
	}
	defer choiceRows.Close()

	byQuestion := make(map[int64][]entity.Choice)
	for choiceRows.Next() {
		var choice entity.Choice
		if err := choiceRows.Scan(&choice.ID, &choice.QuestionID, &choice.Text); err != nil {
			return nil, err
		}
		byQuestion[choice.QuestionID] = append(byQuestion[choice.QuestionID], choice)
	}
	if err := choiceRows.Err(); err != nil {
		return nil, err
	}

	for i := range questions {
		questions[i].Choices = byQuestion[questions[i].ID]
	}

	return questions, nil
}

func (s *Storage) getChoicesByQuestionID(ctx context.Context, questionID int64) ([]entity.Choice, error) {
	query := `SELECT id, question_id, text FROM choices WHERE question_id = $1 ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, questionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var choices []entity.Choice
	for rows.Next() {
		var choice entity.Choice
		if err := rows.Scan(&choice.ID, &choice.QuestionID, &choice.Text); err != nil {
			return nil, err
		}
		choices = append(choices, choice)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return choices, nil
}

func insertChoices(ctx context.Context, tx *sql.Tx, questionID int64, choices []string) error {
	query := `INSERT INTO choices (question_id, text) VALUES ($1, $2)`
	for _, text := range choices {
		if _, err := tx.ExecContext(ctx, query, questionID, text); err != nil {
			return err
		}
	}
	return nil
}
