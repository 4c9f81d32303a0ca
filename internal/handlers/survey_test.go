package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpapp "github.com/egorlet/survey-service/internal/app/http"
	"github.com/egorlet/survey-service/internal/entity"
	"github.com/egorlet/survey-service/internal/handlers"
	"github.com/egorlet/survey-service/internal/lib/jwt"
	"github.com/egorlet/survey-service/internal/middleware"
	"github.com/egorlet/survey-service/internal/services"
	"github.com/egorlet/survey-service/internal/testutil"
)

const testSecret = "test-secret"

var testToday = time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	engine  *gin.Engine
	storage *testutil.Storage
	survey  *services.Survey
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	storage := testutil.NewStorage()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	survey := services.NewSurvey(log, storage, storage, storage, func() time.Time { return testToday })
	handler := handlers.NewSurveyHandler(survey)
	authMiddleware := middleware.NewAuthMiddleware(testSecret)

	app := httpapp.NewApp(log, 0, handler, authMiddleware)

	return &testEnv{engine: app.Engine(), storage: storage, survey: survey}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		req = httptest.NewRequest(method, path, bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	return w
}

func adminToken(t *testing.T) string {
	t.Helper()
	token, err := jwt.NewToken(1, "admin@example.com", true, testSecret, time.Hour)
	require.NoError(t, err)
	return token
}

func userToken(t *testing.T, userID int64) string {
	t.Helper()
	token, err := jwt.NewToken(userID, "user@example.com", false, testSecret, time.Hour)
	require.NoError(t, err)
	return token
}

func (e *testEnv) seedPoll(t *testing.T, endDate entity.Date) entity.Poll {
	t.Helper()
	start := entity.NewDate(2024, time.June, 1)
	poll, err := e.survey.CreatePoll(context.Background(), gofakeit.Sentence(3), gofakeit.Sentence(8), &start, &endDate)
	require.NoError(t, err)
	return poll
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(w.Body).Decode(&v))
	return v
}

func TestCreatePoll_AsAdmin(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/poll/create/", adminToken(t), gin.H{
		"title":       "Customer feedback",
		"description": "How did we do?",
		"end_date":    "2024-07-01",
	})

	require.Equal(t, http.StatusCreated, w.Code)
	resp := decode[handlers.PollResponse](t, w)
	assert.Equal(t, "Customer feedback", resp.Title)
	assert.Equal(t, "2024-06-15", resp.StartDate.String())
	assert.Equal(t, "2024-07-01", resp.EndDate.String())
}

func TestCreatePoll_RequiresAdmin(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/poll/create/", userToken(t, 5), gin.H{
		"title":       "Nope",
		"description": "Nope",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodPost, "/poll/create/", "", gin.H{
		"title":       "Nope",
		"description": "Nope",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// nothing was written
	polls, err := env.survey.GetPolls(context.Background())
	require.NoError(t, err)
	assert.Empty(t, polls)
}

func TestGetPolls_IsPublicAndMinimal(t *testing.T) {
	env := newTestEnv(t)
	poll := env.seedPoll(t, entity.NewDate(2024, time.July, 1))

	w := env.do(t, http.MethodGet, "/poll/list/", "", nil)

	require.Equal(t, http.StatusOK, w.Code)
	items := decode[[]map[string]any](t, w)
	require.Len(t, items, 1)
	assert.Equal(t, float64(poll.ID), items[0]["id"])
	assert.Equal(t, poll.Title, items[0]["title"])
	assert.Contains(t, items[0], "start_date")
	assert.NotContains(t, items[0], "description")
	assert.NotContains(t, items[0], "end_date")
}

func TestUpdatePoll_StartDateRewindRejected(t *testing.T) {
	env := newTestEnv(t)
	poll := env.seedPoll(t, entity.NewDate(2024, time.July, 1))

	w := env.do(t, http.MethodPatch, "/poll/detail/1/", adminToken(t), gin.H{
		"start_date": "2024-05-01",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPatch, "/poll/detail/1/", adminToken(t), gin.H{
		"start_date": "2024-06-20",
	})
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[handlers.PollResponse](t, w)
	assert.Equal(t, poll.ID, resp.ID)
	assert.Equal(t, "2024-06-20", resp.StartDate.String())
}

func TestUpdatePoll_PutRequiresFullPayload(t *testing.T) {
	env := newTestEnv(t)
	env.seedPoll(t, entity.NewDate(2024, time.July, 1))

	w := env.do(t, http.MethodPut, "/poll/detail/1/", adminToken(t), gin.H{
		"title": "only a title",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPollDetail_NotFound(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/poll/detail/42/", adminToken(t), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestQuestionLifecycle(t *testing.T) {
	env := newTestEnv(t)
	poll := env.seedPoll(t, entity.NewDate(2024, time.July, 1))

	w := env.do(t, http.MethodPost, "/question/create/", adminToken(t), gin.H{
		"poll_id": poll.ID,
		"text":    "Favourite colour?",
		"type":    "CHOICE",
		"choices": []gin.H{{"text": "Red"}, {"text": "Blue"}},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	created := decode[handlers.QuestionResponse](t, w)
	require.Len(t, created.Choices, 2)
	assert.Equal(t, "Red", created.Choices[0].Text)
	assert.Equal(t, "Blue", created.Choices[1].Text)

	// list is admin-only and minimal
	w = env.do(t, http.MethodGet, "/question/list/", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(t, http.MethodGet, "/question/list/", adminToken(t), nil)
	require.Equal(t, http.StatusOK, w.Code)
	items := decode[[]handlers.QuestionListItem](t, w)
	require.Len(t, items, 1)
	assert.Equal(t, poll.ID, items[0].PollID)

	// update swaps the entire choice set
	w = env.do(t, http.MethodPatch, "/question/detail/2/", adminToken(t), gin.H{
		"choices": []gin.H{{"text": "Green"}},
	})
	require.Equal(t, http.StatusOK, w.Code)
	updated := decode[handlers.QuestionResponse](t, w)
	require.Len(t, updated.Choices, 1)
	assert.Equal(t, "Green", updated.Choices[0].Text)

	w = env.do(t, http.MethodDelete, "/question/detail/2/", adminToken(t), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(t, http.MethodGet, "/question/detail/2/", adminToken(t), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestQuestionCreate_RejectsBadType(t *testing.T) {
	env := newTestEnv(t)
	poll := env.seedPoll(t, entity.NewDate(2024, time.July, 1))

	w := env.do(t, http.MethodPost, "/question/create/", adminToken(t), gin.H{
		"poll_id": poll.ID,
		"text":    "Q",
		"type":    "RANKED",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateSession_Anonymous(t *testing.T) {
	env := newTestEnv(t)
	poll := env.seedPoll(t, entity.NewDate(2024, time.July, 1))

	question, err := env.survey.CreateQuestion(context.Background(), poll.ID, "Comments?", entity.QuestionTypeText, nil)
	require.NoError(t, err)

	w := env.do(t, http.MethodPost, "/poll_session/", "", gin.H{
		"poll_id": poll.ID,
		"answers": []gin.H{{"question_id": question.ID, "value": "all good"}},
	})

	require.Equal(t, http.StatusCreated, w.Code)
	resp := decode[handlers.SessionResponse](t, w)
	assert.Nil(t, resp.User)
	assert.Equal(t, poll.ID, resp.Poll.ID)
	require.Len(t, resp.Answers, 1)
	assert.Equal(t, "all good", resp.Answers[0])
}

func TestCreateSession_UserComesFromToken(t *testing.T) {
	env := newTestEnv(t)
	poll := env.seedPoll(t, entity.NewDate(2024, time.July, 1))

	// a user field in the payload is ignored
	w := env.do(t, http.MethodPost, "/poll_session/", userToken(t, 9), gin.H{
		"poll_id": poll.ID,
		"user":    123,
	})

	require.Equal(t, http.StatusCreated, w.Code)
	resp := decode[handlers.SessionResponse](t, w)
	require.NotNil(t, resp.User)
	assert.Equal(t, int64(9), *resp.User)
}

func TestCreateSession_ExpiredPoll(t *testing.T) {
	env := newTestEnv(t)
	poll := env.seedPoll(t, entity.NewDate(2024, time.June, 14))

	w := env.do(t, http.MethodPost, "/poll_session/", "", gin.H{
		"poll_id": poll.ID,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetSessions_AnonymousFilter(t *testing.T) {
	env := newTestEnv(t)
	poll := env.seedPoll(t, entity.NewDate(2024, time.July, 1))

	userID := int64(9)
	_, err := env.survey.CreateSession(context.Background(), poll.ID, &userID, nil)
	require.NoError(t, err)
	anonymous, err := env.survey.CreateSession(context.Background(), poll.ID, nil, nil)
	require.NoError(t, err)

	w := env.do(t, http.MethodGet, "/poll_session/?user__isnull=true", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	items := decode[[]handlers.SessionListItem](t, w)
	require.Len(t, items, 1)
	assert.Equal(t, anonymous.ID, items[0].ID)
	assert.Nil(t, items[0].User)

	w = env.do(t, http.MethodGet, "/poll_session/?user=9", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	items = decode[[]handlers.SessionListItem](t, w)
	require.Len(t, items, 1)
	require.NotNil(t, items[0].User)
	assert.Equal(t, int64(9), *items[0].User)
}

func TestGetSessionByID_RendersAnswers(t *testing.T) {
	env := newTestEnv(t)
	poll := env.seedPoll(t, entity.NewDate(2024, time.July, 1))

	question, err := env.survey.CreateQuestion(context.Background(), poll.ID, "Pick one", entity.QuestionTypeChoice, []string{"Yes", "No"})
	require.NoError(t, err)

	session, err := env.survey.CreateSession(context.Background(), poll.ID, nil, []entity.AnswerInput{
		{QuestionID: question.ID, ChoiceID: &question.Choices[1].ID},
	})
	require.NoError(t, err)

	w := env.do(t, http.MethodGet, fmt.Sprintf("/poll_session/%d/", session.ID), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[handlers.SessionResponse](t, w)
	assert.Equal(t, session.ID, resp.ID)
	require.Len(t, resp.Answers, 1)
	assert.Equal(t, "No", resp.Answers[0])
}

func TestSessionMutationNotExposed(t *testing.T) {
	env := newTestEnv(t)
	poll := env.seedPoll(t, entity.NewDate(2024, time.July, 1))

	_, err := env.survey.CreateSession(context.Background(), poll.ID, nil, nil)
	require.NoError(t, err)

	w := env.do(t, http.MethodPut, "/poll_session/2/", adminToken(t), gin.H{})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodDelete, "/poll_session/2/", adminToken(t), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
