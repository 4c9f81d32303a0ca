package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/egorlet/survey-service/internal/entity"
	"github.com/egorlet/survey-service/internal/middleware"
	"github.com/egorlet/survey-service/internal/repo"
	"github.com/egorlet/survey-service/internal/services"
	"github.com/gin-gonic/gin"
)

type SurveyHandler struct {
	surveyService *services.Survey
}

func NewSurveyHandler(surveyService *services.Survey) *SurveyHandler {
	return &SurveyHandler{surveyService: surveyService}
}

type CreatePollRequest struct {
	Title       string       `json:"title" binding:"required"`
	StartDate   *entity.Date `json:"start_date"`
	EndDate     *entity.Date `json:"end_date"`
	Description string       `json:"description" binding:"required"`
}

type UpdatePollRequest struct {
	Title       *string      `json:"title"`
	StartDate   *entity.Date `json:"start_date"`
	EndDate     *entity.Date `json:"end_date"`
	Description *string      `json:"description"`
}

type ChoiceInput struct {
	Text string `json:"text" binding:"required"`
}

type CreateQuestionRequest struct {
	PollID  int64         `json:"poll_id" binding:"required"`
	Text    string        `json:"text" binding:"required"`
	Type    string        `json:"type" binding:"omitempty,oneof=TEXT CHOICE MULTICHOICE"`
	Choices []ChoiceInput `json:"choices" binding:"omitempty,dive"`
}

type UpdateQuestionRequest struct {
	Text    *string        `json:"text"`
	Type    *string        `json:"type" binding:"omitempty,oneof=TEXT CHOICE MULTICHOICE"`
	Choices *[]ChoiceInput `json:"choices" binding:"omitempty,dive"`
}

type AnswerInput struct {
	QuestionID int64   `json:"question_id" binding:"required"`
	ChoiceID   *int64  `json:"choice_id"`
	Value      *string `json:"value"`
}

type CreateSessionRequest struct {
	PollID  int64         `json:"poll_id" binding:"required"`
	Answers []AnswerInput `json:"answers" binding:"omitempty,dive"`
}

type ChoiceResponse struct {
	ID   int64  `json:"id"`
	Text string `json:"text"`
}

type QuestionResponse struct {
	ID      int64            `json:"id"`
	Text    string           `json:"text"`
	Type    string           `json:"type"`
	Choices []ChoiceResponse `json:"choices"`
}

type QuestionListItem struct {
	ID     int64  `json:"id"`
	PollID int64  `json:"poll_id"`
	Text   string `json:"text"`
}

type PollResponse struct {
	ID          int64              `json:"id"`
	Title       string             `json:"title"`
	StartDate   entity.Date        `json:"start_date"`
	EndDate     entity.Date        `json:"end_date"`
	Description string             `json:"description"`
	Questions   []QuestionResponse `json:"questions"`
}

type PollListItem struct {
	ID        int64       `json:"id"`
	Title     string      `json:"title"`
	StartDate entity.Date `json:"start_date"`
}

type SessionResponse struct {
	ID      int64        `json:"id"`
	Poll    PollResponse `json:"poll"`
	User    *int64       `json:"user"`
	Date    entity.Date  `json:"date"`
	Answers []string     `json:"answers"`
}

type SessionListItem struct {
	ID     int64       `json:"id"`
	PollID int64       `json:"poll_id"`
	User   *int64      `json:"user"`
	Date   entity.Date `json:"date"`
}

func (h *SurveyHandler) CreatePoll(c *gin.Context) {
	var req CreatePollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input"})
		return
	}

	poll, err := h.surveyService.CreatePoll(c.Request.Context(), req.Title, req.Description, req.StartDate, req.EndDate)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, pollResponse(poll))
}

func (h *SurveyHandler) GetPolls(c *gin.Context) {
	polls, err := h.surveyService.GetPolls(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	items := make([]PollListItem, 0, len(polls))
	for _, poll := range polls {
		items = append(items, PollListItem{ID: poll.ID, Title: poll.Title, StartDate: poll.StartDate})
	}

	c.JSON(http.StatusOK, items)
}

func (h *SurveyHandler) GetPollByID(c *gin.Context) {
	pollID, ok := parseID(c, "id")
	if !ok {
		return
	}

	poll, err := h.surveyService.GetPollByID(c.Request.Context(), pollID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, pollResponse(poll))
}

func (h *SurveyHandler) UpdatePoll(c *gin.Context) {
	pollID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req UpdatePollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input"})
		return
	}

	// PUT replaces the resource, so the full field set must be present.
	if c.Request.Method == http.MethodPut {
		if req.Title == nil || req.StartDate == nil || req.EndDate == nil || req.Description == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "title, start_date, end_date and description are required"})
			return
		}
	}

	upd := entity.PollUpdate{
		Title:       req.Title,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Description: req.Description,
	}

	poll, err := h.surveyService.UpdatePoll(c.Request.Context(), pollID, upd)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, pollResponse(poll))
}

func (h *SurveyHandler) DeletePoll(c *gin.Context) {
	pollID, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.surveyService.DeletePoll(c.Request.Context(), pollID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusNoContent, gin.H{})
}

func (h *SurveyHandler) CreateQuestion(c *gin.Context) {
	var req CreateQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input"})
		return
	}

	question, err := h.surveyService.CreateQuestion(
		c.Request.Context(),
		req.PollID,
		req.Text,
		entity.QuestionType(req.Type),
		choiceTexts(req.Choices),
	)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, questionResponse(question))
}

func (h *SurveyHandler) GetQuestions(c *gin.Context) {
	questions, err := h.surveyService.GetQuestions(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	items := make([]QuestionListItem, 0, len(questions))
	for _, question := range questions {
		items = append(items, QuestionListItem{ID: question.ID, PollID: question.PollID, Text: question.Text})
	}

	c.JSON(http.StatusOK, items)
}

func (h *SurveyHandler) GetQuestionByID(c *gin.Context) {
	questionID, ok := parseID(c, "id")
	if !ok {
		return
	}

	question, err := h.surveyService.GetQuestionByID(c.Request.Context(), questionID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, questionResponse(question))
}

func (h *SurveyHandler) UpdateQuestion(c *gin.Context) {
	questionID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req UpdateQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input"})
		return
	}

	// PUT replaces the resource: text is mandatory and an omitted choice
	// list clears the stored one. PATCH touches only the supplied fields.
	if c.Request.Method == http.MethodPut {
		if req.Text == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "text is required"})
			return
		}
		if req.Choices == nil {
			empty := []ChoiceInput{}
			req.Choices = &empty
		}
	}

	upd := entity.QuestionUpdate{Text: req.Text}
	if req.Type != nil {
		questionType := entity.QuestionType(*req.Type)
		upd.Type = &questionType
	}
	if req.Choices != nil {
		texts := choiceTexts(*req.Choices)
		upd.Choices = &texts
	}

	question, err := h.surveyService.UpdateQuestion(c.Request.Context(), questionID, upd)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, questionResponse(question))
}

func (h *SurveyHandler) DeleteQuestion(c *gin.Context) {
	questionID, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.surveyService.DeleteQuestion(c.Request.Context(), questionID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusNoContent, gin.H{})
}

// CreateSession records a poll attempt. The user is taken from the caller's
// token, never from the payload; anonymous submissions are allowed.
func (h *SurveyHandler) CreateSession(c *gin.Context) {
	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input"})
		return
	}

	answers := make([]entity.AnswerInput, 0, len(req.Answers))
	for _, a := range req.Answers {
		answers = append(answers, entity.AnswerInput{
			QuestionID: a.QuestionID,
			ChoiceID:   a.ChoiceID,
			Value:      a.Value,
		})
	}

	session, err := h.surveyService.CreateSession(c.Request.Context(), req.PollID, middleware.UserID(c), answers)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, sessionResponse(session))
}

func (h *SurveyHandler) GetSessions(c *gin.Context) {
	filter, ok := sessionFilter(c)
	if !ok {
		return
	}

	sessions, err := h.surveyService.GetSessions(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	items := make([]SessionListItem, 0, len(sessions))
	for _, session := range sessions {
		items = append(items, SessionListItem{
			ID:     session.ID,
			PollID: session.PollID,
			User:   session.UserID,
			Date:   session.Date,
		})
	}

	c.JSON(http.StatusOK, items)
}

func (h *SurveyHandler) GetSessionByID(c *gin.Context) {
	sessionID, ok := parseID(c, "id")
	if !ok {
		return
	}

	session, err := h.surveyService.GetSessionByID(c.Request.Context(), sessionID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, sessionResponse(session))
}

func sessionFilter(c *gin.Context) (entity.SessionFilter, bool) {
	var filter entity.SessionFilter

	if raw, exists := c.GetQuery("poll"); exists {
		pollID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid poll filter"})
			return entity.SessionFilter{}, false
		}
		filter.PollID = &pollID
	}

	if raw, exists := c.GetQuery("user"); exists {
		userID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user filter"})
			return entity.SessionFilter{}, false
		}
		filter.UserID = &userID
	}

	if raw, exists := c.GetQuery("user__isnull"); exists {
		isNull, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user__isnull filter"})
			return entity.SessionFilter{}, false
		}
		filter.UserIsNull = &isNull
	}

	return filter, true
}

func parseID(c *gin.Context, param string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(param), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, repo.ErrPollNotFound),
		errors.Is(err, repo.ErrQuestionNotFound),
		errors.Is(err, repo.ErrChoiceNotFound),
		errors.Is(err, repo.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func choiceTexts(choices []ChoiceInput) []string {
	texts := make([]string, 0, len(choices))
	for _, choice := range choices {
		texts = append(texts, choice.Text)
	}
	return texts
}

func pollResponse(poll entity.Poll) PollResponse {
	questions := make([]QuestionResponse, 0, len(poll.Questions))
	for _, question := range poll.Questions {
		questions = append(questions, questionResponse(question))
	}
	return PollResponse{
		ID:          poll.ID,
		Title:       poll.Title,
		StartDate:   poll.StartDate,
		EndDate:     poll.EndDate,
		Description: poll.Description,
		Questions:   questions,
	}
}

func questionResponse(question entity.Question) QuestionResponse {
	choices := make([]ChoiceResponse, 0, len(question.Choices))
	for _, choice := range question.Choices {
		choices = append(choices, ChoiceResponse{ID: choice.ID, Text: choice.Text})
	}
	return QuestionResponse{
		ID:      question.ID,
		Text:    question.Text,
		Type:    string(question.Type),
		Choices: choices,
	}
}

func sessionResponse(session entity.PollSession) SessionResponse {
	answers := make([]string, 0, len(session.Answers))
	for _, answer := range session.Answers {
		answers = append(answers, answer.String())
	}

	resp := SessionResponse{
		ID:      session.ID,
		User:    session.UserID,
		Date:    session.Date,
		Answers: answers,
	}
	if session.Poll != nil {
		resp.Poll = pollResponse(*session.Poll)
	}
	return resp
}
