package app

import (
	"context"
	"log/slog"
	"time"

	httpapp "github.com/egorlet/survey-service/internal/app/http"
	"github.com/egorlet/survey-service/internal/handlers"
	"github.com/egorlet/survey-service/internal/middleware"
	"github.com/egorlet/survey-service/internal/repo/postgres"
	"github.com/egorlet/survey-service/internal/services"
)

type App struct {
	HTTPServer *httpapp.App
	Survey     *services.Survey
}

func NewApp(log *slog.Logger, httpPort int, storagePath string, authSecret string) *App {
	storage, err := postgres.New(storagePath)
	if err != nil {
		panic(err)
	}

	authMiddleware := middleware.NewAuthMiddleware(authSecret)

	surveyService := services.NewSurvey(log, storage, storage, storage, time.Now)
	surveyHandler := handlers.NewSurveyHandler(surveyService)

	httpApp := httpapp.NewApp(log, httpPort, surveyHandler, authMiddleware)

	return &App{
		HTTPServer: httpApp,
		Survey:     surveyService,
	}
}

func (a *App) Stop(ctx context.Context) error {
	return a.HTTPServer.Stop(ctx)
}
