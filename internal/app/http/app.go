package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/egorlet/survey-service/internal/handlers"
	"github.com/egorlet/survey-service/internal/middleware"
	"github.com/egorlet/survey-service/internal/routes"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type App struct {
	log    *slog.Logger
	engine *gin.Engine
	server *http.Server
	port   int
}

// NewApp initialises the gin engine and wires the route groups.
func NewApp(
	log *slog.Logger,
	port int,
	handler *handlers.SurveyHandler,
	authMiddleware *middleware.AuthMiddleware,
) *App {
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:5173", "http://localhost:4200"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	public := r.Group("/")
	routes.RegisterPublicRoutes(public, handler, authMiddleware.Identify())

	admin := r.Group("/", authMiddleware.RequireAdmin())
	routes.RegisterAdminRoutes(admin, handler)

	// Healthcheck
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	addr := fmt.Sprintf(":%d", port)
	httpServer := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	return &App{
		log:    log,
		engine: r,
		server: httpServer,
		port:   port,
	}
}

// Run starts the HTTP server.
func (a *App) Run() error {
	a.log.Info("HTTP server is running", slog.String("addr", a.server.Addr))
	return a.server.ListenAndServe()
}

// Stop shuts the server down gracefully.
func (a *App) Stop(ctx context.Context) error {
	a.log.Info("HTTP server is stopping...")
	return a.server.Shutdown(ctx)
}

func (a *App) Engine() *gin.Engine {
	return a.engine
}
