package http

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"

	"knowledgebot/internal/bootstrap"
	"knowledgebot/internal/transport/http/handler"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	healthHandler := handler.NewHealthHandler(app.Config.App.Name, app.Config.App.Env, app.StartedAt, healthChecks(app))
	knowledgeHandler := handler.NewKnowledgeHandler(
		app.Ingest,
		app.RAG,
		app.Index,
		int64(app.Config.Knowledge.MaxUploadMB)<<20,
		app.Logger.With("component", "http"),
	)
	chatbotHandler := handler.NewChatbotHandler(app.Chat, app.Logger.With("component", "http"))

	router.GET("/healthz", healthHandler.Check)
	registerRoutes(router.Group("/api/v1"), knowledgeHandler, chatbotHandler)
	return router
}

func registerRoutes(v1 *gin.RouterGroup, knowledgeHandler *handler.KnowledgeHandler, chatbotHandler *handler.ChatbotHandler) {
	kb := v1.Group("/knowledge")
	kb.POST("/documents", knowledgeHandler.CreateDocument)
	kb.POST("/documents/pdf", knowledgeHandler.UploadPDF)
	kb.GET("/documents", knowledgeHandler.ListDocuments)
	kb.GET("/documents/:id", knowledgeHandler.GetDocument)
	kb.DELETE("/documents/:id", knowledgeHandler.DeleteDocument)
	kb.POST("/search", knowledgeHandler.Search)
	kb.GET("/stats", knowledgeHandler.Stats)

	v1.POST("/chatbot", chatbotHandler.Reply)
}

func healthChecks(app *bootstrap.App) map[string]handler.HealthCheck {
	checks := map[string]handler.HealthCheck{
		"vector_index": func(ctx context.Context) error {
			_, err := app.Index.Stats(ctx)
			return err
		},
	}
	if app.MySQL != nil {
		checks["mysql"] = func(ctx context.Context) error {
			sqlDB, err := app.MySQL.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}
	}
	if app.SQLite != nil {
		checks["sqlite"] = app.SQLite.PingContext
	}
	if app.Redis != nil {
		checks["redis"] = func(ctx context.Context) error {
			return app.Redis.Ping(ctx).Err()
		}
	}
	if app.MQConn != nil {
		checks["rabbitmq"] = func(context.Context) error {
			if app.MQConn.IsClosed() {
				return errors.New("connection closed")
			}
			return nil
		}
	}
	return checks
}
