package routes

import (
	"log/slog"
	"net/http"
	"time"

	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/ezchat/ezchat/pkg/auth"
	"github.com/ezchat/ezchat/pkg/handlers"
	"github.com/ezchat/ezchat/pkg/hub"
	"github.com/ezchat/ezchat/pkg/store"
	"github.com/ezchat/ezchat/pkg/tasks"
)

func NewRouter(h *hub.Hub, s *store.Store, otp *auth.OTPManager, taskMgr *tasks.Manager, sessionTTL time.Duration, logger *slog.Logger) *http.ServeMux {
	mux := http.NewServeMux()

	// Create handlers
	authHandler := handlers.NewAuthHandler(s, otp, sessionTTL, logger)
	userHandler := handlers.NewUserHandler(s, logger)
	chatHandler := handlers.NewChatHandler(s, h, logger)
	messageHandler := handlers.NewMessageHandler(s, h, logger)
	taskHandler := handlers.NewTaskHandler(taskMgr, logger)

	// Swagger UI
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	// Authentication endpoints (no auth required)
	mux.HandleFunc("POST /api/auth/otp", authHandler.RequestOTP)
	mux.HandleFunc("POST /api/auth/verify", authHandler.VerifyOTP)

	// WebSocket endpoint
	mux.HandleFunc("/ws", handlers.HandleWS(h))

	// API endpoints with authentication middleware
	apiRouter := http.NewServeMux()

	// Auth endpoints (require auth)
	apiRouter.HandleFunc("POST /api/auth/logout", authHandler.Logout)
	apiRouter.HandleFunc("POST /api/auth/refresh", authHandler.RefreshToken)
	apiRouter.HandleFunc("GET /api/auth/session", authHandler.Verify)

	// User endpoints
	apiRouter.HandleFunc("GET /api/users/me", userHandler.GetCurrentUser)
	apiRouter.HandleFunc("PUT /api/users/me", userHandler.UpdateUser)
	apiRouter.HandleFunc("PATCH /api/users/me", userHandler.UpdateUser)
	apiRouter.HandleFunc("GET /api/users/search", userHandler.SearchUsers)
	apiRouter.HandleFunc("GET /api/users/{id}", userHandler.GetUser)

	// Chat endpoints
	apiRouter.HandleFunc("GET /api/chats", chatHandler.GetChats)
	apiRouter.HandleFunc("POST /api/chats", chatHandler.CreateChat)
	apiRouter.HandleFunc("GET /api/chats/{id}", chatHandler.GetChat)
	apiRouter.HandleFunc("DELETE /api/chats/{id}", chatHandler.DeleteChat)
	apiRouter.HandleFunc("GET /api/chats/{id}/members", chatHandler.GetChatMembers)
	apiRouter.HandleFunc("POST /api/chats/{id}/read", chatHandler.MarkChatAsRead)
	apiRouter.HandleFunc("GET /api/chats/{id}/messages", messageHandler.GetMessages)

	// Message endpoints
	apiRouter.HandleFunc("POST /api/messages", messageHandler.SendMessage)
	apiRouter.HandleFunc("POST /api/messages/status", messageHandler.UpdateMessageStatus)

	// Task list endpoints
	apiRouter.HandleFunc("GET /api/tasks", taskHandler.GetTasks)
	apiRouter.HandleFunc("POST /api/tasks", taskHandler.AddTask)
	apiRouter.HandleFunc("PUT /api/tasks", taskHandler.EditTask)
	apiRouter.HandleFunc("DELETE /api/tasks", taskHandler.DeleteTask)

	// Apply authentication middleware to API routes
	mux.Handle("/api/", auth.AuthMiddleware(apiRouter))

	return mux
}
