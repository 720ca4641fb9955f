package handler

import (
	"log/slog"

	"github.com/pixelfable/photobook-be/internal/api/storage"
	"github.com/pixelfable/photobook-be/shared/postgresql"
	"github.com/pixelfable/photobook-be/shared/rabbitmq"
)

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger       *slog.Logger
	DBClient     *postgresql.Client
	RabbitClient *rabbitmq.Client
}

// PhotobookHandler handles photobook job HTTP requests
type PhotobookHandler struct {
	logger       *slog.Logger
	storage      *storage.Storage
	rabbitClient *rabbitmq.Client
}

// NewPhotobookHandler creates a new PhotobookHandler instance
func NewPhotobookHandler(deps *Dependencies) *PhotobookHandler {
	return &PhotobookHandler{
		logger:       deps.Logger,
		storage:      storage.NewStorage(deps.DBClient),
		rabbitClient: deps.RabbitClient,
	}
}
