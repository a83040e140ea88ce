package database

import (
	"context"

	"github.com/dialaschedule/dialaschedule/internal/database/models"
)

// CallStatusRepository manages the call status log.
type CallStatusRepository interface {
	Create(ctx context.Context, ev *models.CallStatusEvent) error
	CountByStatus(ctx context.Context) (map[string]int64, error)
	ListRecent(ctx context.Context, limit int) ([]models.CallStatusEvent, error)
}
