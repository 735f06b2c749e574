package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	apperrors "github.com/recapcrew/recap-engine/errors"
	"github.com/recapcrew/recap-engine/internal/adapter/dto/recap"
	"github.com/recapcrew/recap-engine/internal/usecase/ingest"
)

// Ingest handles batch ingestion endpoints
type Ingest struct {
	coordinator *ingest.Coordinator
	logger      *zap.Logger
}

// NewIngest creates a new ingest handler
func NewIngest(coordinator *ingest.Coordinator, logger *zap.Logger) *Ingest {
	return &Ingest{coordinator: coordinator, logger: logger}
}

// Batch runs a batch of pending source items through the pipeline
// POST /v1/ingest/batch
func (h *Ingest) Batch(c echo.Context) error {
	var req recap.IngestBatchRequest
	if err := c.Bind(&req); err != nil {
		return HandleError(h.logger, c, apperrors.ErrInvalidArgument("invalid request body"))
	}
	if err := c.Validate(&req); err != nil {
		return HandleError(h.logger, c, apperrors.ErrInvalidArgument(err.Error()))
	}

	items := make([]ingest.SourceItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, ingest.SourceItem{
			ID:        uuid.New(),
			MeetingID: it.MeetingID,
			ObjectKey: it.ObjectKey,
		})
	}

	summary := h.coordinator.Run(c.Request().Context(), items)

	return HandleSuccess(h.logger, c, http.StatusOK, summary)
}
