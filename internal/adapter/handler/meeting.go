package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	apperrors "github.com/recapcrew/recap-engine/errors"
	"github.com/recapcrew/recap-engine/internal/adapter/dto/recap"
	"github.com/recapcrew/recap-engine/internal/domain/entities"
	"github.com/recapcrew/recap-engine/internal/usecase/authz"
	"github.com/recapcrew/recap-engine/internal/usecase/meeting"
)

// TranscriptStore persists uploaded transcript text.
type TranscriptStore interface {
	UploadText(ctx context.Context, objectKey string, content string) error
}

// Meeting handles meeting lifecycle endpoints
type Meeting struct {
	service     *meeting.Service
	transcripts TranscriptStore
	authorizer  authz.Authorizer
	logger      *zap.Logger
}

// NewMeeting creates a new meeting handler
func NewMeeting(service *meeting.Service, transcripts TranscriptStore, authorizer authz.Authorizer, logger *zap.Logger) *Meeting {
	return &Meeting{
		service:     service,
		transcripts: transcripts,
		authorizer:  authorizer,
		logger:      logger,
	}
}

// Create registers an uploaded transcript as a Draft meeting
// POST /v1/meetings
func (h *Meeting) Create(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	var req recap.CreateMeetingRequest
	if err := c.Bind(&req); err != nil {
		return HandleError(h.logger, c, apperrors.ErrInvalidArgument("invalid request body"))
	}
	if err := c.Validate(&req); err != nil {
		return HandleError(h.logger, c, apperrors.ErrInvalidArgument(err.Error()))
	}

	if err := h.requireMembership(c, userID, req.ProjectID); err != nil {
		return HandleError(h.logger, c, err)
	}

	objectKey := fmt.Sprintf("transcripts/%s/%s.txt", req.ProjectID, uuid.New())
	if err := h.transcripts.UploadText(c.Request().Context(), objectKey, req.Transcript); err != nil {
		return HandleError(h.logger, c, err)
	}

	m, err := h.service.Create(c.Request().Context(), req.ProjectID, req.Title, entities.MeetingCategory(req.Category), objectKey)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	return HandleSuccess(h.logger, c, http.StatusCreated, recap.NewMeetingResponse(m))
}

// Get returns one meeting
// GET /v1/meetings/:id
func (h *Meeting) Get(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	meetingID, err := pathUUID(c, "id")
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	m, err := h.service.Get(c.Request().Context(), meetingID)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	if err := h.requireMembership(c, userID, m.ProjectID); err != nil {
		return HandleError(h.logger, c, err)
	}

	return HandleSuccess(h.logger, c, http.StatusOK, recap.NewMeetingResponse(m))
}

// ListUpdates returns the meeting's ordered update log
// GET /v1/meetings/:id/updates
func (h *Meeting) ListUpdates(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	meetingID, err := pathUUID(c, "id")
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	m, err := h.service.Get(c.Request().Context(), meetingID)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	if err := h.requireMembership(c, userID, m.ProjectID); err != nil {
		return HandleError(h.logger, c, err)
	}

	updates, err := h.service.ListUpdates(c.Request().Context(), meetingID)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	return HandleSuccess(h.logger, c, http.StatusOK, recap.NewMeetingUpdateResponses(updates))
}

// SubmitExtraction runs a model payload through validation and reconciliation
// POST /v1/meetings/:id/extraction
func (h *Meeting) SubmitExtraction(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	meetingID, err := pathUUID(c, "id")
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	var req recap.SubmitExtractionRequest
	if err := c.Bind(&req); err != nil {
		return HandleError(h.logger, c, apperrors.ErrInvalidArgument("invalid request body"))
	}
	if len(req.Payload) == 0 {
		return HandleError(h.logger, c, apperrors.ErrInvalidArgument("payload is required"))
	}

	m, err := h.service.Get(c.Request().Context(), meetingID)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	if err := h.requireMembership(c, userID, m.ProjectID); err != nil {
		return HandleError(h.logger, c, err)
	}

	result, err := h.service.SubmitExtraction(c.Request().Context(), meetingID, req.Payload, &userID)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	return HandleSuccess(h.logger, c, http.StatusOK, recap.NewReconciliationResponse(result))
}

// Publish completes review
// POST /v1/meetings/:id/publish
func (h *Meeting) Publish(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	meetingID, err := pathUUID(c, "id")
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	if err := h.service.Publish(c.Request().Context(), meetingID, userID); err != nil {
		return HandleError(h.logger, c, err)
	}

	return HandleSuccess(h.logger, c, http.StatusOK, map[string]string{"status": string(entities.MeetingStatusPublished)})
}

// Reprocess explicitly discards pending review edits and re-runs extraction
// POST /v1/meetings/:id/reprocess
func (h *Meeting) Reprocess(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	meetingID, err := pathUUID(c, "id")
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	if err := h.service.Reprocess(c.Request().Context(), meetingID, userID); err != nil {
		return HandleError(h.logger, c, err)
	}

	return HandleSuccess(h.logger, c, http.StatusOK, map[string]string{"status": string(entities.MeetingStatusProcessing)})
}

// Delete soft-deletes a meeting
// DELETE /v1/meetings/:id
func (h *Meeting) Delete(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	meetingID, err := pathUUID(c, "id")
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	m, err := h.service.Get(c.Request().Context(), meetingID)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	if err := h.requireMembership(c, userID, m.ProjectID); err != nil {
		return HandleError(h.logger, c, err)
	}

	if err := h.service.SoftDelete(c.Request().Context(), meetingID, userID); err != nil {
		return HandleError(h.logger, c, err)
	}

	return HandleSuccess(h.logger, c, http.StatusOK, map[string]string{"status": string(entities.MeetingStatusDeleted)})
}

// AddReviewNote appends a reviewer note
// POST /v1/meetings/:id/notes
func (h *Meeting) AddReviewNote(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	meetingID, err := pathUUID(c, "id")
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	var req recap.ReviewNoteRequest
	if err := c.Bind(&req); err != nil {
		return HandleError(h.logger, c, apperrors.ErrInvalidArgument("invalid request body"))
	}
	if err := c.Validate(&req); err != nil {
		return HandleError(h.logger, c, apperrors.ErrInvalidArgument(err.Error()))
	}

	if err := h.service.AddReviewNote(c.Request().Context(), meetingID, userID, req.Note); err != nil {
		return HandleError(h.logger, c, err)
	}

	return HandleSuccess(h.logger, c, http.StatusCreated, nil)
}

func (h *Meeting) requireMembership(c echo.Context, userID, projectID uuid.UUID) error {
	member, err := h.authorizer.IsProjectMember(c.Request().Context(), userID, projectID)
	if err != nil {
		return err
	}
	if !member {
		return apperrors.ErrPermissionDenied("not a member of this project")
	}
	return nil
}
