package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/recapcrew/recap-engine/internal/adapter/dto/recap"
	"github.com/recapcrew/recap-engine/internal/usecase/review"
)

// Review handles the review lock endpoints
type Review struct {
	locks  *review.LockManager
	logger *zap.Logger
}

// NewReview creates a new review handler
func NewReview(locks *review.LockManager, logger *zap.Logger) *Review {
	return &Review{locks: locks, logger: logger}
}

// AcquireLock claims or refreshes the review lock for the caller
// POST /v1/meetings/:id/lock
func (h *Review) AcquireLock(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	meetingID, err := pathUUID(c, "id")
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	lock, err := h.locks.Acquire(c.Request().Context(), meetingID, userID)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	return HandleSuccess(h.logger, c, http.StatusOK, recap.NewLockResponse(lock))
}

// ReleaseLock releases the caller's lock. Releasing a lock you do not hold
// is a no-op.
// DELETE /v1/meetings/:id/lock
func (h *Review) ReleaseLock(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	meetingID, err := pathUUID(c, "id")
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	if err := h.locks.Release(c.Request().Context(), meetingID, userID); err != nil {
		return HandleError(h.logger, c, err)
	}

	return HandleSuccess(h.logger, c, http.StatusOK, nil)
}

// ForceUnlock evicts whoever holds the lock. Admin only.
// POST /v1/meetings/:id/force-unlock
func (h *Review) ForceUnlock(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	meetingID, err := pathUUID(c, "id")
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	if err := h.locks.ForceUnlock(c.Request().Context(), meetingID, userID); err != nil {
		return HandleError(h.logger, c, err)
	}

	return HandleSuccess(h.logger, c, http.StatusOK, nil)
}

// Holder reports the current lock holder, if any
// GET /v1/meetings/:id/lock
func (h *Review) Holder(c echo.Context) error {
	meetingID, err := pathUUID(c, "id")
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	lock, err := h.locks.Holder(c.Request().Context(), meetingID)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	if lock == nil {
		return HandleSuccess(h.logger, c, http.StatusOK, nil)
	}

	return HandleSuccess(h.logger, c, http.StatusOK, recap.NewLockResponse(lock))
}
