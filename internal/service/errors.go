package service

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrValidation          = errors.New("validation error")
	ErrProvider            = errors.New("provider error")
	ErrAuthExpired         = errors.New("twitter authorization expired")
	ErrStateMismatch       = errors.New("oauth state mismatch")
	ErrPermissionDenied    = errors.New("permission denied by twitter")
	ErrRateLimited         = errors.New("rate limited by twitter")
	ErrStorage             = errors.New("storage error")
	ErrNoAccountConnected  = errors.New("no twitter account connected")
	ErrRefreshFailed       = errors.New("token refresh failed")
	ErrTranscriptionFailed = errors.New("transcription failed")
	ErrDraftingFailed      = errors.New("drafting failed")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrPublishInProgress   = errors.New("draft is already being published")

	// ErrRecordingFailed marks a pipeline error after the recording was
	// moved to failed. Running the stage again cannot help.
	ErrRecordingFailed = errors.New("recording failed")
)

// ThreadError is returned by PostThread for every failure. Posted holds the
// ids of the tweets that went out before the failure, in order.
type ThreadError struct {
	Posted  []string
	Index   int
	Retries int
	Err     error
}

func (e *ThreadError) Error() string {
	return fmt.Sprintf("thread failed at tweet %d after %d posted: %v", e.Index, len(e.Posted), e.Err)
}

func (e *ThreadError) Unwrap() error {
	return e.Err
}

func validationErrorf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// StatusOf maps an error to the HTTP status the API answers with.
func StatusOf(err error) int {
	switch {
	case err == nil:
		return fiber.StatusOK
	case errors.Is(err, ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, ErrValidation):
		return fiber.StatusBadRequest
	case errors.Is(err, ErrStateMismatch):
		return fiber.StatusBadRequest
	case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrPublishInProgress):
		return fiber.StatusConflict
	case errors.Is(err, ErrAuthExpired), errors.Is(err, ErrRefreshFailed), errors.Is(err, ErrNoAccountConnected):
		return fiber.StatusUnauthorized
	case errors.Is(err, ErrPermissionDenied):
		return fiber.StatusForbidden
	case errors.Is(err, ErrRateLimited):
		return fiber.StatusTooManyRequests
	case errors.Is(err, ErrProvider), errors.Is(err, ErrTranscriptionFailed),
		errors.Is(err, ErrDraftingFailed), errors.Is(err, ErrStorage):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

// NeedsReconnect reports whether the user has to authorize Twitter again
// before retrying.
func NeedsReconnect(err error) bool {
	return errors.Is(err, ErrAuthExpired) ||
		errors.Is(err, ErrRefreshFailed) ||
		errors.Is(err, ErrNoAccountConnected)
}
