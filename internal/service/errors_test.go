package service

import (
	"errors"
	"fmt"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
)

func TestStatusOf(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("draft 3: %w", ErrNotFound), fiber.StatusNotFound},
		{validationErrorf("bad size"), fiber.StatusBadRequest},
		{ErrInvalidTransition, fiber.StatusConflict},
		{fmt.Errorf("draft 4: %w", ErrPublishInProgress), fiber.StatusConflict},
		{&ThreadError{Err: ErrRateLimited}, fiber.StatusTooManyRequests},
		{&ThreadError{Err: ErrAuthExpired}, fiber.StatusUnauthorized},
		{fmt.Errorf("%w: %w", ErrTranscriptionFailed, ErrProvider), fiber.StatusBadGateway},
		{errors.New("boom"), fiber.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusOf(tt.err), tt.err.Error())
	}
}

func TestNeedsReconnect(t *testing.T) {
	assert.True(t, NeedsReconnect(&ThreadError{Err: ErrAuthExpired}))
	assert.True(t, NeedsReconnect(fmt.Errorf("publish: %w", ErrNoAccountConnected)))
	assert.True(t, NeedsReconnect(ErrRefreshFailed))
	assert.False(t, NeedsReconnect(ErrRateLimited))
	assert.False(t, NeedsReconnect(nil))
}

func TestThreadErrorKeepsPrefix(t *testing.T) {
	err := error(&ThreadError{Posted: []string{"1", "2"}, Index: 2, Err: ErrPermissionDenied})

	var te *ThreadError
	assert.True(t, errors.As(err, &te))
	assert.Equal(t, []string{"1", "2"}, te.Posted)
	assert.ErrorIs(t, err, ErrPermissionDenied)
}
