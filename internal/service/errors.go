package service

import (
	"errors"
	"fmt"

	"cstats-bot/internal/api"
	"cstats-bot/internal/retry"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrHTTP           = errors.New("http error")
	ErrData           = errors.New("unexpected response data")
	ErrPrecheck       = errors.New("invalid command input")
	ErrPlayerNotFound = errors.New("player not in match")
)

// remoteErr classifies a platform client error and marks it retryable.
// Every remote failure is retried: bad status, transport errors and bodies
// that do not decode alike.
func remoteErr(op string, err error) error {
	if errors.Is(err, api.ErrDecode) {
		return retry.Retryable(fmt.Errorf("%s: %w: %w", op, ErrData, err))
	}
	var statusErr *api.StatusError
	if errors.As(err, &statusErr) {
		return retry.Retryable(fmt.Errorf("%s: %w: HTTP %d: %w", op, ErrHTTP, statusErr.Code, err))
	}
	return retry.Retryable(fmt.Errorf("%s: %w: %w", op, ErrHTTP, err))
}
