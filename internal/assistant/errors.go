package assistant

import (
	"errors"

	"lexdraft/internal/tone"
)

var (
	// ErrCanceledByMiddleware means a middleware stopped the request without
	// supplying a reply.
	ErrCanceledByMiddleware = errors.New("request canceled by middleware")

	// ErrUnknownTone is re-exported so callers need not import tone.
	ErrUnknownTone = tone.ErrUnknownTone
)
