package txsession

import "errors"

var (
	ErrConfiguration  = errors.New("session factory is required")
	ErrNotInitialized = errors.New("session manager not initialized")
	ErrNoScope        = errors.New("no session scope in context")
	ErrSessionClosed  = errors.New("session is closed")
)
