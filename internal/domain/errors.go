package domain

import "errors"

var (
	// ErrDuplicateEventID rejects an insert whose event ID is already stored.
	ErrDuplicateEventID = errors.New("duplicate event id")

	// ErrMalformedFeedMessage marks a single inbound feed message that could
	// not be decoded or normalized. Only that message is dropped.
	ErrMalformedFeedMessage = errors.New("malformed feed message")

	// ErrConnectionLost marks the end of a live stream connection. It always
	// leads to a reconnect attempt, never to shutdown.
	ErrConnectionLost = errors.New("connection lost")

	// ErrConfigurationInvalid marks unusable peer settings such as an
	// unparseable API URL. It is reported to the user as a notice.
	ErrConfigurationInvalid = errors.New("configuration invalid")

	// ErrInvalidFilter rejects an unknown continent, severity or method name.
	ErrInvalidFilter = errors.New("invalid filter")
)
