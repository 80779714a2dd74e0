package notifications

import "errors"

var (
	// ErrNotificationNotFound is returned when a notification is not found.
	ErrNotificationNotFound = errors.New("notification not found")

	// ErrMalformedPayload is returned when a persistence response is not valid JSON.
	ErrMalformedPayload = errors.New("notifications: malformed payload")

	// ErrUnknownEnvelope is returned when a response matches none of the accepted shapes.
	ErrUnknownEnvelope = errors.New("notifications: unrecognized response envelope")

	// ErrMissingID is returned when a confirmed entity carries no identifier.
	ErrMissingID = errors.New("notifications: confirmed entity has no id")

	// ErrStoreClosed is returned by futures of operations issued after Close.
	ErrStoreClosed = errors.New("notifications: store is closed")

	ErrMissingUserID = errors.New("notifications: user ID is required")

	// ErrDuplicateID is returned by Storage.Create when the id is already taken.
	ErrDuplicateID = errors.New("notifications: duplicate notification id")
)
