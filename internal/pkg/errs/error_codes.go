/*
Package errs provides custom error types and application-level error code constants.

These error codes are used to clearly identify specific business or system errors
both internally within the server and in communication with clients.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrUnsupportedMediaType indicates that the request header Content-Type is not supported.
	ErrUnsupportedMediaType = 1002

	// ErrInvalidJSONFormat indicates that the request body JSON format is incorrect (e.g., syntax error).
	ErrInvalidJSONFormat = 1003

	// ErrExtraContentInBody indicates that the request body contained extra content after valid JSON data.
	ErrExtraContentInBody = 1004

	// ErrRateLimitExceeded indicates that the request rate has exceeded the set limit.
	ErrRateLimitExceeded = 1007
)

// 2xxx: Room, Note Wall and Video Chat Errors
const (
	// ErrRoomNotFound indicates that the requested room is not part of the room catalog.
	ErrRoomNotFound = 2103

	// ErrNotInRoom indicates that a room-scoped action was requested before connecting.
	ErrNotInRoom = 2104

	// ErrNoteTooLong indicates that a note wall entry exceeded the maximum length.
	ErrNoteTooLong = 2201

	// ErrNoteWallNotFound indicates that the room has no note wall.
	ErrNoteWallNotFound = 2202

	// ErrVideoChatFull indicates that the room's video chat has reached its participant limit.
	ErrVideoChatFull = 2301

	// ErrVideoChatDisabled indicates that the room does not offer video chat.
	ErrVideoChatDisabled = 2302
)

// 3xxx: User, Session, and Security Errors
const (
	// ErrUnauthorized indicates that the request carries no valid identity.
	ErrUnauthorized = 3101

	// ErrUserNotFound indicates that no profile exists for the authenticated identity.
	ErrUserNotFound = 3102
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified, general server internal error.
	ErrUnknown = 5000

	// ErrStoreUnavailable indicates that the presence or profile store could not be reached.
	// Nothing was applied; the client may retry.
	ErrStoreUnavailable = 5001
)
