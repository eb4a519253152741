/*
Package errs provides custom error types and application-level error code constants.

This file defines the map from error codes to the CustomError struct, used to standardize
HTTP responses and internal error handling.
*/
package errs

import "net/http"

// errorMap stores the detailed CustomError struct corresponding to every application error code.
// A zero Status means HTTP 200 with the business code in the body.
var errorMap = map[int]CustomError{
	// 1xxx: General Request Handling Errors
	ErrInvalidParams:        {Code: ErrInvalidParams, Message: "Invalid request parameters.", Status: http.StatusBadRequest},
	ErrUnsupportedMediaType: {Code: ErrUnsupportedMediaType, Message: "Unsupported request format.", Status: http.StatusUnsupportedMediaType},
	ErrInvalidJSONFormat:    {Code: ErrInvalidJSONFormat, Message: "Unsupported request format.", Status: http.StatusBadRequest},
	ErrExtraContentInBody:   {Code: ErrExtraContentInBody, Message: "Request contains unexpected data.", Status: http.StatusBadRequest},
	ErrRateLimitExceeded:    {Code: ErrRateLimitExceeded, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests},

	// 2xxx: Room, Note Wall and Video Chat Errors
	ErrRoomNotFound:      {Code: ErrRoomNotFound, Message: "That room does not exist.", Status: http.StatusNotFound},
	ErrNotInRoom:         {Code: ErrNotInRoom, Message: "Connect to the space first.", Status: http.StatusConflict},
	ErrNoteTooLong:       {Code: ErrNoteTooLong, Message: "Notes can be at most %d characters."},
	ErrNoteWallNotFound:  {Code: ErrNoteWallNotFound, Message: "This room has no note wall.", Status: http.StatusNotFound},
	ErrVideoChatFull:     {Code: ErrVideoChatFull, Message: "Video chat is full (limit %d)."},
	ErrVideoChatDisabled: {Code: ErrVideoChatDisabled, Message: "This room has no video chat."},

	// 3xxx: User, Session, and Security Errors
	ErrUnauthorized: {Code: ErrUnauthorized, Message: "Please sign in to continue.", Status: http.StatusUnauthorized},
	ErrUserNotFound: {Code: ErrUserNotFound, Message: "Account not found.", Status: http.StatusNotFound},

	// 5xxx: Internal System Errors
	ErrUnknown:          {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
	ErrStoreUnavailable: {Code: ErrStoreUnavailable, Message: "The server is temporarily unavailable. Please try again.", Status: http.StatusServiceUnavailable},
}
