package quotes

import "errors"

var (
	ErrTooManyFiles = errors.New("quotes: too many files")
	ErrFileTooLarge = errors.New("quotes: file too large")
	ErrFileType     = errors.New("quotes: file type not allowed")
	ErrFileContent  = errors.New("quotes: file content does not match type")
)

// User facing messages. Downstream error text never reaches the client.
const (
	MsgRateLimited  = "Too many requests. Please try again shortly."
	MsgSubmitFailed = "Failed to submit quote request. Please try again."
	MsgBadRequest   = "We could not read your submission. Please try again."
	MsgTooLarge     = "Your upload is too large. Please attach fewer or smaller photos."
)
