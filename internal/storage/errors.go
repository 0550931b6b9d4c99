package storage

import "errors"

var (
	// ErrObjectExists is returned when a put would overwrite an existing object.
	ErrObjectExists = errors.New("storage: object already exists")
	// ErrObjectNotFound is returned when an object is missing.
	ErrObjectNotFound = errors.New("storage: object not found")
	// ErrInvalidPath rejects empty, absolute or traversing object paths.
	ErrInvalidPath = errors.New("storage: invalid object path")
	// ErrInvalidToken is returned for malformed or tampered download tokens.
	ErrInvalidToken = errors.New("storage: invalid download token")
	// ErrTokenExpired is returned once a download token is past its expiry.
	ErrTokenExpired = errors.New("storage: download token expired")
	// ErrPublicBucket means the upload bucket allows unauthenticated reads.
	ErrPublicBucket = errors.New("storage: bucket is not private")
)
