package models

import "errors"

// Domain errors for catalog operations. The HTTP layer maps these onto
// status codes and error envelope codes.
var (
	ErrBucketNotFound  = errors.New("bucket not found")
	ErrDuplicateBucket = errors.New("bucket already exists")
	ErrBucketNotEmpty  = errors.New("bucket is not empty")

	ErrObjectNotFound  = errors.New("object not found")
	ErrDuplicateObject = errors.New("object already exists")
)
