package file

import "errors"

var (
	ErrFileNotFound     = errors.New("file upload not found")
	ErrInvalidRequest   = errors.New("regionId and bucketCode are required")
	ErrBlobNotUploaded  = errors.New("blob has not been uploaded yet")
	ErrAlreadyFinalized = errors.New("file upload is already finalized")
	ErrBlobTooLarge     = errors.New("blob exceeds the maximum allowed size")
)
