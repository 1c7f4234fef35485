package domain

import "errors"

var (
	ErrNoAvatar               = errors.New("no avatar found")
	ErrAvatarTypeNotSupported = errors.New("only jpg, jpeg and png files are allowed")
	ErrAvatarTypeMismatch     = errors.New("image ext does not match content type")
	ErrAvatarTooLarge         = errors.New("image too large")
)
