package repository

import "errors"

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrLinkNotFound  = errors.New("link not found")
	ErrIconNotFound  = errors.New("social icon not found")
	ErrSlugTaken     = errors.New("slug already taken")
	ErrPlatformTaken = errors.New("platform already has an icon")
	ErrInvalidInput  = errors.New("invalid input")
)
