package util

import "errors"

var (
	ErrUnauthenticated       = errors.New("user not authenticated")
	ErrPermissionDenied      = errors.New("permission denied")
	ErrUserNotFound          = errors.New("user not found")
	ErrEmailRegistered       = errors.New("email already registered")
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrTokenRevoked          = errors.New("token revoked")
	ErrVideoNotFound         = errors.New("video not found")
	ErrCourseNotFound        = errors.New("course not found")
	ErrNoVideosSelected      = errors.New("a course needs at least one selected video")
	ErrDuplicateVideo        = errors.New("a video can only appear once in a course")
	ErrVideoNotInCourse      = errors.New("video is not part of the course")
	ErrSectionNotPlayable    = errors.New("section breaks cannot be played or completed")
	ErrInvalidMove           = errors.New("lesson move out of range")
	ErrInvalidPlaybackEvent  = errors.New("invalid playback event")
	ErrInvalidStatusFilter   = errors.New("invalid status filter")
	ErrInvalidMediaReference = errors.New("invalid media reference")
	ErrMediaNotOnHost        = errors.New("media not found on video host")
	ErrTitleRequired         = errors.New("title is required")
	ErrInvalidCategory       = errors.New("category must be one of programming, design, business, marketing")
	ErrInvalidThumbnail      = errors.New("thumbnail must be an image no larger than 5MB")
)
