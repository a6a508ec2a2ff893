package app

import "errors"

var (
	ErrEmailExists         = errors.New("email already registered")
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrUserNotFound        = errors.New("user not found")

	ErrLectureNotFound = errors.New("lecture not found")
	ErrLectureNotReady = errors.New("lecture is still processing")
	ErrInvalidVideoURL = errors.New("video url must point to youtube")
	ErrForbidden       = errors.New("not the owner of this resource")

	ErrSessionNotFound = errors.New("chat session not found")
	ErrInvalidTone     = errors.New("unknown chat tone")

	ErrPlanNotFound   = errors.New("study plan not found")
	ErrRecordNotFound = errors.New("study record not found")
)
