package services

import "errors"

var (
	ErrEmptyTitle           = errors.New("conversation title must not be blank")
	ErrNoActiveConversation = errors.New("no conversation selected")
	ErrNotPrivileged        = errors.New("administrator privileges required")
	ErrNoEffectiveValue     = errors.New("no override and no global default")
	ErrUnknownOption        = errors.New("unknown option")
	ErrIncompleteAssessment = errors.New("every question must be answered")
	ErrInvalidUsername      = errors.New("username must be between 3 and 40 characters")
	ErrWeakPassword         = errors.New("password must be at least 12 characters and include uppercase, lowercase, number, and symbol")
	ErrArchiveDisabled      = errors.New("transcript archive is not configured")
)
