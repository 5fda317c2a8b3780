package domain

import "errors"

// Domain errors
var (
	ErrPollNotFound     = errors.New("poll not found")
	ErrInvalidOption    = errors.New("option index out of range")
	ErrAlreadyVoted     = errors.New("identity already voted in this poll")
	ErrEmptyQuestion    = errors.New("question cannot be empty")
	ErrQuestionTooLong  = errors.New("question exceeds maximum length")
	ErrTooFewOptions    = errors.New("poll needs at least two options")
	ErrTooManyOptions   = errors.New("poll exceeds maximum option count")
	ErrEmptyOption      = errors.New("option text cannot be empty")
	ErrOptionTooLong    = errors.New("option text exceeds maximum length")
	ErrDuplicateOptions = errors.New("options must be distinct")
)
