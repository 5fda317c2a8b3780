package http

import (
	"errors"
	"net/http"

	"livepoll/internal/domain"
)

// sendDomainError maps domain errors onto stable API error codes.
func (s *Server) sendDomainError(w http.ResponseWriter, err error) {
	status, code, message := mapDomainError(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
	}
	s.sendError(w, status, code, message)
}

func mapDomainError(err error) (int, string, string) {
	switch {
	case errors.Is(err, domain.ErrEmptyQuestion):
		return http.StatusBadRequest, "EMPTY_QUESTION", "question must not be empty"
	case errors.Is(err, domain.ErrQuestionTooLong):
		return http.StatusBadRequest, "QUESTION_TOO_LONG", "question exceeds maximum length"
	case errors.Is(err, domain.ErrTooFewOptions):
		return http.StatusBadRequest, "TOO_FEW_OPTIONS", "poll needs at least two options"
	case errors.Is(err, domain.ErrTooManyOptions):
		return http.StatusBadRequest, "TOO_MANY_OPTIONS", "poll exceeds maximum option count"
	case errors.Is(err, domain.ErrEmptyOption):
		return http.StatusBadRequest, "EMPTY_OPTION", "option text must not be empty"
	case errors.Is(err, domain.ErrOptionTooLong):
		return http.StatusBadRequest, "OPTION_TOO_LONG", "option text exceeds maximum length"
	case errors.Is(err, domain.ErrDuplicateOptions):
		return http.StatusBadRequest, "DUPLICATE_OPTIONS", "options must be distinct"
	case errors.Is(err, domain.ErrPollNotFound):
		return http.StatusNotFound, "NOT_FOUND", "poll not found"
	case errors.Is(err, domain.ErrInvalidOption):
		return http.StatusBadRequest, "INVALID_OPTION", "option index out of range"
	case errors.Is(err, domain.ErrAlreadyVoted):
		return http.StatusConflict, "ALREADY_VOTED", "identity already voted in this poll"
	default:
		return http.StatusInternalServerError, "SERVER_ERROR", "internal server error"
	}
}
