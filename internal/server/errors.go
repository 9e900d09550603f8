package server

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/park285/opening-quiz/internal/board"
	"github.com/park285/opening-quiz/internal/pgn"
	"github.com/park285/opening-quiz/internal/quiz"
	"github.com/park285/opening-quiz/internal/savedquiz"
	"github.com/park285/opening-quiz/internal/service/trainer"
	"github.com/park285/opening-quiz/pkg/quizdto"
)

var validate = validator.New()

// bind parses a JSON body into dst and validates its struct tags.
func bind(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return &requestError{msg: "invalid request body", err: err}
	}
	if err := validate.Struct(dst); err != nil {
		return &requestError{msg: "validation failed", err: err}
	}
	return nil
}

type requestError struct {
	msg string
	err error
}

func (e *requestError) Error() string { return e.msg + ": " + e.err.Error() }
func (e *requestError) Unwrap() error { return e.err }

func (e *requestError) details() string {
	var verrs validator.ValidationErrors
	if !errors.As(e.err, &verrs) {
		return e.err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			parts = append(parts, fmt.Sprintf("%s is required", fe.Field()))
		case "min":
			parts = append(parts, fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param()))
		case "max":
			parts = append(parts, fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param()))
		default:
			parts = append(parts, fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag()))
		}
	}
	return strings.Join(parts, "; ")
}

// errorHandler maps domain errors onto status codes and the JSON error body.
func (h *Handler) errorHandler(c *fiber.Ctx, err error) error {
	status, body := h.classify(err)
	if status >= fiber.StatusInternalServerError {
		h.logger.Error("http_request_failed", zap.String("path", c.Path()), zap.Error(err))
	}
	return c.Status(status).JSON(body)
}

func (h *Handler) classify(err error) (int, quizdto.ErrorResponse) {
	var (
		perr *pgn.ParseError
		rerr *requestError
		ferr *fiber.Error
	)
	switch {
	case errors.As(err, &perr):
		return fiber.StatusUnprocessableEntity, quizdto.ErrorResponse{
			Code:  quizdto.CodeParse,
			Error: h.pres.Message("parse", map[string]any{"Err": perr.Error()}, perr.Error()),
		}
	case errors.As(err, &rerr):
		return fiber.StatusBadRequest, quizdto.ErrorResponse{
			Code:  quizdto.CodeBadRequest,
			Error: h.pres.Message("bad_request", map[string]any{"Err": rerr.details()}, rerr.Error()),
		}
	case errors.Is(err, board.ErrIllegalMove):
		return fiber.StatusConflict, quizdto.ErrorResponse{Code: quizdto.CodeIllegalMove, Error: err.Error()}
	case errors.Is(err, quiz.ErrEmptyMove), errors.Is(err, trainer.ErrEmptyPGN):
		return fiber.StatusBadRequest, quizdto.ErrorResponse{Code: quizdto.CodeBadRequest, Error: err.Error()}
	case errors.Is(err, quiz.ErrUnknownAction):
		return fiber.StatusBadRequest, quizdto.ErrorResponse{Code: quizdto.CodeUnknownAction, Error: err.Error()}
	case errors.Is(err, trainer.ErrSessionNotFound), errors.Is(err, quiz.ErrSessionClosed):
		return fiber.StatusNotFound, quizdto.ErrorResponse{
			Code:  quizdto.CodeSessionNotFound,
			Error: h.pres.Message("session_not_found", nil, err.Error()),
		}
	case errors.Is(err, savedquiz.ErrNotFound):
		return fiber.StatusNotFound, quizdto.ErrorResponse{
			Code:  quizdto.CodeQuizNotFound,
			Error: h.pres.Message("quiz_not_found", nil, err.Error()),
		}
	case errors.Is(err, trainer.ErrTooManySessions):
		return fiber.StatusTooManyRequests, quizdto.ErrorResponse{
			Code:      quizdto.CodeTooManySessions,
			Error:     h.pres.Message("too_many_sessions", nil, err.Error()),
			Retryable: true,
		}
	case errors.Is(err, trainer.ErrNoRenderer):
		return fiber.StatusNotImplemented, quizdto.ErrorResponse{Code: quizdto.CodeInternal, Error: err.Error()}
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusGatewayTimeout, quizdto.ErrorResponse{Code: quizdto.CodeInternal, Error: err.Error(), Retryable: true}
	case errors.As(err, &ferr):
		code := quizdto.CodeInternal
		if ferr.Code < fiber.StatusInternalServerError {
			code = quizdto.CodeBadRequest
		}
		return ferr.Code, quizdto.ErrorResponse{Code: code, Error: ferr.Message, Retryable: ferr.Code == fiber.StatusTooManyRequests}
	}
	return fiber.StatusInternalServerError, quizdto.ErrorResponse{
		Code:  quizdto.CodeInternal,
		Error: h.pres.Message("internal", nil, "internal error"),
	}
}
