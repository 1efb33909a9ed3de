package api

import (
	"errors"
	"net/http"

	"github.com/cosmos-link/code-agent/internal/extract"
	"github.com/cosmos-link/code-agent/internal/generator"
	"github.com/cosmos-link/code-agent/internal/llm"
	"github.com/cosmos-link/code-agent/internal/persist"
	"github.com/cosmos-link/code-agent/internal/session"
	"github.com/cosmos-link/code-agent/internal/task"
	"github.com/gin-gonic/gin"
)

// apiError is the user-facing rendering of a pipeline error
type apiError struct {
	Status  int    `json:"-"`
	Kind    string `json:"kind"`
	Message string `json:"error"`
	Raw     string `json:"raw,omitempty"`
}

// describe maps every error class to a status code and a message fit for
// the user. Raw model output is kept for parse failures.
func describe(err error) apiError {
	var (
		perr *extract.ParseError
		aerr *llm.AuthenticationError
	)

	e := apiError{Kind: generator.Classify(err), Message: err.Error()}
	switch {
	case errors.Is(err, generator.ErrEmptyQuery):
		e.Status = http.StatusBadRequest
	case errors.Is(err, session.ErrQuotaExceeded):
		e.Status = http.StatusTooManyRequests
		e.Kind = "quota_exceeded"
	case errors.As(err, &aerr):
		e.Status = http.StatusUnauthorized
		if errors.Is(err, llm.ErrCredentialMissing) {
			e.Message = "No API key found. Provide your own key to continue."
		} else {
			e.Message = "The API key was rejected by the model provider."
		}
	case e.Kind == "service_error":
		e.Status = http.StatusBadGateway
		e.Message = "The model service failed: " + err.Error()
	case errors.As(err, &perr):
		e.Status = http.StatusUnprocessableEntity
		e.Message = "Something went wrong while parsing the generated response."
		e.Raw = perr.Raw
	case e.Kind == "unsupported_language":
		e.Status = http.StatusUnprocessableEntity
	case errors.Is(err, task.ErrQueueFull), errors.Is(err, task.ErrShutdown):
		e.Status = http.StatusServiceUnavailable
		e.Kind = "unavailable"
	default:
		var werr *persist.WriteError
		e.Status = http.StatusInternalServerError
		if errors.As(err, &werr) {
			e.Message = "Failed to save the generated file."
		}
	}
	return e
}

func respondError(c *gin.Context, err error) {
	e := describe(err)
	c.JSON(e.Status, e)
}
