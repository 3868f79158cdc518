package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"taskbridge/internal/model"
	"taskbridge/internal/mutate"
	"taskbridge/internal/query"
	"taskbridge/internal/taskwarrior"
	"taskbridge/internal/tasks"
)

var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// statusFor maps a service error onto an HTTP status code.
func statusFor(err error) int {
	var (
		notFound   mutate.NotFoundError
		confirm    *mutate.ConfirmationRequiredError
		transition *mutate.InvalidTransitionError
		badQuery   *query.InvalidQueryError
		planErr    *mutate.PlanError
		invocation *taskwarrior.InvocationError
	)
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, model.ErrInvalidIdentifier),
		errors.Is(err, mutate.ErrEmptyDescription),
		errors.Is(err, mutate.ErrEmptyNote),
		errors.Is(err, mutate.ErrInvalidPriority):
		return http.StatusBadRequest
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &confirm):
		return http.StatusPreconditionRequired
	case errors.As(err, &transition), errors.As(err, &badQuery), errors.Is(err, model.ErrUnaddressable):
		return http.StatusUnprocessableEntity
	case errors.As(err, &planErr), errors.As(err, &invocation):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeServiceError(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	writeJSON(w, statusFor(err), map[string]string{"error": err.Error()})
}

type planFailure struct {
	Error    string          `json:"error"`
	FailedAt int             `json:"failedAt"`
	Intent   mutate.Intent   `json:"intent"`
	Plan     []mutate.Intent `json:"plan"`
	Steps    []mutate.Step   `json:"steps"`
}

// writeMutationError reports plan failures with the per-step outcome so a
// client can see which intents already took effect.
func writeMutationError(w http.ResponseWriter, res tasks.MutationResult, err error) {
	var pe *mutate.PlanError
	if !errors.As(err, &pe) {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusBadGateway, planFailure{
		Error:    err.Error(),
		FailedAt: pe.Index,
		Intent:   pe.Intent,
		Plan:     res.Plan,
		Steps:    res.Steps,
	})
}
