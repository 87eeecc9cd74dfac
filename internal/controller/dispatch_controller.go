// internal/controller/dispatch_controller.go
package controller

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	appErrors "github.com/unclebandit/outreach-backend/internal/errors"
	"github.com/unclebandit/outreach-backend/internal/service"
)

const maxBodyBytes = 1 << 16

// DispatchRunner is what the controller needs from the dispatch service.
type DispatchRunner interface {
	Run(ctx context.Context, req service.Request) (*service.DispatchResult, error)
	Status(ctx context.Context) (*service.Status, error)
}

type DispatchController struct {
	Service DispatchRunner
	Logger  *zap.Logger
}

// Routes registers the dispatch endpoints.
func (c *DispatchController) Routes(r chi.Router) {
	r.Post("/dispatch", c.Dispatch)
	r.Get("/dispatch/status", c.Status)
}

func (c *DispatchController) Dispatch(w http.ResponseWriter, r *http.Request) {
	var body service.Request
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error":   "invalid body: " + err.Error(),
			"message": "request body must be a JSON dispatch request",
		})
		return
	}

	result, err := c.Service.Run(r.Context(), body)
	if err != nil {
		var verr *appErrors.ValidationError
		switch {
		case errors.As(err, &verr):
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error":   verr.Error(),
				"field":   verr.Field,
				"message": "invalid dispatch request: " + verr.Error(),
			})
		case service.IsInProgress(err):
			writeJSON(w, http.StatusConflict, service.InProgressResult())
		default:
			c.internalError(w, "dispatch failed", err)
		}
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (c *DispatchController) Status(w http.ResponseWriter, r *http.Request) {
	status, err := c.Service.Status(r.Context())
	if err != nil {
		c.internalError(w, "status failed", err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// internalError logs err under a fresh id and returns only the id to the caller.
func (c *DispatchController) internalError(w http.ResponseWriter, msg string, err error) {
	errorID := uuid.NewString()
	c.logger().Error(msg, zap.String("error_id", errorID), zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, map[string]string{
		"error":    "internal error",
		"error_id": errorID,
		"message":  msg + ", reference error id " + errorID,
	})
}

func (c *DispatchController) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
