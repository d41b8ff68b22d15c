package api

import (
	"encoding/json"
	"net/http"
	"sync/atomic"

	"github.com/go-chi/chi/v5"

	"github.com/irzumbm/pulseai/internal/chat"
	"github.com/irzumbm/pulseai/internal/executor"
	"github.com/irzumbm/pulseai/internal/model"
	"github.com/irzumbm/pulseai/internal/registry"
)

const maxBodySize = 1 << 20 // 1 MB

// submitRequest is the JSON body for POST /v1/chat and POST /v1/record.
type submitRequest struct {
	UserID   string `json:"user_id"`
	Message  string `json:"message"`
	Language string `json:"language"`
}

// submitResponse acknowledges an accepted submission.
type submitResponse struct {
	RequestID string `json:"request_id"`
}

// pollResponse is the JSON body for GET /v1/requests/{id}. Exactly one of
// Data, Error, Message accompanies a terminal status.
type pollResponse struct {
	Status  string        `json:"status"`
	Data    *model.Result `json:"data,omitempty"`
	Error   string        `json:"error,omitempty"`
	Message string        `json:"message,omitempty"`
}

// cancelResponse is the JSON body for POST /v1/requests/{id}/cancel.
type cancelResponse struct {
	Message  string `json:"message"`
	Accepted bool   `json:"accepted"`
}

func (s *Server) handleSubmitChat(w http.ResponseWriter, r *http.Request) {
	s.submit(w, r, model.KindChat, s.chat.ChatUnit)
}

func (s *Server) handleSubmitRecord(w http.ResponseWriter, r *http.Request) {
	s.submit(w, r, model.KindRecord, s.chat.RecordUnit)
}

// submit validates the body, schedules the unit of work, and registers the
// request. Validation failures are rejected here with a client error and
// never enter the registry. The 202 acknowledgment carries only the id; the
// caller polls for the outcome.
func (s *Server) submit(w http.ResponseWriter, r *http.Request, kind string,
	build func(chat.Submission, *atomic.Bool) executor.Func) {

	var req submitRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if req.UserID == "" {
		s.writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	if req.Message == "" {
		s.writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	flag := &atomic.Bool{}
	unit := build(chat.Submission{
		Owner:    req.UserID,
		Message:  req.Message,
		Language: req.Language,
	}, flag)

	task := s.pool.Submit(unit)
	id := s.registry.Register(req.UserID, kind, task, flag)

	s.logger.Info("request submitted", "request_id", id, "owner", req.UserID, "kind", kind)
	s.writeJSON(w, http.StatusAccepted, submitResponse{RequestID: id})
}

// handlePollRequest returns the request's current state. A terminal poll is
// the authoritative read: the entry is reclaimed and later polls see 404.
// A failed request is still protocol success; the failure is data.
func (s *Server) handlePollRequest(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	snap, ok := s.registry.TakeResult(id)
	if !ok {
		s.writeError(w, http.StatusNotFound, "request not found")
		return
	}

	resp := pollResponse{Status: snap.Status}
	switch snap.Status {
	case model.StatusCompleted:
		resp.Data = snap.Result
	case model.StatusError:
		resp.Error = snap.Result.Error
	case model.StatusCancelled:
		resp.Message = snap.Result.Message
	}

	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCancelRequest(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	outcome := s.registry.RequestCancel(id)
	if outcome == registry.CancelNotFound {
		s.writeError(w, http.StatusNotFound, outcome.Message())
		return
	}

	s.writeJSON(w, http.StatusOK, cancelResponse{
		Message:  outcome.Message(),
		Accepted: outcome.Accepted(),
	})
}

// resetRequest is the JSON body for POST /v1/context/reset.
type resetRequest struct {
	UserID string `json:"user_id"`
}

// resetResponse reports how many live requests the reset cancelled.
type resetResponse struct {
	Message   string `json:"message"`
	Cancelled int    `json:"cancelled"`
}

// handleResetContext cancels every live request for the owner and replaces
// the owner's conversation context with an empty one. The context is empty
// as soon as this returns, regardless of how the in-flight requests resolve.
func (s *Server) handleResetContext(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.UserID == "" {
		s.writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	cancelled := s.registry.CancelAllForOwner(req.UserID)
	s.chat.Contexts().Reset(req.UserID)

	s.logger.Info("context reset", "owner", req.UserID, "cancelled_requests", cancelled)
	s.writeJSON(w, http.StatusOK, resetResponse{
		Message:   "context reset",
		Cancelled: cancelled,
	})
}

// globalContextRequest is the JSON body for POST /v1/context/global.
type globalContextRequest struct {
	Context string `json:"context"`
}

func (s *Server) handleSetGlobalContext(w http.ResponseWriter, r *http.Request) {
	var req globalContextRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	s.chat.Contexts().SetGlobal(req.Context)
	s.writeJSON(w, http.StatusOK, map[string]string{"message": "global context updated"})
}
