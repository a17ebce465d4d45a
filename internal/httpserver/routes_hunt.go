// internal/httpserver/routes_hunt.go
//
// Hunt endpoints. Each handler decodes (bounded) input, calls the controller
// once and maps its error taxonomy onto status codes:
//   hunt.ErrSessionInvalid → 401, hunt.ErrRateLimited → 429, bad body → 400.

package httpserver

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/treasurehunt/internal/hunt"
)

// handleReq is the body accepted by restart, submit and view.
// sessionId/sessionToken are older names for handle.
type handleReq struct {
	Handle       string `json:"handle"`
	SessionID    string `json:"sessionId"`
	SessionToken string `json:"sessionToken"`
	Code         string `json:"code"`
}

func (q handleReq) handle() string {
	switch {
	case q.Handle != "":
		return q.Handle
	case q.SessionToken != "":
		return q.SessionToken
	default:
		return q.SessionID
	}
}

// handleStart creates a new run.
func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	v, err := s.hunt.Start(r.Context(), r.RemoteAddr)
	if err != nil {
		s.writeHuntError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// handleRestart drops the presented handle (if any) and creates a new run.
func (s *Server) handleRestart(w http.ResponseWriter, r *http.Request) {
	var req handleReq
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgBadRequest)
		return
	}
	v, err := s.hunt.Restart(r.Context(), req.handle(), r.RemoteAddr)
	if err != nil {
		s.writeHuntError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// handleSubmit checks a code against the current stage.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req handleReq
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgBadRequest)
		return
	}
	res, err := s.hunt.Submit(r.Context(), req.handle(), req.Code)
	if err != nil {
		s.writeHuntError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleView returns the current view without changing anything.
func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	var req handleReq
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgBadRequest)
		return
	}
	v, err := s.hunt.View(r.Context(), req.handle())
	if err != nil {
		s.writeHuntError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// writeHuntError maps controller errors to responses.
func (s *Server) writeHuntError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, hunt.ErrSessionInvalid):
		writeError(w, http.StatusUnauthorized, msgSessionExpired)
	case errors.Is(err, hunt.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, msgRateLimited)
	default:
		log.Error().Err(err).Str("path", r.URL.Path).Msg("hunt request failed")
		writeError(w, http.StatusInternalServerError, msgInternal)
	}
}
