package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/trackerhub/internal/integrations"
	"github.com/mesh-intelligence/trackerhub/pkg/types"
)

// fail writes err as a JSON error. Unexpected errors are logged since the
// response hides their message.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	if statusFor(err) == http.StatusInternalServerError && s.Logger != nil {
		s.Logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}
	writeError(w, err)
}

func (s *Server) table(r *http.Request) (types.Table, error) {
	return s.Tables.Table(chi.URLParam(r, "table"))
}

func (s *Server) listEntities(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			s.fail(w, r, fmt.Errorf("%w: limit %q", errBadRequest, raw))
			return
		}
		limit = n
	}

	tbl, err := s.table(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	rows, err := tbl.List(r.Context(), r.URL.Query().Get("sort"), limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if rows == nil {
		rows = []types.Record{}
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) getEntity(w http.ResponseWriter, r *http.Request) {
	tbl, err := s.table(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	rec, err := tbl.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) createEntity(w http.ResponseWriter, r *http.Request) {
	var body types.Record
	if err := decodeBody(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	tbl, err := s.table(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	rec, err := tbl.Create(r.Context(), body)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) updateEntity(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := decodeBody(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	tbl, err := s.table(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	rec, err := tbl.Update(r.Context(), chi.URLParam(r, "id"), types.NewPatch(body))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) deleteEntity(w http.ResponseWriter, r *http.Request) {
	tbl, err := s.table(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := tbl.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// deleteEntitiesBy reads value with types.ParseMatchValue: value=3 matches
// the number 3, value="3" the string "3", and anything else is matched as
// the raw text.
func (s *Server) deleteEntitiesBy(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	field := q.Get("field")
	if field == "" || !q.Has("value") {
		s.fail(w, r, fmt.Errorf("%w: field and value are required", errBadRequest))
		return
	}

	tbl, err := s.table(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	n, err := tbl.DeleteBy(r.Context(), field, types.ParseMatchValue(q.Get("value")))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"deleted": n})
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	u, err := s.Identity.CurrentUser(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) updateMe(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := decodeBody(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	u, err := s.Identity.UpdateCurrentUser(r.Context(), types.NewPatch(body))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	u, err := s.Identity.Login(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.Session.Authenticate(true)
	writeJSON(w, http.StatusOK, u)
}

type logoutRequest struct {
	Redirect string `json:"redirect"`
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	var body logoutRequest
	if r.ContentLength > 0 {
		if err := decodeBody(r, &body); err != nil {
			s.fail(w, r, err)
			return
		}
	}
	s.Session.Logout()
	redirect := s.Identity.Logout(body.Redirect)
	writeJSON(w, http.StatusOK, map[string]string{"redirect": redirect})
}

type sessionResponse struct {
	State   string `json:"state"`
	Rearmed bool   `json:"rearmed,omitempty"`
}

func (s *Server) sessionState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, sessionResponse{State: s.Session.State().String()})
}

type activityRequest struct {
	Event string `json:"event"`
}

func (s *Server) activity(w http.ResponseWriter, r *http.Request) {
	var body activityRequest
	if err := decodeBody(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	rearmed := s.Session.Observe(body.Event)
	writeJSON(w, http.StatusOK, sessionResponse{State: s.Session.State().String(), Rearmed: rearmed})
}

func (s *Server) upload(w http.ResponseWriter, r *http.Request) {
	var f integrations.File
	if err := decodeBody(r, &f); err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.Integrations.UploadFile(f)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) email(w http.ResponseWriter, r *http.Request) {
	var e integrations.Email
	if err := decodeBody(r, &e); err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.Integrations.SendEmail(r.Context(), e)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
