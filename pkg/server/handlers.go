package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator"

	"github.com/codeGROOVE-dev/exposure/pkg/confidence"
	"github.com/codeGROOVE-dev/exposure/pkg/exposure"
	"github.com/codeGROOVE-dev/exposure/pkg/profile"
	"github.com/codeGROOVE-dev/exposure/pkg/propagate"
	"github.com/codeGROOVE-dev/exposure/pkg/source"
)

type validateRequest struct {
	Profile *profile.Reference `json:"profile" validate:"required"`
	Source  string             `json:"source" validate:"required"`
	Record  profile.Extracted  `json:"record"`
}

type scoredResult struct {
	Source string            `json:"source" validate:"required"`
	Result confidence.Result `json:"result"`
}

type projectRequest struct {
	Profile *profile.Reference `json:"profile" validate:"required"`
	Results []scoredResult     `json:"results" validate:"dive"`
}

type projectResponse struct {
	Projections []propagate.Projection `json:"projections"`
	Stats       propagate.Stats        `json:"stats"`
}

type scanRequest struct {
	Profile      *profile.Reference     `json:"profile" validate:"required"`
	Observations []exposure.Observation `json:"observations" validate:"dive"`
}

//nolint:govet // fieldalignment: intentional layout for readability
type sourceResponse struct {
	Source       source.Source   `json:"source"`
	Severity     source.Severity `json:"severity"`
	Excluded     bool            `json:"excluded"`
	Reason       string          `json:"reason,omitempty"`
	LikelyFields []string        `json:"likely_fields"`
	Children     []string        `json:"children,omitempty"`
}

type errorResponse struct {
	Error       string `json:"error"`
	Description string `json:"error_description"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "sources": s.scanner.Graph().Len()})
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if !s.decode(w, r, &req) {
		return
	}
	f, err := s.scanner.Validate(req.Profile, exposure.Observation{Source: req.Source, Record: req.Record})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, f)
}

func (s *Server) handleProject(w http.ResponseWriter, r *http.Request) {
	var req projectRequest
	if !s.decode(w, r, &req) {
		return
	}
	results := make([]propagate.Scored, len(req.Results))
	for i, res := range req.Results {
		results[i] = propagate.Scored{Source: res.Source, Result: res.Result}
	}
	ps, st, err := s.scanner.Project(req.Profile, results)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if ps == nil {
		ps = []propagate.Projection{}
	}
	s.writeJSON(w, http.StatusOK, projectResponse{Projections: ps, Stats: st})
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if !s.decode(w, r, &req) {
		return
	}
	report, err := s.scanner.Scan(r.Context(), req.Profile, req.Observations)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleSource(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	g := s.scanner.Graph()
	src, ok := g.Lookup(key)
	if !ok {
		s.writeError(w, fmt.Errorf("%w: %q", source.ErrUnknownSource, key))
		return
	}
	reason, excluded := g.Excluded(src.Key)
	s.writeJSON(w, http.StatusOK, sourceResponse{
		Source:       src,
		Severity:     g.Severity(src.Key),
		Excluded:     excluded,
		Reason:       reason,
		LikelyFields: source.LikelyFields(src.Category),
		Children:     g.Children(src.Key),
	})
}

// decode reads and validates a JSON body, writing a 400 on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body: "+err.Error())
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, "invalid_request", describe(err))
		return false
	}
	return true
}

// writeError maps domain errors to HTTP responses.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, exposure.ErrNoProfile), errors.Is(err, exposure.ErrEmptySource):
		s.writeJSONError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, source.ErrUnknownSource):
		s.writeJSONError(w, http.StatusNotFound, "not_found", err.Error())
	default:
		s.logger.Error("request failed", "error", err)
		s.writeJSONError(w, http.StatusInternalServerError, "internal_error", "internal error")
	}
}

func (s *Server) writeJSONError(w http.ResponseWriter, status int, code, desc string) {
	s.writeJSON(w, status, errorResponse{Error: code, Description: desc})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("write response", "error", err)
	}
}

// describe flattens validator errors into one line.
func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return strings.Join(msgs, "; ")
}
