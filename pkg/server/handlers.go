package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/drbmap/pkg/arch"
	"github.com/matzehuels/drbmap/pkg/errors"
	"github.com/matzehuels/drbmap/pkg/mapping"
	"github.com/matzehuels/drbmap/pkg/pipeline"
	"github.com/matzehuels/drbmap/pkg/store"
)

// mappingRequest is the body of POST /v1/mappings. Unset fields take the
// server defaults.
type mappingRequest struct {
	Graph      string  `json:"graph"`
	Arch       string  `json:"arch"`
	Policy     string  `json:"policy,omitempty"`
	TieJobs    *bool   `json:"tie_jobs,omitempty"`
	TieMapping *bool   `json:"tie_mapping,omitempty"`
	Seed       *uint64 `json:"seed,omitempty"`
	Refresh    bool    `json:"refresh,omitempty"`
}

// requestOverhead is the body allowance on top of the graph limit.
const requestOverhead = 64 << 10

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK\n"))
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	if s.cfg.MaxGraphBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, int64(s.cfg.MaxGraphBytes)+requestOverhead)
	}
	var req mappingRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			s.writeError(w, r, errors.New(errors.ErrCodeInvalidGraph, "request body too large (max %d bytes)", tooLarge.Limit))
			return
		}
		s.writeError(w, r, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode request"))
		return
	}

	opts := s.options(req)
	ctx := r.Context()
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	res, err := s.runner.Execute(ctx, opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/v1/mappings/"+res.Run.ID)
	writeJSON(w, http.StatusCreated, res.Run)
}

// options merges a request over the server defaults.
func (s *Server) options(req mappingRequest) pipeline.Options {
	opts := s.cfg.Defaults
	opts.Graph, opts.GraphPath, opts.TreeFormats = nil, "", nil
	opts.GraphText = req.Graph
	opts.MaxGraphBytes = s.cfg.MaxGraphBytes
	opts.Arch = req.Arch
	opts.Refresh = req.Refresh
	if req.Policy != "" {
		opts.Policy = req.Policy
	}
	if req.TieJobs != nil {
		opts.TieJobs = *req.TieJobs
	}
	if req.TieMapping != nil {
		opts.TieMapping = *req.TieMapping
	}
	if req.Seed != nil {
		opts.Seed = *req.Seed
	}
	return opts
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			s.writeError(w, r, errors.New(errors.ErrCodeInvalidInput, "invalid limit %q", v))
			return
		}
		limit = n
	}
	runs, err := s.store.List(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, errors.Wrap(errors.ErrCodeInternal, err, "list runs"))
		return
	}
	if runs == nil {
		runs = []*store.Run{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	run, err := s.lookup(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleGetMap(w http.ResponseWriter, r *http.Request) {
	run, err := s.lookup(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	a, err := arch.Parse(run.Arch)
	if err != nil {
		s.writeError(w, r, errors.Wrap(errors.ErrCodeInternal, err, "stored run %s", run.ID))
		return
	}
	m, err := mapping.FromTerminals(a, run.Terminals)
	if err != nil {
		s.writeError(w, r, errors.Wrap(errors.ErrCodeInternal, err, "stored run %s", run.ID))
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_ = mapping.Write(w, m)
}

func (s *Server) lookup(r *http.Request) (*store.Run, error) {
	id := chi.URLParam(r, "id")
	if store.ValidateID(id) != nil {
		return nil, errors.New(errors.ErrCodeNotFound, "run %q not found", id)
	}
	run, err := s.store.Get(r.Context(), id)
	if stderrors.Is(err, store.ErrNotFound) {
		return nil, errors.New(errors.ErrCodeNotFound, "run %q not found", id)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "load run %s", id)
	}
	return run, nil
}
