package transport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rpggio/statuspage/internal/domain/audit"
	"github.com/rpggio/statuspage/internal/domain/project"
	"github.com/rpggio/statuspage/internal/metrics"
	"github.com/rpggio/statuspage/internal/model"
	"github.com/rpggio/statuspage/internal/snapshot"
	"github.com/rpggio/statuspage/internal/tenant"
)

// ProjectService defines project operations needed over HTTP.
type ProjectService interface {
	List(ctx context.Context) []project.Summary
	Get(ctx context.Context, id int64) (*model.Project, error)
	GetBySlug(ctx context.Context, slug string) (*model.Project, error)
	Create(ctx context.Context, user *model.User, req project.CreateRequest) (*model.Project, error)
	Update(ctx context.Context, user *model.User, id int64, req project.UpdateRequest) (*model.Project, error)
	UpdateDomains(ctx context.Context, user *model.User, id int64, req project.DomainsRequest) (*project.Domains, error)
	Delete(ctx context.Context, user *model.User, id int64) error
	ValidateDomains(ctx context.Context, id int64, domain string) (*project.DomainReport, error)
}

// AuditService lists audit entries.
type AuditService interface {
	Recent(ctx context.Context, limit int) ([]audit.Entry, error)
}

// Projector builds public projections.
type Projector interface {
	Project(p *model.Project) (*snapshot.PublicProject, error)
}

// Deps are the collaborators of the HTTP server. Auth nil disables the admin
// API; MCP nil disables the MCP endpoint.
type Deps struct {
	Projects  ProjectService
	Hosts     HostResolver
	Projector Projector
	Audit     AuditService
	Metrics   *metrics.Metrics
	Gatherer  prometheus.Gatherer
	Auth      func(http.Handler) http.Handler
	MCP       http.Handler
	Logger    *slog.Logger
}

// Server wires HTTP handlers.
type Server struct {
	deps Deps
}

// NewServer creates an HTTP server router with middleware.
func NewServer(deps Deps) *chi.Mux {
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewUnregistered()
	}
	srv := &Server{deps: deps}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(srv.instrument)
	if deps.Hosts != nil {
		r.Use(HostMiddleware(deps.Hosts, deps.Logger))
	}

	r.Get("/health", srv.handleHealth)
	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}
	if deps.MCP != nil {
		r.Handle("/mcp", deps.MCP)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/projects", srv.handleListProjects)
		r.Get("/projects/{slug}", srv.handlePublicProject)
		r.Get("/projects/{slug}/status", srv.handleProjectStatus)
		r.Get("/project-context", srv.handleProjectContext)

		if deps.Auth != nil {
			r.Route("/admin", func(r chi.Router) {
				r.Use(deps.Auth)
				r.Get("/projects", srv.handleAdminListProjects)
				r.Post("/projects", srv.handleCreateProject)
				r.Get("/projects/{id}", srv.handleAdminGetProject)
				r.Put("/projects/{id}", srv.handleUpdateProject)
				r.Delete("/projects/{id}", srv.handleDeleteProject)
				r.Put("/projects/{id}/domains", srv.handleUpdateDomains)
				r.Get("/projects/{id}/domains/validate", srv.handleValidateDomains)
				r.Get("/audit", srv.handleAudit)
			})
		}
	})

	return r
}

func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.deps.Metrics.HTTPRequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
		s.deps.Metrics.HTTPRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

type publicSummary struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	summaries := s.deps.Projects.List(r.Context())
	out := make([]publicSummary, 0, len(summaries))
	for _, p := range summaries {
		out = append(out, publicSummary{ID: p.ID, Name: p.Name, Slug: p.Slug})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) publicProject(r *http.Request) (*snapshot.PublicProject, error) {
	p, err := s.deps.Projects.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		return nil, err
	}
	return s.deps.Projector.Project(p)
}

func (s *Server) handlePublicProject(w http.ResponseWriter, r *http.Request) {
	public, err := s.publicProject(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, public)
}

func (s *Server) handleProjectStatus(w http.ResponseWriter, r *http.Request) {
	public, err := s.publicProject(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"slug":          public.Slug,
		"overallStatus": public.OverallStatus,
	})
}

type projectContext struct {
	Host          string `json:"host"`
	Matched       bool   `json:"matched"`
	ProjectID     int64  `json:"projectId,omitempty"`
	Slug          string `json:"slug,omitempty"`
	PrimaryDomain string `json:"primaryDomain,omitempty"`
}

func (s *Server) handleProjectContext(w http.ResponseWriter, r *http.Request) {
	out := projectContext{Host: r.Host}
	if m, ok := MatchFromContext(r.Context()); ok {
		out = projectContext{
			Host:          m.Host,
			Matched:       true,
			ProjectID:     m.Project.ID,
			Slug:          m.Project.Slug,
			PrimaryDomain: m.Primary,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAdminListProjects(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Projects.List(r.Context()))
}

func (s *Server) handleAdminGetProject(w http.ResponseWriter, r *http.Request) {
	id, ok := s.projectID(w, r)
	if !ok {
		return
	}
	p, err := s.deps.Projects.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var req project.CreateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	user, _ := UserFromContext(r.Context())
	p, err := s.deps.Projects.Create(r.Context(), user, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, publicSummary{ID: p.ID, Name: p.Name, Slug: p.Slug})
}

func (s *Server) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
	id, ok := s.projectID(w, r)
	if !ok {
		return
	}
	var req project.UpdateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	user, _ := UserFromContext(r.Context())
	p, err := s.deps.Projects.Update(r.Context(), user, id, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, publicSummary{ID: p.ID, Name: p.Name, Slug: p.Slug})
}

func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	id, ok := s.projectID(w, r)
	if !ok {
		return
	}
	user, _ := UserFromContext(r.Context())
	if err := s.deps.Projects.Delete(r.Context(), user, id); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Deleted"})
}

func (s *Server) handleUpdateDomains(w http.ResponseWriter, r *http.Request) {
	id, ok := s.projectID(w, r)
	if !ok {
		return
	}
	var req project.DomainsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	user, _ := UserFromContext(r.Context())
	out, err := s.deps.Projects.UpdateDomains(r.Context(), user, id, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleValidateDomains(w http.ResponseWriter, r *http.Request) {
	id, ok := s.projectID(w, r)
	if !ok {
		return
	}
	report, err := s.deps.Projects.ValidateDomains(r.Context(), id, r.URL.Query().Get("domain"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

type auditItem struct {
	audit.Entry
	Summary string `json:"summary"`
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = v
	}
	entries, err := s.deps.Audit.Recent(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]auditItem, 0, len(entries))
	for _, e := range entries {
		out = append(out, auditItem{Entry: e, Summary: audit.Summarize(e.Action, e.Meta)})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) projectID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSONError(w, http.StatusBadRequest, "invalid project id")
		return 0, false
	}
	return id, true
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var conflict *project.DomainConflictError
	switch {
	case errors.As(err, &conflict):
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":   conflict.Error(),
			"domain":  conflict.Domain,
			"project": conflict.Owner,
		})
	case errors.Is(err, project.ErrProjectNotFound), errors.Is(err, tenant.ErrNotFound):
		writeJSONError(w, http.StatusNotFound, "project not found")
	case errors.Is(err, project.ErrSlugTaken):
		writeJSONError(w, http.StatusConflict, err.Error())
	case errors.Is(err, project.ErrInvalidInput),
		errors.Is(err, project.ErrInvalidDomain),
		errors.Is(err, project.ErrNoDomains):
		writeJSONError(w, http.StatusBadRequest, err.Error())
	default:
		s.deps.Logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeJSONError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	if err := dec.Decode(dst); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
