// Package chi serves the connector over HTTP with the chi router.
package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	chirouter "github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/esbridge/internal/domain/criteria"
	healthuc "github.com/kailas-cloud/esbridge/internal/usecase/health"
	migrationuc "github.com/kailas-cloud/esbridge/internal/usecase/migration"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 8 << 20

// Server handles the HTTP API.
type Server struct {
	documents Documents
	migrator  Migrator
	health    HealthChecker
	logger    *zap.Logger
}

// NewServer creates an HTTP API server. migrator may be nil, which disables
// the /admin routes.
func NewServer(documents Documents, migrator Migrator, health HealthChecker, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{documents: documents, migrator: migrator, health: health, logger: logger}
}

// Routes registers every handler on r.
func (s *Server) Routes(r chirouter.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	r.Get("/models", s.ListModels)

	r.Route("/models/{model}", func(r chirouter.Router) {
		r.Post("/documents", s.CreateDocument)
		r.Put("/documents", s.UpsertDocument)
		r.Get("/documents", s.ListDocuments)
		r.Get("/documents/{id}", s.GetDocument)
		r.Head("/documents/{id}", s.HeadDocument)
		r.Patch("/documents/{id}", s.PatchDocument)
		r.Delete("/documents/{id}", s.DeleteDocument)
		r.Post("/query", s.QueryDocuments)
		r.Post("/count", s.CountDocuments)
		r.Post("/delete", s.DeleteDocuments)
		r.Post("/update", s.UpdateDocuments)
	})

	if s.migrator != nil {
		r.Post("/admin/mappings/{action}", s.RunMappings)
	}
}

// Handler returns a bare router with every route registered.
func (s *Server) Handler() http.Handler {
	r := chirouter.NewRouter()
	s.Routes(r)
	return r
}

// ListModels handles GET /models.
func (s *Server) ListModels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"models": s.documents.Models()})
}

// CreateDocument handles POST /models/{model}/documents.
func (s *Server) CreateDocument(w http.ResponseWriter, r *http.Request) {
	data, ok := s.decodeObject(w, r)
	if !ok {
		return
	}
	id, err := s.documents.Create(r.Context(), chirouter.URLParam(r, "model"), data)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

// UpsertDocument handles PUT /models/{model}/documents. The id travels in the body.
func (s *Server) UpsertDocument(w http.ResponseWriter, r *http.Request) {
	data, ok := s.decodeObject(w, r)
	if !ok {
		return
	}
	doc, created, err := s.documents.UpdateOrCreate(r.Context(), chirouter.URLParam(r, "model"), data)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, doc)
}

// ListDocuments handles GET /models/{model}/documents?limit=&offset=.
func (s *Server) ListDocuments(w http.ResponseWriter, r *http.Request) {
	size, offset, ok := s.paging(w, r)
	if !ok {
		return
	}
	page, err := s.documents.All(r.Context(), chirouter.URLParam(r, "model"), nil, size, offset)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// GetDocument handles GET /models/{model}/documents/{id}.
func (s *Server) GetDocument(w http.ResponseWriter, r *http.Request) {
	model, id := chirouter.URLParam(r, "model"), chirouter.URLParam(r, "id")
	doc, err := s.documents.Find(r.Context(), model, id)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	if doc == nil {
		writeError(w, http.StatusNotFound, CodeNotFound, fmt.Sprintf("%s %q not found", model, id))
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// HeadDocument handles HEAD /models/{model}/documents/{id}.
func (s *Server) HeadDocument(w http.ResponseWriter, r *http.Request) {
	found, err := s.documents.Exists(r.Context(), chirouter.URLParam(r, "model"), chirouter.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	if !found {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// PatchDocument handles PATCH /models/{model}/documents/{id}.
func (s *Server) PatchDocument(w http.ResponseWriter, r *http.Request) {
	data, ok := s.decodeObject(w, r)
	if !ok {
		return
	}
	doc, err := s.documents.UpdateAttributes(r.Context(),
		chirouter.URLParam(r, "model"), chirouter.URLParam(r, "id"), data)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// DeleteDocument handles DELETE /models/{model}/documents/{id}.
func (s *Server) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	model, id := chirouter.URLParam(r, "model"), chirouter.URLParam(r, "id")
	deleted, err := s.documents.Destroy(r.Context(), model, id)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, CodeNotFound, fmt.Sprintf("%s %q not found", model, id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// QueryDocuments handles POST /models/{model}/query with a criteria body.
func (s *Server) QueryDocuments(w http.ResponseWriter, r *http.Request) {
	size, offset, ok := s.paging(w, r)
	if !ok {
		return
	}
	cr, ok := s.decodeCriteria(w, r)
	if !ok {
		return
	}
	page, err := s.documents.All(r.Context(), chirouter.URLParam(r, "model"), cr, size, offset)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// CountDocuments handles POST /models/{model}/count. The body is a where filter.
func (s *Server) CountDocuments(w http.ResponseWriter, r *http.Request) {
	cr, ok := s.decodeWhere(w, r)
	if !ok {
		return
	}
	n, err := s.documents.Count(r.Context(), chirouter.URLParam(r, "model"), cr)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"count": n})
}

// DeleteDocuments handles POST /models/{model}/delete. The body is a where filter.
func (s *Server) DeleteDocuments(w http.ResponseWriter, r *http.Request) {
	cr, ok := s.decodeWhere(w, r)
	if !ok {
		return
	}
	n, err := s.documents.DestroyAll(r.Context(), chirouter.URLParam(r, "model"), cr)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}

// UpdateDocuments handles POST /models/{model}/update with a
// {"where": {...}, "data": {...}} body. Update-by-query is not supported, so a
// well-formed request answers 501.
func (s *Server) UpdateDocuments(w http.ResponseWriter, r *http.Request) {
	body, ok := s.decodeObject(w, r)
	if !ok {
		return
	}
	rawWhere, _ := body["where"].(map[string]any)
	if v, present := body["where"]; present && v != nil && rawWhere == nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "where must be a JSON object")
		return
	}
	data, _ := body["data"].(map[string]any)
	if data == nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "data must be a JSON object")
		return
	}
	where, err := criteria.ParseWhere(rawWhere)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	n, err := s.documents.UpdateAll(r.Context(), chirouter.URLParam(r, "model"), &criteria.Criteria{Where: &where}, data)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"updated": n})
}

// RunMappings handles POST /admin/mappings/{action}?model=A&model=B.
func (s *Server) RunMappings(w http.ResponseWriter, r *http.Request) {
	action, err := migrationuc.ParseAction(chirouter.URLParam(r, "action"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	var models []string
	if err := runtime.BindQueryParameter("form", true, false, "model", r.URL.Query(), &models); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid model parameter: "+err.Error())
		return
	}

	report, err := s.migrator.Run(r.Context(), action, models...)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func (s *Server) paging(w http.ResponseWriter, r *http.Request) (size, offset int, ok bool) {
	var limit, skip *int
	q := r.URL.Query()
	if err := runtime.BindQueryParameter("form", true, false, "limit", q, &limit); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid limit parameter: "+err.Error())
		return 0, 0, false
	}
	if err := runtime.BindQueryParameter("form", true, false, "offset", q, &skip); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid offset parameter: "+err.Error())
		return 0, 0, false
	}
	if limit != nil {
		size = *limit
	}
	if skip != nil {
		offset = *skip
	}
	return size, offset, true
}

// decodeObject reads a JSON object body. An empty body is an error.
func (s *Server) decodeObject(w http.ResponseWriter, r *http.Request) (map[string]any, bool) {
	var data map[string]any
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(&data); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return nil, false
	}
	if data == nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Request body must be a JSON object")
		return nil, false
	}
	return data, true
}

// decodeOptional reads a JSON object body where an empty body means nil.
func (s *Server) decodeOptional(w http.ResponseWriter, r *http.Request) (map[string]any, bool) {
	var data map[string]any
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(&data); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return nil, false
	}
	return data, true
}

func (s *Server) decodeCriteria(w http.ResponseWriter, r *http.Request) (*criteria.Criteria, bool) {
	raw, ok := s.decodeOptional(w, r)
	if !ok {
		return nil, false
	}
	cr, err := criteria.Parse(raw)
	if err != nil {
		s.handleDomainError(w, r, err)
		return nil, false
	}
	return cr, true
}

// decodeWhere wraps a bare where object into criteria. A nil or empty body
// matches everything.
func (s *Server) decodeWhere(w http.ResponseWriter, r *http.Request) (*criteria.Criteria, bool) {
	raw, ok := s.decodeOptional(w, r)
	if !ok {
		return nil, false
	}
	where, err := criteria.ParseWhere(raw)
	if err != nil {
		s.handleDomainError(w, r, err)
		return nil, false
	}
	return &criteria.Criteria{Where: &where}, true
}

