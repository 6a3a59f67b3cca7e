package httpadapter

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/akozhevnikov/rule-assistant/internal/core/domain"
	"github.com/akozhevnikov/rule-assistant/internal/core/ports"
	"github.com/akozhevnikov/rule-assistant/internal/observability/metrics"
)

const serviceName = "rule-assistant-api"

type Router struct {
	assistant ports.RuleAssistant
	searcher  ports.DocumentSearcher
	ingestor  ports.DocumentIngestor
	documents ports.DocumentReader
	metrics   *metrics.HTTPServerMetrics
	traffic   *trafficControl
}

func NewRouter(
	assistant ports.RuleAssistant,
	searcher ports.DocumentSearcher,
	ingestor ports.DocumentIngestor,
	documents ports.DocumentReader,
	serverMetrics *metrics.HTTPServerMetrics,
	traffic TrafficControlConfig,
) *Router {
	return &Router{
		assistant: assistant,
		searcher:  searcher,
		ingestor:  ingestor,
		documents: documents,
		metrics:   serverMetrics,
		traffic:   newTrafficControl(traffic),
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/rules/process", rt.processRule)
	mux.HandleFunc("/v1/search", rt.search)
	mux.HandleFunc("/v1/documents", rt.uploadDocument)
	mux.HandleFunc("/v1/documents/", rt.getDocumentByID)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	handler = rt.traffic.middleware(handler)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) processRule(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req domain.ProcessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Request) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "request is required"})
		return
	}

	result, err := rt.assistant.Process(r.Context(), req)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordRetrievedDocs(serviceName, result.Metadata.TotalDocsRetrieved)
		if result.Metadata.RefinementApplied {
			rt.metrics.RecordRefinement(serviceName, result.Metadata.RemainingIssues == 0)
		}
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) search(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Query   string `json:"query"`
		Limit   int    `json:"limit"`
		DocType string `json:"doc_type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "query is required"})
		return
	}

	items, err := rt.searcher.SearchDocuments(r.Context(), req.Query, req.Limit, domain.SearchFilter{
		DocType: req.DocType,
	})
	if rt.metrics != nil {
		rt.metrics.RecordSearchRequest(serviceName, err)
	}
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"query":   req.Query,
		"results": items,
	})
}

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	doc, err := rt.ingestor.Upload(
		r.Context(),
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		file,
	)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusAccepted, doc)
}

func (rt *Router) getDocumentByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/documents/")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "document id is required"})
		return
	}

	doc, err := rt.documents.GetByID(r.Context(), id)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
