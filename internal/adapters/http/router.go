package httpadapter

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/citetrace/citetrace/internal/core/domain"
	"github.com/citetrace/citetrace/internal/core/ports"
	"github.com/citetrace/citetrace/internal/observability/metrics"
)

type Router struct {
	ingestor  ports.DocumentIngestor
	reader    ports.DocumentReader
	runner    ports.ConsensusRunner
	validator ports.CitationValidator
	consensus ports.ConsensusRepository

	serverMetrics *metrics.HTTPServerMetrics
	serviceName   string
}

func NewRouter(
	ingestor ports.DocumentIngestor,
	reader ports.DocumentReader,
	runner ports.ConsensusRunner,
	validator ports.CitationValidator,
	consensus ports.ConsensusRepository,
	serverMetrics *metrics.HTTPServerMetrics,
	serviceName string,
) *Router {
	return &Router{
		ingestor:      ingestor,
		reader:        reader,
		runner:        runner,
		validator:     validator,
		consensus:     consensus,
		serverMetrics: serverMetrics,
		serviceName:   serviceName,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/documents", rt.uploadDocument)
	mux.HandleFunc("/v1/documents/", rt.documentSubresource)
	mux.HandleFunc("/v1/validations", rt.validateExtractions)
	if rt.serverMetrics != nil {
		mux.Handle("/metrics", rt.serverMetrics.Handler())
	}

	var handler http.Handler = mux
	if rt.serverMetrics != nil {
		handler = rt.serverMetrics.Middleware(rt.serviceName, handler)
	}
	return requestIDMiddleware(accessLogMiddleware(handler))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "multipart field 'file' is required")
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
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, doc)
}

// documentSubresource dispatches /v1/documents/{id}[/chunks|/citable|/extract|/conflicts].
func (rt *Router) documentSubresource(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/documents/")
	id, sub, _ := strings.Cut(rest, "/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "document id is required")
		return
	}

	switch sub {
	case "":
		rt.getDocument(w, r, id)
	case "chunks":
		rt.listChunks(w, r, id)
	case "citable":
		rt.getCitable(w, r, id)
	case "extract":
		rt.runExtraction(w, r, id)
	case "conflicts":
		rt.listConflicts(w, r, id)
	case "validate":
		rt.validateDocument(w, r, id)
	default:
		writeError(w, http.StatusNotFound, "unknown resource")
	}
}

func (rt *Router) getDocument(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	doc, err := rt.reader.GetByID(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (rt *Router) listChunks(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	chunks, err := rt.reader.ListChunks(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"document_id": id,
		"chunks":      chunks,
	})
}

func (rt *Router) getCitable(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	chunks, err := rt.reader.ListChunks(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"document_id": id,
		"citable":     domain.CitableDocument(chunks),
	})
}

func (rt *Router) runExtraction(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req extractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	run, err := rt.runner.Run(r.Context(), id, req.fieldSpecs())
	if rt.serverMetrics != nil {
		rt.recordConsensusRun(run, err)
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (rt *Router) listConflicts(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	conflicts, err := rt.consensus.ListConflicts(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"document_id": id,
		"conflicts":   conflicts,
	})
}

func (rt *Router) validateDocument(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	summary, err := rt.validator.ValidateDocument(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	rt.recordValidation(summary)
	writeJSON(w, http.StatusOK, summary)
}

func (rt *Router) validateExtractions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req validateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	summary, err := rt.validator.ValidateExtractions(r.Context(), req.ExtractionIDs)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	rt.recordValidation(summary)
	writeJSON(w, http.StatusOK, summary)
}

func (rt *Router) recordConsensusRun(run *domain.ConsensusRun, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	var conflictTypes []string
	var agreements []float64
	if run != nil {
		for _, conflict := range run.Conflicts {
			for _, ct := range conflict.ConflictTypes {
				conflictTypes = append(conflictTypes, string(ct))
			}
		}
		for _, record := range run.Fields {
			agreements = append(agreements, record.AgreementLevel)
		}
	}
	rt.serverMetrics.RecordConsensusRun(rt.serviceName, status, conflictTypes, agreements)
}

func (rt *Router) recordValidation(summary *domain.ValidationSummary) {
	if rt.serverMetrics == nil || summary == nil {
		return
	}
	for _, outcome := range summary.Results {
		rt.serverMetrics.RecordValidationOutcome(rt.serviceName, string(outcome.Status), outcome.Confidence)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeDomainError(w http.ResponseWriter, err error) {
	writeError(w, mapErrorToHTTPStatus(err), err.Error())
}
