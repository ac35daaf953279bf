package serving

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/synaptica-ai/dementia-risk/pkg/common/logger"
	"github.com/synaptica-ai/dementia-risk/pkg/common/models"
	"github.com/synaptica-ai/dementia-risk/pkg/common/validation"
	"github.com/synaptica-ai/dementia-risk/pkg/preprocess"
	"github.com/synaptica-ai/dementia-risk/pkg/serving/assessment"
	"github.com/synaptica-ai/dementia-risk/pkg/storage"
)

// ResultCache looks up finished assessments by id.
type ResultCache interface {
	Get(ctx context.Context, id string) (models.AssessmentResult, error)
}

// AuditReader reads the assessment audit log.
type AuditReader interface {
	Get(ctx context.Context, assessmentID string) (*AssessmentLog, error)
	Recent(ctx context.Context, limit int) ([]AssessmentLog, error)
}

// Handler serves the assessment form and the JSON API.
type Handler struct {
	service   *assessment.Service
	validator *validation.Validator
	cache     ResultCache
	audit     AuditReader
}

// NewHandler wires the HTTP surface. cache and audit may be nil.
func NewHandler(service *assessment.Service, cache ResultCache, audit AuditReader) (*Handler, error) {
	validator, err := validation.New(validation.RecordSchema(preprocess.NumericFields(), preprocess.CategoricalFields()))
	if err != nil {
		return nil, err
	}
	return &Handler{service: service, validator: validator, cache: cache, audit: audit}, nil
}

func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/", h.handleForm).Methods(http.MethodGet)
	r.HandleFunc("/", h.handleFormSubmit).Methods(http.MethodPost)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/assessments", h.handleAssess).Methods(http.MethodPost)
	api.HandleFunc("/assessments", h.handleRecent).Methods(http.MethodGet)
	api.HandleFunc("/assessments/{id}", h.handleGet).Methods(http.MethodGet)
	api.HandleFunc("/explain", h.handleExplain).Methods(http.MethodPost)
	api.HandleFunc("/schema", h.handleSchema).Methods(http.MethodGet)
}

func (h *Handler) handleForm(w http.ResponseWriter, r *http.Request) {
	h.writeForm(w, newFormPage(h.service.Preprocessor().Vocabularies(), nil, nil))
}

func (h *Handler) handleFormSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	result := h.service.Assess(r.Context(), recordFromForm(r.PostForm))
	h.writeForm(w, newFormPage(h.service.Preprocessor().Vocabularies(), r.PostForm, &result))
}

func (h *Handler) writeForm(w http.ResponseWriter, page formPage) {
	var buf bytes.Buffer
	if err := renderForm(&buf, page); err != nil {
		logger.Log.WithError(err).Error("failed to render form")
		http.Error(w, "failed to render form", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

// AssessmentResponse is the JSON shape of one assessment.
type AssessmentResponse struct {
	ID          string   `json:"id"`
	Verdict     string   `json:"verdict,omitempty"`
	AtRisk      bool     `json:"at_risk"`
	Probability *float64 `json:"probability,omitempty"`
	Message     string   `json:"message"`
	ErrorKind   string   `json:"error_kind,omitempty"`
}

func toResponse(result models.AssessmentResult) AssessmentResponse {
	return AssessmentResponse{
		ID:          result.ID,
		Verdict:     result.Verdict,
		AtRisk:      result.AtRisk,
		Probability: result.Probability,
		Message:     result.Message,
		ErrorKind:   result.ErrorKind,
	}
}

type errorResponse struct {
	Error  string                 `json:"error"`
	Fields []validation.FieldError `json:"fields,omitempty"`
}

// decodeRecord reads and validates a JSON record body. It writes the error
// response itself and returns ok=false on failure.
func (h *Handler) decodeRecord(w http.ResponseWriter, r *http.Request) (preprocess.Record, bool) {
	var body interface{}
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSONStatus(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "request body too large"})
			return nil, false
		}
		writeJSONStatus(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return nil, false
	}

	if err := h.validator.Validate(body); err != nil {
		resp := errorResponse{Error: err.Error()}
		var verr *validation.Error
		if errors.As(err, &verr) {
			resp.Fields = verr.Fields
		}
		writeJSONStatus(w, http.StatusBadRequest, resp)
		return nil, false
	}

	raw, _ := body.(map[string]interface{})
	record, err := preprocess.NewRecord(raw)
	if err != nil {
		writeJSONStatus(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return nil, false
	}
	return record, true
}

func (h *Handler) handleAssess(w http.ResponseWriter, r *http.Request) {
	record, ok := h.decodeRecord(w, r)
	if !ok {
		return
	}

	result := h.service.Run(r.Context(), assessment.Request{
		PatientID: r.URL.Query().Get("patient_id"),
		Record:    record,
	})

	status := http.StatusOK
	switch {
	case result.ErrorKind == assessment.KindClassifier:
		status = http.StatusServiceUnavailable
	case result.ErrorKind != "":
		status = http.StatusUnprocessableEntity
	}
	writeJSONStatus(w, status, toResponse(result))
}

func (h *Handler) handleExplain(w http.ResponseWriter, r *http.Request) {
	record, ok := h.decodeRecord(w, r)
	if !ok {
		return
	}
	trace, err := h.service.Preprocessor().Explain(record)
	if err != nil {
		writeJSONStatus(w, http.StatusUnprocessableEntity, map[string]string{
			"error":      err.Error(),
			"error_kind": preprocess.ErrorKind(err),
		})
		return
	}
	writeJSON(w, trace)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	ctx := r.Context()

	if h.cache != nil {
		result, err := h.cache.Get(ctx, id)
		if err == nil {
			writeJSON(w, toResponse(result))
			return
		}
		if !errors.Is(err, storage.ErrNotFound) {
			logger.Log.WithError(err).WithField("assessment_id", id).Warn("assessment cache lookup failed")
		}
	}

	if h.audit != nil {
		row, err := h.audit.Get(ctx, id)
		if err == nil {
			writeJSON(w, toResponse(row.Result()))
			return
		}
		if !errors.Is(err, ErrNotFound) {
			logger.Log.WithError(err).WithField("assessment_id", id).Error("failed to load assessment")
			http.Error(w, "failed to load assessment", http.StatusInternalServerError)
			return
		}
	}

	writeJSONStatus(w, http.StatusNotFound, errorResponse{Error: "assessment not found"})
}

func (h *Handler) handleRecent(w http.ResponseWriter, r *http.Request) {
	if h.audit == nil {
		writeJSONStatus(w, http.StatusNotImplemented, errorResponse{Error: "audit log disabled"})
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 500 {
			writeJSONStatus(w, http.StatusBadRequest, errorResponse{Error: "limit must be between 1 and 500"})
			return
		}
		limit = n
	}

	rows, err := h.audit.Recent(r.Context(), limit)
	if err != nil {
		logger.Log.WithError(err).Error("failed to list assessments")
		http.Error(w, "failed to list assessments", http.StatusInternalServerError)
		return
	}
	items := make([]AssessmentResponse, 0, len(rows))
	for _, row := range rows {
		items = append(items, toResponse(row.Result()))
	}
	writeJSON(w, map[string]interface{}{"items": items})
}

type schemaField struct {
	Name       string   `json:"name"`
	Kind       string   `json:"kind"`
	Vocabulary []string `json:"vocabulary,omitempty"`
}

func (h *Handler) handleSchema(w http.ResponseWriter, r *http.Request) {
	vocab := h.service.Preprocessor().Vocabularies()
	fields := make([]schemaField, 0, preprocess.FeatureCount)
	for _, col := range preprocess.Columns() {
		f := schemaField{Name: col.Name, Kind: col.Kind.String()}
		if v, ok := vocab.Lookup(col.Name); ok {
			f.Vocabulary = v.Values()
		}
		fields = append(fields, f)
	}
	writeJSON(w, map[string]interface{}{
		"feature_count": preprocess.FeatureCount,
		"mode":          h.service.Preprocessor().Mode(),
		"threshold":     h.service.Threshold(),
		"fields":        fields,
	})
}

// HealthCheck is the liveness probe.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

func writeJSON(w http.ResponseWriter, data interface{}) {
	writeJSONStatus(w, http.StatusOK, data)
}

func writeJSONStatus(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Log.WithError(err).Error("failed to write json response")
	}
}
