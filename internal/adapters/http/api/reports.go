package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	service "github.com/okian/markscard/internal/app"
	"github.com/okian/markscard/internal/domain/report"
	"github.com/okian/markscard/pkg/logger"
)

// maxBodyBytes bounds a storeReport request body.
const maxBodyBytes = 1 << 20

// ReportsHandler serves storeReport and getMyReports.
type ReportsHandler struct {
	deps   Dependencies
	logger logger.Logger
}

// NewReportsHandler creates a new reports handler.
func NewReportsHandler(deps Dependencies, l logger.Logger) *ReportsHandler {
	return &ReportsHandler{deps: deps, logger: l}
}

// storeReportRequest mirrors the storeReport arguments. Pointers let the
// decoder tell a missing field from a zero value.
type storeReportRequest struct {
	StudentName *string `json:"studentName"`
	TotalMarks  *uint32 `json:"totalMarks"`
	NumSubjects *uint32 `json:"numSubjects"`
}

func (req storeReportRequest) validate() error {
	switch {
	case req.StudentName == nil:
		return errors.New("missing studentName")
	case req.TotalMarks == nil:
		return errors.New("missing totalMarks")
	case req.NumSubjects == nil:
		return errors.New("missing numSubjects")
	}
	return nil
}

type storeReportResponse struct {
	Status string `json:"status"`
}

// HandleStoreReport handles POST /reports.
func (h *ReportsHandler) HandleStoreReport(w http.ResponseWriter, r *http.Request) {
	const op = "api.store_report"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	req, err := decodeStoreReport(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	if err := h.deps.StoreReport(r.Context(), *req.StudentName, *req.TotalMarks, *req.NumSubjects); err != nil {
		h.writeServiceError(r.Context(), w, op, err)
		return
	}

	writeJSON(w, http.StatusCreated, storeReportResponse{Status: "stored"})
}

// HandleGetMyReports handles GET /reports/mine.
func (h *ReportsHandler) HandleGetMyReports(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_my_reports"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	reports, err := h.deps.GetMyReports(r.Context())
	if err != nil {
		h.writeServiceError(r.Context(), w, op, err)
		return
	}
	if reports == nil {
		reports = []report.Record{}
	}
	writeJSON(w, http.StatusOK, reports)
}

func decodeStoreReport(body io.Reader) (storeReportRequest, error) {
	var req storeReportRequest
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return req, fmt.Errorf("decode body: %w", err)
	}
	if dec.More() {
		return req, errors.New("unexpected data after body")
	}
	if err := req.validate(); err != nil {
		return req, err
	}
	return req, nil
}

func (h *ReportsHandler) writeServiceError(ctx context.Context, w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, service.ErrNoCaller):
		writeError(w, http.StatusUnauthorized, "unauthenticated", WrapKind(op, ErrUnauthenticated, err))
	case errors.Is(err, service.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "unavailable", WrapKind(op, ErrUnavailable, err))
	default:
		h.logger.Error(ctx, "report operation failed", logger.String("op", op), logger.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", WrapKind(op, ErrInternal, err))
	}
}
