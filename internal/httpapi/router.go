// Package httpapi serves the invoice service as a JSON HTTP API.
package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/joseph-ayodele/invoice-drafter/internal/audit"
	"github.com/joseph-ayodele/invoice-drafter/internal/common"
	"github.com/joseph-ayodele/invoice-drafter/internal/entity"
	"github.com/joseph-ayodele/invoice-drafter/internal/pipeline"
	"github.com/joseph-ayodele/invoice-drafter/internal/services/invoice"
)

// MaxBodyBytes caps JSON bodies and uploads.
const MaxBodyBytes = 10 << 20

type Handler struct {
	svc    *invoice.Service
	logger *slog.Logger
}

// NewRouter returns the HTTP routes for svc.
func NewRouter(svc *invoice.Service, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{svc: svc, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/drafts", h.Draft)
		r.Post("/drafts/upload", h.DraftUpload)
		r.Post("/drafts/labor-pricing", h.ContinueLaborPricing)
		r.Post("/drafts/discount", h.ContinueDiscount)

		r.Post("/edits/discount", h.ApplyDiscount)
		r.Post("/edits/line-items", h.EditLineItems)
		r.Post("/edits/decisions", h.ResolveDecision)
		r.Post("/edits/reword", h.Reword)
		r.Post("/export", h.ExportInline)

		r.Get("/invoices", h.ListInvoices)
		r.Post("/invoices", h.SaveInvoice)
		r.Get("/invoices/{id}", h.GetInvoice)
		r.Put("/invoices/{id}", h.UpdateInvoice)
		r.Delete("/invoices/{id}", h.DeleteInvoice)
		r.Patch("/invoices/{id}/status", h.UpdateStatus)
		r.Post("/invoices/{id}/restore", h.RestoreInvoice)
		r.Get("/invoices/{id}/export", h.ExportSaved)
	})
	return r
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			ctx := common.WithRequestID(r.Context(), middleware.GetReqID(r.Context()))
			next.ServeHTTP(ww, r.WithContext(ctx))
			logger.Info("http.request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"req_id", middleware.GetReqID(r.Context()),
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}

// decode reads a JSON body into v after entity.CoerceRequest, so "$80" and
// "Labour" are accepted the same way they are from the model. Unknown fields
// are ignored.
func decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	var raw map[string]any
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		return common.NewInputError(fmt.Sprintf("invalid JSON body: %v", err))
	}
	if raw == nil {
		return common.NewInputError("expected a JSON object body")
	}
	if err := entity.CoerceRequest(raw); err != nil {
		return err
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return common.WrapError(err, "re-encode body")
	}
	if err := json.Unmarshal(b, v); err != nil {
		return common.NewInputError(fmt.Sprintf("invalid JSON body: %v", err))
	}
	return nil
}

func (h *Handler) Draft(w http.ResponseWriter, r *http.Request) {
	var req pipeline.DraftRequest
	if err := decode(w, r, &req); err != nil {
		writeErr(w, err)
		return
	}
	res, err := h.svc.Draft(r.Context(), req)
	h.respond(w, "draft", res, err)
}

// DraftUpload accepts multipart/form-data with a "file" part and an optional "mode" field.
func (h *Handler) DraftUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	if err := r.ParseMultipartForm(MaxBodyBytes); err != nil {
		writeErr(w, common.NewInputError("expected a multipart upload with a file field"))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeErr(w, common.NewInputError("file field is required"))
		return
	}
	defer func() { _ = file.Close() }()

	content, err := io.ReadAll(file)
	if err != nil {
		writeErr(w, common.NewInputError("could not read upload"))
		return
	}
	res, err := h.svc.DraftUpload(r.Context(), invoice.UploadDraftRequest{
		Name:    header.Filename,
		Content: content,
		Mode:    audit.Mode(r.FormValue("mode")),
	})
	h.respond(w, "draft_upload", res, err)
}

func (h *Handler) ContinueLaborPricing(w http.ResponseWriter, r *http.Request) {
	var req pipeline.LaborPricingRequest
	if err := decode(w, r, &req); err != nil {
		writeErr(w, err)
		return
	}
	res, err := h.svc.ContinueLaborPricing(r.Context(), req)
	h.respond(w, "labor_pricing", res, err)
}

func (h *Handler) ContinueDiscount(w http.ResponseWriter, r *http.Request) {
	var req pipeline.DiscountRequest
	if err := decode(w, r, &req); err != nil {
		writeErr(w, err)
		return
	}
	res, err := h.svc.ContinueDiscount(r.Context(), req)
	h.respond(w, "discount", res, err)
}

func (h *Handler) ApplyDiscount(w http.ResponseWriter, r *http.Request) {
	var req invoice.ApplyDiscountRequest
	if err := decode(w, r, &req); err != nil {
		writeErr(w, err)
		return
	}
	inv, err := h.svc.ApplyDiscount(r.Context(), req)
	h.respond(w, "apply_discount", map[string]any{"invoice": inv}, err)
}

func (h *Handler) EditLineItems(w http.ResponseWriter, r *http.Request) {
	var req invoice.EditLineItemsRequest
	if err := decode(w, r, &req); err != nil {
		writeErr(w, err)
		return
	}
	inv, err := h.svc.EditLineItems(r.Context(), req)
	h.respond(w, "edit_line_items", map[string]any{"invoice": inv}, err)
}

func (h *Handler) ResolveDecision(w http.ResponseWriter, r *http.Request) {
	var req invoice.ResolveDecisionRequest
	if err := decode(w, r, &req); err != nil {
		writeErr(w, err)
		return
	}
	res, err := h.svc.ResolveDecision(r.Context(), req)
	h.respond(w, "resolve_decision", res, err)
}

func (h *Handler) Reword(w http.ResponseWriter, r *http.Request) {
	var req invoice.RewordRequest
	if err := decode(w, r, &req); err != nil {
		writeErr(w, err)
		return
	}
	inv, err := h.svc.Reword(r.Context(), req)
	h.respond(w, "reword", map[string]any{"invoice": inv}, err)
}

func (h *Handler) ListInvoices(w http.ResponseWriter, r *http.Request) {
	include, _ := strconv.ParseBool(r.URL.Query().Get("includeDeleted"))
	out, err := h.svc.ListInvoices(r.Context(), include)
	h.respond(w, "list_invoices", map[string]any{"invoices": out}, err)
}

func (h *Handler) SaveInvoice(w http.ResponseWriter, r *http.Request) {
	var req invoice.SaveRequest
	if err := decode(w, r, &req); err != nil {
		writeErr(w, err)
		return
	}
	saved, err := h.svc.SaveInvoice(r.Context(), req)
	if err != nil {
		h.respond(w, "save_invoice", nil, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (h *Handler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	saved, err := h.svc.GetInvoice(r.Context(), chi.URLParam(r, "id"))
	h.respond(w, "get_invoice", saved, err)
}

func (h *Handler) UpdateInvoice(w http.ResponseWriter, r *http.Request) {
	var req invoice.UpdateRequest
	if err := decode(w, r, &req); err != nil {
		writeErr(w, err)
		return
	}
	req.InvoiceID = chi.URLParam(r, "id")
	saved, err := h.svc.UpdateInvoice(r.Context(), req)
	h.respond(w, "update_invoice", saved, err)
}

func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req invoice.StatusRequest
	if err := decode(w, r, &req); err != nil {
		writeErr(w, err)
		return
	}
	req.InvoiceID = chi.URLParam(r, "id")
	saved, err := h.svc.UpdateStatus(r.Context(), req)
	h.respond(w, "update_status", saved, err)
}

func (h *Handler) DeleteInvoice(w http.ResponseWriter, r *http.Request) {
	saved, err := h.svc.DeleteInvoice(r.Context(), chi.URLParam(r, "id"))
	h.respond(w, "delete_invoice", saved, err)
}

func (h *Handler) RestoreInvoice(w http.ResponseWriter, r *http.Request) {
	saved, err := h.svc.RestoreInvoice(r.Context(), chi.URLParam(r, "id"))
	h.respond(w, "restore_invoice", saved, err)
}

func (h *Handler) ExportSaved(w http.ResponseWriter, r *http.Request) {
	h.export(w, r, invoice.ExportRequest{
		InvoiceID: chi.URLParam(r, "id"),
		Format:    r.URL.Query().Get("format"),
	})
}

func (h *Handler) ExportInline(w http.ResponseWriter, r *http.Request) {
	var req invoice.ExportRequest
	if err := decode(w, r, &req); err != nil {
		writeErr(w, err)
		return
	}
	if f := r.URL.Query().Get("format"); f != "" {
		req.Format = f
	}
	h.export(w, r, req)
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request, req invoice.ExportRequest) {
	file, err := h.svc.Export(r.Context(), req)
	if err != nil {
		h.respond(w, "export", nil, err)
		return
	}
	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, file.Name))
	w.Header().Set("Content-Length", strconv.Itoa(len(file.Data)))
	if file.ArchiveKey != "" {
		w.Header().Set("X-Archive-Key", file.ArchiveKey)
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(file.Data)
}

func (h *Handler) respond(w http.ResponseWriter, op string, data any, err error) {
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error("http.op.failed", "op", op, "error", err)
		} else {
			h.logger.Warn("http.op.rejected", "op", op, "error", err)
		}
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, data)
}
