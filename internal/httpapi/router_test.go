package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-drafter/constants"
	"github.com/joseph-ayodele/invoice-drafter/internal/entity"
	"github.com/joseph-ayodele/invoice-drafter/internal/export"
	"github.com/joseph-ayodele/invoice-drafter/internal/extract"
	"github.com/joseph-ayodele/invoice-drafter/internal/llm/llmtest"
	"github.com/joseph-ayodele/invoice-drafter/internal/pipeline"
	"github.com/joseph-ayodele/invoice-drafter/internal/repository"
	"github.com/joseph-ayodele/invoice-drafter/internal/services/invoice"
)

func newTestServer(t *testing.T, parseJSON string) *httptest.Server {
	t.Helper()
	ctx := context.Background()

	fake := &llmtest.Scripted{}
	fake.Route = func(prompt string) (llmtest.Reply, bool) {
		if strings.Contains(prompt, "structured invoice draft") {
			return llmtest.Reply{Text: parseJSON}, true
		}
		return llmtest.Reply{Text: `{"assumptions":[],"decisions":[],"unparsedLines":[]}`}, true
	}
	pipe := pipeline.NewService(nil, pipeline.Config{AuditTimeout: time.Second}, fake)

	db, err := repository.Open(ctx, repository.Config{Driver: repository.DriverSQLite, Path: ":memory:"}, nil)
	require.NoError(t, err)
	require.NoError(t, repository.Migrate(ctx, db, nil))
	repo := repository.NewInvoiceRepository(db, nil)

	svc := invoice.NewService(pipe, repo, export.NewService(nil, nil), extract.NewExtractor(extract.Config{}, nil), nil)
	srv := httptest.NewServer(NewRouter(svc, nil))
	t.Cleanup(func() {
		srv.Close()
		repo.Close(context.Background())
		db.Close(nil)
	})
	return srv
}

func doJSON(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, rd)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestDraftAndLaborPricingFlow(t *testing.T) {
	srv := newTestServer(t, `{"workSessions":[{"date":"Mon","tasks":[{"description":"Replaced valve"},{"description":"Patched drywall"}]}]}`)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/drafts", map[string]any{
		"sourceText": "Mon: replaced valve, patched drywall",
		"mode":       "fast",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var res pipeline.Result
	decodeBody(t, resp, &res)
	assert.True(t, res.NeedsFollowUp)
	require.NotNil(t, res.FollowUp)
	assert.Equal(t, pipeline.FollowUpLaborPricing, res.FollowUp.Type)

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/v1/drafts/labor-pricing", map[string]any{
		"sourceText":        "Mon: replaced valve, patched drywall",
		"structuredInvoice": res.StructuredInvoice,
		"pricing":           map[string]any{"mode": "flat", "amount": 80},
		"mode":              "fast",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var done pipeline.Result
	decodeBody(t, resp, &done)
	assert.False(t, done.NeedsFollowUp)
	require.NotNil(t, done.Invoice)
	assert.Equal(t, 80.0, done.Invoice.Total)
}

func TestErrorStatusCodes(t *testing.T) {
	srv := newTestServer(t, `{"workSessions":[]}`)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/drafts", map[string]any{"sourceText": ""})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var e errorResponse
	decodeBody(t, resp, &e)
	assert.NotEmpty(t, e.Error)

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/v1/invoices/missing", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/v1/invoices", map[string]any{
		"invoice": map[string]any{"currency": "USD", "lineItems": []any{}},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/api/v1/drafts", strings.NewReader("{not json"))
	raw, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = raw.Body.Close() }()
	assert.Equal(t, http.StatusBadRequest, raw.StatusCode)
}

func TestSavedInvoiceLifecycleAndExport(t *testing.T) {
	srv := newTestServer(t, `{"workSessions":[]}`)
	amt := 160.0
	inv := entity.FinishedInvoice{
		InvoiceNumber: "INV-1",
		Currency:      "USD",
		LineItems: []entity.LineItem{
			{ID: "line_1", Type: constants.LineTypeLabor, Description: "Fixed faucet", Amount: &amt},
		},
		Subtotal: 160, Total: 160, BalanceDue: 160,
	}

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/invoices", map[string]any{"invoice": inv})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var saved entity.SavedInvoice
	decodeBody(t, resp, &saved)
	require.NotEmpty(t, saved.InvoiceID)

	resp = doJSON(t, http.MethodPatch, srv.URL+"/api/v1/invoices/"+saved.InvoiceID+"/status", map[string]any{"status": "paid"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var paid entity.SavedInvoice
	decodeBody(t, resp, &paid)
	assert.Equal(t, constants.InvoiceStatusPaid, paid.Status)

	resp = doJSON(t, http.MethodDelete, srv.URL+"/api/v1/invoices/"+saved.InvoiceID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/v1/invoices?includeDeleted=true", nil)
	var list struct {
		Invoices []entity.SavedInvoice `json:"invoices"`
	}
	decodeBody(t, resp, &list)
	require.Len(t, list.Invoices, 1)
	assert.Equal(t, constants.InvoiceStatusDeleted, list.Invoices[0].Status)
	assert.Equal(t, constants.InvoiceStatusPaid, list.Invoices[0].PreviousStatus)

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/v1/invoices/"+saved.InvoiceID+"/restore", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/v1/invoices/"+saved.InvoiceID+"/export?format=xlsx", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "INV-1.xlsx")
}

func TestRequestBodiesAreCoerced(t *testing.T) {
	srv := newTestServer(t, `{"workSessions":[]}`)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/invoices", map[string]any{
		"invoice": map[string]any{
			"invoiceNumber": "INV-7",
			"currency":      "usd",
			"lineItems": []any{
				map[string]any{"id": "line_1", "type": "Parts", "description": "Pipe", "quantity": "2", "unitPrice": "$6", "amount": "12"},
			},
			"subtotal": "12", "total": 12, "balanceDue": 12,
		},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var saved entity.SavedInvoice
	decodeBody(t, resp, &saved)
	require.Len(t, saved.Invoice.LineItems, 1)
	assert.Equal(t, "USD", saved.Invoice.Currency)
	assert.Equal(t, constants.LineTypeMaterial, saved.Invoice.LineItems[0].Type)
	assert.Equal(t, 2.0, *saved.Invoice.LineItems[0].Quantity)
	assert.Equal(t, 12.0, saved.Invoice.Total)

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/v1/drafts/labor-pricing", map[string]any{
		"structuredInvoice": map[string]any{
			"workSessions": []any{map[string]any{"tasks": []any{map[string]any{"description": "Fixed faucet"}}}},
			"materials":    []any{map[string]any{"description": "Washer", "quantity": "2", "unitCost": "$6"}},
		},
		"pricing": map[string]any{"mode": "flat", "amount": 80},
		"mode":    "fast",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/v1/invoices", map[string]any{
		"invoice": map[string]any{
			"currency":  "USD",
			"lineItems": []any{map[string]any{"id": "line_1", "type": "mileage", "description": "Drive", "amount": 10}},
		},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/v1/edits/line-items", map[string]any{
		"invoice": map[string]any{
			"currency":  "USD",
			"lineItems": []any{map[string]any{"id": "line_1", "description": "Drive", "amount": 10}},
		},
		"lineItems": []any{map[string]any{"id": "line_1", "description": "Drive", "amount": "two"}},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestDraftUpload(t *testing.T) {
	srv := newTestServer(t, `{"workSessions":[{"tasks":[{"description":"Fixed faucet leak"}]}]}`)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "notes.md")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("Fixed faucet leak (2 hours @ $80/hr)."))
	require.NoError(t, mw.WriteField("mode", "fast"))
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/v1/drafts/upload", &body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out invoice.UploadDraftResponse
	decodeBody(t, resp, &out)
	assert.Equal(t, "Fixed faucet leak (2 hours @ $80/hr).", out.SourceText)
	require.NotNil(t, out.Result)
	assert.Equal(t, 160.0, out.Invoice.Total)
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, `{}`)
	resp := doJSON(t, http.MethodGet, srv.URL+"/healthz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
