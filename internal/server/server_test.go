package server

import (
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/invoice-drafter/constants"
	"github.com/joseph-ayodele/invoice-drafter/internal/audit"
	"github.com/joseph-ayodele/invoice-drafter/internal/common"
	"github.com/joseph-ayodele/invoice-drafter/internal/entity"
	"github.com/joseph-ayodele/invoice-drafter/internal/export"
	"github.com/joseph-ayodele/invoice-drafter/internal/extract"
	"github.com/joseph-ayodele/invoice-drafter/internal/llm/llmtest"
	"github.com/joseph-ayodele/invoice-drafter/internal/pipeline"
	"github.com/joseph-ayodele/invoice-drafter/internal/repository"
	"github.com/joseph-ayodele/invoice-drafter/internal/services/invoice"
)

const faucetParse = `{"customerName":"Dana","workSessions":[{"tasks":[{"description":"Fixed faucet leak"}]}]}`

func startServer(t *testing.T) *Client {
	t.Helper()
	ctx := context.Background()

	fake := &llmtest.Scripted{}
	fake.Route = func(prompt string) (llmtest.Reply, bool) {
		if strings.Contains(prompt, "structured invoice draft") {
			return llmtest.Reply{Text: faucetParse}, true
		}
		return llmtest.Reply{Text: `{"assumptions":[],"decisions":[],"unparsedLines":[]}`}, true
	}
	pipe := pipeline.NewService(nil, pipeline.Config{AuditTimeout: time.Second}, fake)

	db, err := repository.Open(ctx, repository.Config{Driver: repository.DriverSQLite, Path: ":memory:"}, nil)
	require.NoError(t, err)
	require.NoError(t, repository.Migrate(ctx, db, nil))
	repo := repository.NewInvoiceRepository(db, nil)

	svc := invoice.NewService(pipe, repo, export.NewService(nil, nil), extract.NewExtractor(extract.Config{}, nil), nil)
	gs, _ := NewGRPCServer(NewInvoiceServer(svc, nil), nil)

	lis := bufconn.Listen(1 << 20)
	go func() { _ = gs.Serve(lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = conn.Close()
		gs.Stop()
		repo.Close(context.Background())
		db.Close(nil)
	})
	return NewClient(conn)
}

func TestInvoiceService_DraftSaveExport(t *testing.T) {
	c := startServer(t)
	ctx := context.Background()

	var res pipeline.Result
	require.NoError(t, c.Call(ctx, "Draft", pipeline.DraftRequest{
		SourceText: "Fixed faucet leak (2 hours @ $80/hr).",
		Mode:       audit.ModeFast,
	}, &res))
	assert.Equal(t, pipeline.StageReady, res.Stage)
	require.NotNil(t, res.Invoice)
	assert.Equal(t, 160.0, res.Invoice.Total)
	assert.Equal(t, "Dana", res.Invoice.CustomerName)

	var saved entity.SavedInvoice
	require.NoError(t, c.Call(ctx, "SaveInvoice", invoice.SaveRequest{Invoice: res.Invoice}, &saved))
	assert.NotEmpty(t, saved.InvoiceID)
	assert.Equal(t, constants.InvoiceStatusDraft, saved.Status)

	var list listResponse
	require.NoError(t, c.Call(ctx, "ListInvoices", listRequest{}, &list))
	require.Len(t, list.Invoices, 1)

	var deleted entity.SavedInvoice
	require.NoError(t, c.Call(ctx, "DeleteInvoice", idRequest{InvoiceID: saved.InvoiceID}, &deleted))
	assert.Equal(t, constants.InvoiceStatusDeleted, deleted.Status)

	require.NoError(t, c.Call(ctx, "ListInvoices", listRequest{}, &list))
	assert.Empty(t, list.Invoices)

	var restored entity.SavedInvoice
	require.NoError(t, c.Call(ctx, "RestoreInvoice", idRequest{InvoiceID: saved.InvoiceID}, &restored))
	assert.Equal(t, constants.InvoiceStatusDraft, restored.Status)

	var file export.File
	require.NoError(t, c.Call(ctx, "ExportInvoice", invoice.ExportRequest{InvoiceID: saved.InvoiceID, Format: "pdf"}, &file))
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, strings.HasPrefix(string(file.Data), "%PDF-"))
}

func TestInvoiceService_ErrorCodes(t *testing.T) {
	c := startServer(t)
	ctx := context.Background()

	err := c.Call(ctx, "Draft", pipeline.DraftRequest{SourceText: "   "}, &pipeline.Result{})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	err = c.Call(ctx, "GetInvoice", idRequest{InvoiceID: "missing"}, &entity.SavedInvoice{})
	assert.Equal(t, codes.NotFound, status.Code(err))

	err = c.Call(ctx, "UpdateInvoiceStatus", invoice.StatusRequest{InvoiceID: "x", Status: "archived"}, &entity.SavedInvoice{})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	err = c.Call(ctx, "NoSuchMethod", idRequest{}, nil)
	assert.Equal(t, codes.Unimplemented, status.Code(err))
}

func TestInvoiceService_DraftUpload(t *testing.T) {
	c := startServer(t)

	var res invoice.UploadDraftResponse
	require.NoError(t, c.Call(context.Background(), "DraftUpload", uploadRequest{
		Name:    "notes.txt",
		Content: []byte("Fixed faucet leak (2 hours @ $80/hr)."),
		Mode:    audit.ModeFast,
	}, &res))
	assert.Equal(t, "Fixed faucet leak (2 hours @ $80/hr).", res.SourceText)
	require.NotNil(t, res.Result)
	assert.Equal(t, 160.0, res.Invoice.Total)

	err := c.Call(context.Background(), "DraftUpload", uploadRequest{Name: "photo.heic", Content: []byte("x")}, &res)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestHealth(t *testing.T) {
	c := startServer(t)
	hc := healthpb.NewHealthClient(c.cc)
	resp, err := hc.Check(context.Background(), &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
}

func TestStructRoundTrip(t *testing.T) {
	st, err := toStruct(invoice.StatusRequest{InvoiceID: "a", Status: "paid"})
	require.NoError(t, err)
	assert.Equal(t, "paid", st.GetFields()["status"].GetStringValue())

	var back invoice.StatusRequest
	require.NoError(t, fromStruct(st, &back))
	assert.Equal(t, "a", back.InvoiceID)
}

func TestFromStructCoercesInvoice(t *testing.T) {
	st, err := structpb.NewStruct(map[string]any{
		"invoice": map[string]any{
			"currency":  "usd",
			"lineItems": []any{map[string]any{"id": "line_1", "type": "Parts", "description": "Pipe", "amount": "$12"}},
		},
	})
	require.NoError(t, err)

	var req invoice.SaveRequest
	require.NoError(t, fromStruct(st, &req))
	require.NotNil(t, req.Invoice)
	assert.Equal(t, "USD", req.Invoice.Currency)
	assert.Equal(t, 12.0, *req.Invoice.LineItems[0].Amount)

	st, err = structpb.NewStruct(map[string]any{
		"invoice": map[string]any{"lineItems": []any{map[string]any{"type": "mileage", "description": "Drive"}}},
	})
	require.NoError(t, err)
	assert.ErrorIs(t, fromStruct(st, &req), common.ErrValidation)
}
