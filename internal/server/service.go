package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/invoice-drafter/internal/audit"
	"github.com/joseph-ayodele/invoice-drafter/internal/common"
	"github.com/joseph-ayodele/invoice-drafter/internal/entity"
	"github.com/joseph-ayodele/invoice-drafter/internal/pipeline"
	"github.com/joseph-ayodele/invoice-drafter/internal/services/invoice"
)

// ServiceName is the fully qualified gRPC service name. Every method takes and
// returns a google.protobuf.Struct holding the JSON contract.
const ServiceName = "invoicedrafter.v1.InvoiceService"

// InvoiceServer exposes the invoice service over gRPC.
type InvoiceServer struct {
	svc    *invoice.Service
	logger *slog.Logger
}

func NewInvoiceServer(svc *invoice.Service, logger *slog.Logger) *InvoiceServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &InvoiceServer{svc: svc, logger: logger}
}

type invoiceServiceServer interface {
	invoiceService() *invoice.Service
}

func (s *InvoiceServer) invoiceService() *invoice.Service { return s.svc }

// RegisterInvoiceServer registers srv on r.
func RegisterInvoiceServer(r grpc.ServiceRegistrar, srv *InvoiceServer) {
	r.RegisterService(&serviceDesc, srv)
}

type uploadRequest struct {
	Name    string     `json:"name"`
	Content []byte     `json:"content"` // base64 in JSON
	Mode    audit.Mode `json:"mode,omitempty"`
}

type idRequest struct {
	InvoiceID string `json:"invoiceId"`
}

type listRequest struct {
	IncludeDeleted bool `json:"includeDeleted"`
}

type listResponse struct {
	Invoices []*entity.SavedInvoice `json:"invoices"`
}

type invoiceResponse struct {
	Invoice *entity.FinishedInvoice `json:"invoice"`
}

func wrapInvoice(inv *entity.FinishedInvoice, err error) (*invoiceResponse, error) {
	if err != nil {
		return nil, err
	}
	return &invoiceResponse{Invoice: inv}, nil
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*invoiceServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Draft", func(ctx context.Context, s *invoice.Service, req *pipeline.DraftRequest) (any, error) {
			return s.Draft(ctx, *req)
		}),
		unary("DraftUpload", func(ctx context.Context, s *invoice.Service, req *uploadRequest) (any, error) {
			return s.DraftUpload(ctx, invoice.UploadDraftRequest{Name: req.Name, Content: req.Content, Mode: req.Mode})
		}),
		unary("ContinueLaborPricing", func(ctx context.Context, s *invoice.Service, req *pipeline.LaborPricingRequest) (any, error) {
			return s.ContinueLaborPricing(ctx, *req)
		}),
		unary("ContinueDiscount", func(ctx context.Context, s *invoice.Service, req *pipeline.DiscountRequest) (any, error) {
			return s.ContinueDiscount(ctx, *req)
		}),
		unary("ApplyDiscount", func(ctx context.Context, s *invoice.Service, req *invoice.ApplyDiscountRequest) (any, error) {
			return wrapInvoice(s.ApplyDiscount(ctx, *req))
		}),
		unary("EditLineItems", func(ctx context.Context, s *invoice.Service, req *invoice.EditLineItemsRequest) (any, error) {
			return wrapInvoice(s.EditLineItems(ctx, *req))
		}),
		unary("ResolveDecision", func(ctx context.Context, s *invoice.Service, req *invoice.ResolveDecisionRequest) (any, error) {
			return s.ResolveDecision(ctx, *req)
		}),
		unary("Reword", func(ctx context.Context, s *invoice.Service, req *invoice.RewordRequest) (any, error) {
			return wrapInvoice(s.Reword(ctx, *req))
		}),
		unary("SaveInvoice", func(ctx context.Context, s *invoice.Service, req *invoice.SaveRequest) (any, error) {
			return s.SaveInvoice(ctx, *req)
		}),
		unary("UpdateInvoice", func(ctx context.Context, s *invoice.Service, req *invoice.UpdateRequest) (any, error) {
			return s.UpdateInvoice(ctx, *req)
		}),
		unary("ListInvoices", func(ctx context.Context, s *invoice.Service, req *listRequest) (any, error) {
			out, err := s.ListInvoices(ctx, req.IncludeDeleted)
			if err != nil {
				return nil, err
			}
			return &listResponse{Invoices: out}, nil
		}),
		unary("GetInvoice", func(ctx context.Context, s *invoice.Service, req *idRequest) (any, error) {
			return s.GetInvoice(ctx, req.InvoiceID)
		}),
		unary("UpdateInvoiceStatus", func(ctx context.Context, s *invoice.Service, req *invoice.StatusRequest) (any, error) {
			return s.UpdateStatus(ctx, *req)
		}),
		unary("DeleteInvoice", func(ctx context.Context, s *invoice.Service, req *idRequest) (any, error) {
			return s.DeleteInvoice(ctx, req.InvoiceID)
		}),
		unary("RestoreInvoice", func(ctx context.Context, s *invoice.Service, req *idRequest) (any, error) {
			return s.RestoreInvoice(ctx, req.InvoiceID)
		}),
		unary("ExportInvoice", func(ctx context.Context, s *invoice.Service, req *invoice.ExportRequest) (any, error) {
			return s.Export(ctx, *req)
		}),
	},
	Streams: []grpc.StreamDesc{},
}

// unary builds a method whose Struct request decodes into Req and whose result
// is encoded back into a Struct. Errors map onto gRPC status codes.
func unary[Req any](name string, call func(ctx context.Context, s *invoice.Service, req *Req) (any, error)) grpc.MethodDesc {
	fullMethod := "/" + ServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			handler := func(ctx context.Context, raw any) (any, error) {
				s := srv.(*InvoiceServer)
				start := time.Now()
				rid := uuid.New().String()
				ctx = common.WithRequestID(ctx, rid)

				var req Req
				if err := fromStruct(raw.(*structpb.Struct), &req); err != nil {
					s.logger.Warn("grpc.request.invalid", "method", name, "error", err)
					return nil, common.InvalidArgumentErrorf("decode %s request: %v", name, err)
				}
				out, err := call(ctx, s.svc, &req)
				if err != nil {
					s.logger.Warn("grpc.request.failed", "method", name, "req_id", rid, "error", err, "duration_ms", time.Since(start).Milliseconds())
					return nil, common.ToGRPCError(err)
				}
				resp, err := toStruct(out)
				if err != nil {
					s.logger.Error("grpc.response.encode_failed", "method", name, "error", err)
					return nil, common.InternalError("encode response")
				}
				s.logger.Info("grpc.request.ok", "method", name, "req_id", rid, "duration_ms", time.Since(start).Milliseconds())
				return resp, nil
			}
			if interceptor == nil {
				return handler(ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			return interceptor(ctx, in, info, handler)
		},
	}
}
