package server

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// Client calls InvoiceService methods with JSON-tagged Go values.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Call invokes method (e.g. "ListInvoices") with req and decodes the reply into resp.
func (c *Client) Call(ctx context.Context, method string, req, resp any, opts ...grpc.CallOption) error {
	in, err := toStruct(req)
	if err != nil {
		return err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return err
	}
	if resp == nil {
		return nil
	}
	return fromStruct(out, resp)
}
