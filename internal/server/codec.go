package server

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/invoice-drafter/internal/entity"
)

// toStruct converts a JSON-tagged Go value into a google.protobuf.Struct.
// v must encode as a JSON object.
func toStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode response: %w", err)
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(b, out); err != nil {
		return nil, fmt.Errorf("encode response: %w", err)
	}
	return out, nil
}

// fromStruct decodes a google.protobuf.Struct into a JSON-tagged Go value.
// Embedded invoices are coerced with entity.CoerceRequest first.
func fromStruct(in *structpb.Struct, v any) error {
	raw := in.AsMap()
	if err := entity.CoerceRequest(raw); err != nil {
		return err
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("decode request: %w", err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decode request: %w", err)
	}
	return nil
}
