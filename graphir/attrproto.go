package graphir

import (
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"
)

// AttrsToProto converts a node's scalar/string/bool attribute bag to a
// structpb.Struct, the same representation the target interchange
// format's NodeProto uses for its generic attribute map. Tensor-valued
// attributes (TensorValueAttr) are intentionally excluded: those belong
// on the proto's dedicated tensor field in a real serializer, which is
// out of scope here (spec.md §1 treats serialization as an external
// collaborator) — this helper only exists so the rewriter's emitted
// attributes (direction, hidden_size, ...) can round-trip through the
// same wire representation the rest of the pipeline uses.
func AttrsToProto(attrs map[string]any) (*structpb.Struct, error) {
	fields := make(map[string]*structpb.Value, len(attrs))
	for k, v := range attrs {
		if k == TensorValueAttr {
			continue
		}
		val, err := structpb.NewValue(v)
		if err != nil {
			return nil, fmt.Errorf("graphir: attribute %q: %w", k, err)
		}
		fields[k] = val
	}
	return &structpb.Struct{Fields: fields}, nil
}

// AttrsFromProto is the inverse of AttrsToProto.
func AttrsFromProto(s *structpb.Struct) map[string]any {
	if s == nil {
		return nil
	}
	out := make(map[string]any, len(s.Fields))
	for k, v := range s.Fields {
		out[k] = v.AsInterface()
	}
	return out
}
