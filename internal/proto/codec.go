// Package proto defines the asset-store RPC surface shared by the client and
// the reference server: message types, the gRPC service descriptor, and the
// "json" codec the service is spoken over.
package proto

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
	gproto "google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/encoding/protojson"
)

// CodecName is the gRPC content subtype of the asset-store service.
const CodecName = "json"

const (
	// defaultMessageSize is the grpc-go receive limit when none is set.
	defaultMessageSize = 4 << 20
	// messageHeadroom covers field names and the short string fields that
	// travel next to the content.
	messageHeadroom = 64 << 10
)

// MaxMessageSize returns the encoded size limit for a request carrying up to
// payload bytes of content. The json codec base64-encodes []byte, which grows
// it by a third. The result never drops below the grpc-go default.
func MaxMessageSize(payload int64) int {
	n := (payload+2)/3*4 + messageHeadroom
	return int(max(n, defaultMessageSize))
}

// Codec encodes protobuf messages with protojson and anything else with
// encoding/json, so plain Go structs can travel over gRPC.
type Codec struct{}

func (Codec) Name() string { return CodecName }

func (Codec) Marshal(v any) ([]byte, error) {
	if m, ok := v.(gproto.Message); ok {
		return protojson.Marshal(m)
	}
	return json.Marshal(v)
}

func (Codec) Unmarshal(data []byte, v any) error {
	if m, ok := v.(gproto.Message); ok {
		return protojson.Unmarshal(data, m)
	}
	return json.Unmarshal(data, v)
}

func init() {
	encoding.RegisterCodec(Codec{})
}
