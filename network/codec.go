package network

import (
	"fmt"

	"github.com/mezonai/blockworker/jsonx"
	"google.golang.org/grpc/encoding"
)

// codecName is the gRPC content-subtype the worker and master exchange messages with.
const codecName = "json"

// jsonCodec carries the plain Go message structs over gRPC without generated protobuf code.
type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error) {
	data, err := jsonx.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("json codec marshal %T: %w", v, err)
	}
	return data, nil
}

func (jsonCodec) Unmarshal(data []byte, v interface{}) error {
	if err := jsonx.Unmarshal(data, v); err != nil {
		return fmt.Errorf("json codec unmarshal %T: %w", v, err)
	}
	return nil
}

func (jsonCodec) Name() string {
	return codecName
}

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
