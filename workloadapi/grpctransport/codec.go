// Package grpctransport is the default, gRPC-backed implementation of
// workloadapi.Transport. It speaks to a Workload API endpoint over a
// Unix domain socket or TCP connection, attaching the mandatory
// "workload.spiffe.io: true" metadata header to every call.
//
// It does not depend on protoc-generated stubs for the Workload API
// service; instead it exchanges length-delimited, codec-encoded
// workloadapi.*Message values directly over gRPC's generic streaming
// primitives. Hosts that already vendor the official workload.proto
// stubs should supply their own workloadapi.Transport instead of using
// this package.
package grpctransport

import (
	"fmt"

	"google.golang.org/grpc/encoding"
)

const codecName = "spiffekit-json"

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// rawMessage is the only type the grpc codec above knows how to
// (de)serialize; it carries a JSON-encoded workloadapi.*Message payload.
type rawMessage struct {
	data []byte
}

// jsonCodec marshals rawMessage values as their already-encoded bytes and
// is registered under a dedicated content subtype so it never collides
// with a host application's own proto codec.
type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error) {
	msg, ok := v.(*rawMessage)
	if !ok {
		return nil, fmt.Errorf("grpctransport: unsupported message type %T", v)
	}
	return msg.data, nil
}

func (jsonCodec) Unmarshal(data []byte, v interface{}) error {
	msg, ok := v.(*rawMessage)
	if !ok {
		return fmt.Errorf("grpctransport: unsupported message type %T", v)
	}
	msg.data = append([]byte(nil), data...)
	return nil
}

func (jsonCodec) Name() string { return codecName }
