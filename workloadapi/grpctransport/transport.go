package grpctransport

import (
	"context"
	"encoding/json"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/edgemesh/spiffekit/spiffeerr"
	"github.com/edgemesh/spiffekit/workloadapi"
)

const (
	methodFetchX509SVID   = "/SPIFFEWorkloadAPI/FetchX509SVID"
	methodFetchJWTSVID    = "/SPIFFEWorkloadAPI/FetchJWTSVID"
	methodFetchJWTBundles = "/SPIFFEWorkloadAPI/FetchJWTBundles"
	methodValidateJWTSVID = "/SPIFFEWorkloadAPI/ValidateJWTSVID"
	workloadHeaderKey     = "workload.spiffe.io"
	workloadHeaderValue   = "true"
)

// Dial connects to the Workload API at addr (already validated by
// workloadapi.ParseAddress) and returns a Transport backed by the
// connection. It matches the dial signature expected by
// workloadapi.New.
func Dial(ctx context.Context, addr string, timeout time.Duration) (workloadapi.Transport, error) {
	dialCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	conn, err := grpc.DialContext(dialCtx, addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(codecName)),
		grpc.WithBlock(),
	)
	if err != nil {
		return nil, err
	}
	return &transport{conn: conn}, nil
}

type transport struct {
	conn *grpc.ClientConn
}

func withWorkloadHeader(ctx context.Context) context.Context {
	return metadata.AppendToOutgoingContext(ctx, workloadHeaderKey, workloadHeaderValue)
}

func (t *transport) Close() error {
	return t.conn.Close()
}

func marshalRaw(v interface{}) (*rawMessage, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return &rawMessage{data: data}, nil
}

// x509Stream adapts a raw gRPC client stream to workloadapi.X509SVIDStream.
type x509Stream struct {
	stream grpc.ClientStream
}

func (s *x509Stream) Recv() (*workloadapi.X509SVIDResponseMessage, error) {
	msg := &rawMessage{}
	if err := s.stream.RecvMsg(msg); err != nil {
		return nil, classifyError(err)
	}
	var resp workloadapi.X509SVIDResponseMessage
	if err := json.Unmarshal(msg.data, &resp); err != nil {
		return nil, spiffeerr.ProtocolError.New("malformed X.509 SVID response: %w", err)
	}
	return &resp, nil
}

func (t *transport) FetchX509SVID(ctx context.Context) (workloadapi.X509SVIDStream, error) {
	ctx = withWorkloadHeader(ctx)
	stream, err := t.conn.NewStream(ctx, &grpc.StreamDesc{ServerStreams: true}, methodFetchX509SVID)
	if err != nil {
		return nil, classifyError(err)
	}
	req, err := marshalRaw(struct{}{})
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(req); err != nil {
		return nil, classifyError(err)
	}
	if err := stream.CloseSend(); err != nil {
		return nil, classifyError(err)
	}
	return &x509Stream{stream: stream}, nil
}

// jwtBundlesStream adapts a raw gRPC client stream to
// workloadapi.JWTBundlesStream.
type jwtBundlesStream struct {
	stream grpc.ClientStream
}

func (s *jwtBundlesStream) Recv() (*workloadapi.JWTBundlesResponseMessage, error) {
	msg := &rawMessage{}
	if err := s.stream.RecvMsg(msg); err != nil {
		return nil, classifyError(err)
	}
	var resp workloadapi.JWTBundlesResponseMessage
	if err := json.Unmarshal(msg.data, &resp); err != nil {
		return nil, spiffeerr.ProtocolError.New("malformed JWT bundles response: %w", err)
	}
	return &resp, nil
}

func (t *transport) FetchJWTBundles(ctx context.Context) (workloadapi.JWTBundlesStream, error) {
	ctx = withWorkloadHeader(ctx)
	stream, err := t.conn.NewStream(ctx, &grpc.StreamDesc{ServerStreams: true}, methodFetchJWTBundles)
	if err != nil {
		return nil, classifyError(err)
	}
	req, err := marshalRaw(struct{}{})
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(req); err != nil {
		return nil, classifyError(err)
	}
	if err := stream.CloseSend(); err != nil {
		return nil, classifyError(err)
	}
	return &jwtBundlesStream{stream: stream}, nil
}

func (t *transport) FetchJWTSVID(ctx context.Context, req workloadapi.FetchJWTSVIDRequestMessage) (*workloadapi.JWTSVIDResponseMessage, error) {
	ctx = withWorkloadHeader(ctx)
	reqMsg, err := marshalRaw(req)
	if err != nil {
		return nil, err
	}
	respMsg := &rawMessage{}
	if err := t.conn.Invoke(ctx, methodFetchJWTSVID, reqMsg, respMsg); err != nil {
		return nil, classifyError(err)
	}
	var resp workloadapi.JWTSVIDResponseMessage
	if err := json.Unmarshal(respMsg.data, &resp); err != nil {
		return nil, spiffeerr.ProtocolError.New("malformed JWT SVID response: %w", err)
	}
	return &resp, nil
}

func (t *transport) ValidateJWTSVID(ctx context.Context, req workloadapi.ValidateJWTSVIDRequestMessage) error {
	ctx = withWorkloadHeader(ctx)
	reqMsg, err := marshalRaw(req)
	if err != nil {
		return err
	}
	respMsg := &rawMessage{}
	if err := t.conn.Invoke(ctx, methodValidateJWTSVID, reqMsg, respMsg); err != nil {
		return classifyError(err)
	}
	return nil
}

// classifyError wraps a gRPC status error as a spiffeerr.ConfigError
// (terminal, not retried) when the server reported INVALID_ARGUMENT, and
// leaves every other error unwrapped so the caller's retry loop treats it
// as a transient TransportError.
func classifyError(err error) error {
	if err == nil {
		return nil
	}
	if status.Code(err) == codes.InvalidArgument {
		return spiffeerr.ConfigError.New("workload API rejected request: %w", err)
	}
	return err
}
