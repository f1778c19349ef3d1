package transport

import (
	"context"
	"fmt"

	"github.com/coreswarm/swarm/eventloop"
	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
)

// codecName is registered with grpc's encoding package so every Exchange
// stream moves raw framed payloads with no protobuf descriptor in sight:
// the master and each worker already agree on the wire format via
// swarm/wire, so there is nothing for a .proto schema to add.
const codecName = "swarmbytes"

func init() {
	encoding.RegisterCodec(bytesCodec{})
}

type bytesCodec struct{}

func (bytesCodec) Name() string { return codecName }

func (bytesCodec) Marshal(v any) ([]byte, error) {
	p, ok := v.(*[]byte)
	if !ok {
		return nil, fmt.Errorf("transport: bytesCodec.Marshal: unexpected type %T", v)
	}
	return *p, nil
}

func (bytesCodec) Unmarshal(data []byte, v any) error {
	p, ok := v.(*[]byte)
	if !ok {
		return fmt.Errorf("transport: bytesCodec.Unmarshal: unexpected type %T", v)
	}
	*p = append((*p)[:0], data...)
	return nil
}

// ServiceName and MethodName identify the single bidi-streaming RPC every
// GRPCChannel rides: one Exchange stream per worker connection, carrying
// the same message payloads a PipeChannel would, just without the 8-byte
// length prefix (grpc already frames each SendMsg/RecvMsg).
const (
	ServiceName = "swarm.transport.Channel"
	MethodName  = "Exchange"
	FullMethod  = "/" + ServiceName + "/" + MethodName
)

// streamDesc describes the Exchange RPC for the client dial path
// (ClientConn.NewStream); RegisterChannelServer builds an equivalent
// description of its own for the server side.
var streamDesc = grpc.StreamDesc{
	StreamName:    MethodName,
	ServerStreams: true,
	ClientStreams: true,
}

// grpcStream is the subset of grpc.ClientStream / grpc.ServerStream that
// GRPCChannel needs; satisfied by both.
type grpcStream interface {
	SendMsg(m any) error
	RecvMsg(m any) error
}

// GRPCChannel adapts a bidi-streaming gRPC stream, client or server side,
// to the Channel contract.
type GRPCChannel struct {
	loop   *eventloop.Loop
	stream grpcStream
}

// NewGRPCClientChannel dials the Exchange RPC on cc and wraps the
// resulting client stream.
func NewGRPCClientChannel(ctx context.Context, cc *grpc.ClientConn, loop *eventloop.Loop) (*GRPCChannel, error) {
	stream, err := cc.NewStream(ctx, &streamDesc, FullMethod, grpc.CallContentSubtype(codecName))
	if err != nil {
		return nil, fmt.Errorf("transport: dial %s: %w", FullMethod, err)
	}
	return &GRPCChannel{loop: loop, stream: stream}, nil
}

// NewGRPCServerChannel wraps an in-handler grpc.ServerStream, as received
// by the handler registered via RegisterChannelServer.
func NewGRPCServerChannel(stream grpc.ServerStream, loop *eventloop.Loop) *GRPCChannel {
	return &GRPCChannel{loop: loop, stream: stream}
}

// RegisterChannelServer registers the Exchange RPC on s. accept is called
// once per incoming stream (once per worker connection) on whatever
// goroutine grpc-go chose to run the handler; it normally constructs a
// GRPCChannel via NewGRPCServerChannel and hands it to a swarm/master
// Manager, then blocks on a done channel until the worker disconnects
// (grpc-go tears down the stream as soon as the handler returns).
func RegisterChannelServer(s *grpc.Server, accept func(stream grpc.ServerStream)) {
	s.RegisterService(&grpc.ServiceDesc{
		ServiceName: ServiceName,
		HandlerType: (*any)(nil),
		Streams: []grpc.StreamDesc{
			{
				StreamName: MethodName,
				Handler: func(srv any, stream grpc.ServerStream) error {
					accept(stream)
					return nil
				},
				ServerStreams: true,
				ClientStreams: true,
			},
		},
	}, nil)
}

func (c *GRPCChannel) Read(handler func(payload []byte, err error)) {
	go func() {
		var buf []byte
		err := c.stream.RecvMsg(&buf)
		c.loop.Post(func() {
			if err != nil {
				handler(nil, translateGRPCErr(err))
				return
			}
			handler(buf, nil)
		})
	}()
}

func (c *GRPCChannel) Write(payload []byte, completion func(err error)) {
	go func() {
		err := c.stream.SendMsg(&payload)
		c.loop.Post(func() {
			completion(translateGRPCErr(err))
		})
	}()
}

// Close is a no-op for a server-side GRPCChannel (the stream ends when
// the registered handler returns) and is not meaningful for a client
// stream either, since grpc.ClientStream has no direct Close: callers
// cancel the dialing context instead.
func (c *GRPCChannel) Close() error { return nil }

func translateGRPCErr(err error) error {
	if err == nil {
		return nil
	}
	// io.EOF (clean end of stream) and any other RecvMsg/SendMsg error are
	// both treated as a closed channel; handle_error's io-kind case does
	// not need to distinguish further (spec §7).
	return fmt.Errorf("%w: %v", ErrClosed, err)
}
