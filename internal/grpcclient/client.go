package grpcclient

import (
	"context"
	"errors"
	"io"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/textcamera/textcamera/internal/grpcapi"
	"github.com/textcamera/textcamera/internal/trace"

	apperrors "github.com/textcamera/textcamera/internal/errors"
)

// Config holds connection settings.
type Config struct {
	KeepaliveTime    time.Duration
	KeepaliveTimeout time.Duration
	CallTimeout      time.Duration
}

// DefaultConfig returns the default connection settings.
func DefaultConfig() Config {
	return Config{
		KeepaliveTime:    DefaultKeepaliveTime,
		KeepaliveTimeout: DefaultKeepaliveTimeout,
		CallTimeout:      DefaultCallTimeout,
	}
}

// Client wraps a connection to the mosaic service
type Client struct {
	conn *grpc.ClientConn
	cfg  Config
}

// New creates a client for addr. Extra dial options are appended after the
// defaults.
func New(addr string, cfg Config, opts ...grpc.DialOption) (*Client, error) {
	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                cfg.KeepaliveTime,
			Timeout:             cfg.KeepaliveTimeout,
			PermitWithoutStream: true,
		}),
		grpc.WithUnaryInterceptor(trace.UnaryClientInterceptor()),
		grpc.WithStreamInterceptor(trace.StreamClientInterceptor()),
	}, opts...)

	conn, err := grpc.NewClient(addr, dialOpts...)
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.CodeUnavailable, "dial %s", addr)
	}
	return &Client{conn: conn, cfg: cfg}, nil
}

// Close closes the gRPC connection
func (c *Client) Close() error {
	return c.conn.Close()
}

// Latest fetches the current mosaic text.
func (c *Client) Latest(ctx context.Context) (string, error) {
	if c.cfg.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.CallTimeout)
		defer cancel()
	}
	out := new(wrapperspb.StringValue)
	if err := c.conn.Invoke(ctx, grpcapi.LatestMethod, &emptypb.Empty{}, out); err != nil {
		return "", apperrors.FromGRPCError(err)
	}
	return out.GetValue(), nil
}

var watchDesc = &grpc.StreamDesc{StreamName: "Watch", ServerStreams: true}

// Watch calls onFrame for the current mosaic and every newer one. It returns
// nil when ctx ends or the server closes the stream.
func (c *Client) Watch(ctx context.Context, onFrame func(string)) error {
	stream, err := c.conn.NewStream(ctx, watchDesc, grpcapi.WatchMethod)
	if err != nil {
		return apperrors.FromGRPCError(err)
	}
	if err := stream.SendMsg(&emptypb.Empty{}); err != nil {
		return apperrors.FromGRPCError(err)
	}
	if err := stream.CloseSend(); err != nil {
		return apperrors.FromGRPCError(err)
	}

	for {
		msg := new(wrapperspb.StringValue)
		err := stream.RecvMsg(msg)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return apperrors.FromGRPCError(err)
		}
		onFrame(msg.GetValue())
	}
}
