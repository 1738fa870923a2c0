// Package grpcapi exposes the latest mosaic over gRPC.
package grpcapi

import (
	"context"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/textcamera/textcamera/internal/orchestrator"
	"github.com/textcamera/textcamera/internal/trace"

	apperrors "github.com/textcamera/textcamera/internal/errors"
)

// Full method names.
const (
	ServiceName  = "textcamera.Mosaic"
	LatestMethod = "/" + ServiceName + "/Latest"
	WatchMethod  = "/" + ServiceName + "/Watch"
)

// Camera is the part of orchestrator.Manager the service reads.
type Camera interface {
	Latest() (orchestrator.Frame, bool)
	Wait(ctx context.Context, after uint64) (orchestrator.Frame, error)
}

// MosaicServer is the server API for the textcamera.Mosaic service.
type MosaicServer interface {
	Latest(context.Context, *emptypb.Empty) (*wrapperspb.StringValue, error)
	Watch(*emptypb.Empty, grpc.ServerStreamingServer[wrapperspb.StringValue]) error
}

// Service implements MosaicServer on top of a Camera.
type Service struct {
	cam Camera
}

// NewService creates a Service.
func NewService(cam Camera) *Service {
	return &Service{cam: cam}
}

// Register adds the service to s.
func Register(s grpc.ServiceRegistrar, srv MosaicServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// Latest returns the current mosaic text, NotFound before the first frame.
func (s *Service) Latest(_ context.Context, _ *emptypb.Empty) (*wrapperspb.StringValue, error) {
	f, ok := s.cam.Latest()
	if !ok {
		return nil, apperrors.New(apperrors.CodeNotFound, "no frame rendered yet").GRPCStatus().Err()
	}
	return wrapperspb.String(f.Mosaic.Text()), nil
}

// Watch streams the current mosaic, then every newer one, until the client
// goes away.
func (s *Service) Watch(_ *emptypb.Empty, stream grpc.ServerStreamingServer[wrapperspb.StringValue]) error {
	ctx := stream.Context()
	log := trace.Logger(ctx)

	var seq uint64
	if f, ok := s.cam.Latest(); ok {
		if err := stream.Send(wrapperspb.String(f.Mosaic.Text())); err != nil {
			return err
		}
		seq = f.Seq
	}

	for {
		f, err := s.cam.Wait(ctx, seq)
		if err != nil {
			if ctx.Err() != nil {
				log.Debug("watch ended", "seq", seq)
				return nil
			}
			return toStatus(err)
		}
		if err := stream.Send(wrapperspb.String(f.Mosaic.Text())); err != nil {
			return err
		}
		seq = f.Seq
	}
}

func toStatus(err error) error {
	var ae *apperrors.AppError
	if errors.As(err, &ae) {
		return ae.GRPCStatus().Err()
	}
	return apperrors.Wrap(err, apperrors.CodeInternal, "watch failed").GRPCStatus().Err()
}

func _Mosaic_Latest_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MosaicServer).Latest(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: LatestMethod,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(MosaicServer).Latest(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func _Mosaic_Watch_Handler(srv any, stream grpc.ServerStream) error {
	m := new(emptypb.Empty)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(MosaicServer).Watch(m, &grpc.GenericServerStream[emptypb.Empty, wrapperspb.StringValue]{ServerStream: stream})
}

// ServiceDesc describes textcamera.Mosaic without generated code; the
// messages are protobuf well-known types.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*MosaicServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Latest",
			Handler:    _Mosaic_Latest_Handler,
		},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Watch",
			Handler:       _Mosaic_Watch_Handler,
			ServerStreams: true,
		},
	},
	Metadata: "textcamera/mosaic.proto",
}
