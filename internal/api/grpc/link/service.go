package link

import (
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	// ServiceName is the fully qualified gRPC service name.
	ServiceName = "alarmpanel.v1.SensorLink"
	// ClockFullMethod is the method path of the per-round stream.
	ClockFullMethod = "/" + ServiceName + "/Clock"
)

// ClockStream is the server view of one round.
type ClockStream = grpc.BidiStreamingServer[wrapperspb.BytesValue, wrapperspb.BytesValue]

// SensorLinkServer is the server API of the Sensor Link service.
type SensorLinkServer interface {
	Clock(stream ClockStream) error
}

// ServiceDesc describes the Sensor Link service for registration and stream creation.
//
//nolint:gochecknoglobals // Mirrors generated gRPC descriptors.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SensorLinkServer)(nil),
	Methods:     []grpc.MethodDesc{},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Clock",
			Handler:       clockHandler,
			ServerStreams: true,
			ClientStreams: true,
		},
	},
	Metadata: "alarmpanel/v1/sensor_link.proto",
}

// RegisterSensorLinkServer registers srv on the gRPC server.
func RegisterSensorLinkServer(s grpc.ServiceRegistrar, srv SensorLinkServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func clockHandler(srv any, stream grpc.ServerStream) error {
	return srv.(SensorLinkServer).Clock( //nolint:forcetypeassert // Guaranteed by HandlerType.
		&grpc.GenericServerStream[wrapperspb.BytesValue, wrapperspb.BytesValue]{ServerStream: stream},
	)
}
