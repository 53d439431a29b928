// Package rpc registers hand-described gRPC services whose messages are
// google.protobuf.Struct values, and converts between those and Go structs.
package rpc

import (
	"context"
	"encoding/json"
	"sort"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

type UnaryMethod func(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)

// Service is implemented by every handler registered with Register.
type Service interface {
	Methods() map[string]UnaryMethod
}

// Register adds svc to s under the fully qualified serviceName.
func Register(s grpc.ServiceRegistrar, serviceName string, svc Service) {
	methods := svc.Methods()
	names := make([]string, 0, len(methods))
	for name := range methods {
		names = append(names, name)
	}
	sort.Strings(names)

	desc := grpc.ServiceDesc{
		ServiceName: serviceName,
		HandlerType: (*Service)(nil),
		Streams:     []grpc.StreamDesc{},
		Metadata:    "omnipos/pricing/v1/pricing.proto",
	}
	for _, name := range names {
		desc.Methods = append(desc.Methods, grpc.MethodDesc{
			MethodName: name,
			Handler:    unaryHandler("/"+serviceName+"/"+name, methods[name]),
		})
	}
	s.RegisterService(&desc, svc)
}

func unaryHandler(fullMethod string, fn UnaryMethod) grpc.MethodHandler {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return fn(ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return fn(ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// Decode fills dst from a Struct using dst's json tags.
func Decode(req *structpb.Struct, dst interface{}) error {
	if req == nil {
		req = &structpb.Struct{}
	}
	raw, err := protojson.Marshal(req)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}

// Encode turns v into a Struct using v's json tags.
func Encode(v interface{}) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(raw, out); err != nil {
		return nil, err
	}
	return out, nil
}
