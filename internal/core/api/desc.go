package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "wordloom.v1.GrammarService"

// Full method names, as seen by interceptors.
const (
	GenerateMethod     = "/" + ServiceName + "/Generate"
	ValidateMethod     = "/" + ServiceName + "/Validate"
	AnalyzeMethod      = "/" + ServiceName + "/Analyze"
	ListGrammarsMethod = "/" + ServiceName + "/ListGrammars"
)

// GrammarServer is the server API for the grammar service. Every message is
// a google.protobuf.Struct; field names are documented on the request types
// in messages.go.
type GrammarServer interface {
	Generate(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Validate(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Analyze(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListGrammars(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// GrammarServiceDesc describes the service for grpc.Server.RegisterService.
var GrammarServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*GrammarServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Generate", Handler: unaryHandler(GenerateMethod, GrammarServer.Generate)},
		{MethodName: "Validate", Handler: unaryHandler(ValidateMethod, GrammarServer.Validate)},
		{MethodName: "Analyze", Handler: unaryHandler(AnalyzeMethod, GrammarServer.Analyze)},
		{MethodName: "ListGrammars", Handler: unaryHandler(ListGrammarsMethod, GrammarServer.ListGrammars)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "wordloom/v1/grammar.proto",
}

// RegisterGrammarServer registers srv on s.
func RegisterGrammarServer(s grpc.ServiceRegistrar, srv GrammarServer) {
	s.RegisterService(&GrammarServiceDesc, srv)
}

type unaryMethod func(GrammarServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

// unaryHandler adapts a method expression to grpc's handler signature.
func unaryHandler(fullMethod string, method unaryMethod) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return method(srv.(GrammarServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return method(srv.(GrammarServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// GrammarClient calls the grammar service.
type GrammarClient struct {
	cc grpc.ClientConnInterface
}

// NewGrammarClient wraps a client connection.
func NewGrammarClient(cc grpc.ClientConnInterface) *GrammarClient {
	return &GrammarClient{cc: cc}
}

func (c *GrammarClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// Generate expands text against a grammar.
func (c *GrammarClient) Generate(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, GenerateMethod, in, opts...)
}

// Validate reports missing, circular and empty rules.
func (c *GrammarClient) Validate(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, ValidateMethod, in, opts...)
}

// Analyze reports complexity and outcome probabilities.
func (c *GrammarClient) Analyze(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, AnalyzeMethod, in, opts...)
}

// ListGrammars lists the caller's stored grammars.
func (c *GrammarClient) ListGrammars(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, ListGrammarsMethod, in, opts...)
}
