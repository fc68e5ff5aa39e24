package rpc

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/dynamicpb"
)

// The qpu.QPU service:
//
//	service QPU {
//	  rpc RunQuantumCircuit(Circuit) returns (CircuitResponse);
//	}
//	message Circuit         { string circuit = 1; int64 pkt_id = 2; }
//	message CircuitResponse { string result = 1; int32 capacity = 2; }
//
// Messages are built from a descriptor at init and carried as dynamicpb
// messages, so the wire format matches any peer compiled from the same proto.
const (
	ServiceName             = "qpu.QPU"
	RunQuantumCircuitMethod = "/qpu.QPU/RunQuantumCircuit"
)

var (
	circuitDesc  protoreflect.MessageDescriptor
	responseDesc protoreflect.MessageDescriptor
)

func init() {
	fd, err := protodesc.NewFile(qpuFileDescriptor(), new(protoregistry.Files))
	if err != nil {
		panic(fmt.Sprintf("rpc: build qpu.proto descriptor: %v", err))
	}
	circuitDesc = fd.Messages().ByName("Circuit")
	responseDesc = fd.Messages().ByName("CircuitResponse")
}

func qpuFileDescriptor() *descriptorpb.FileDescriptorProto {
	field := func(name string, number int32, typ descriptorpb.FieldDescriptorProto_Type, jsonName string) *descriptorpb.FieldDescriptorProto {
		return &descriptorpb.FieldDescriptorProto{
			Name:     proto.String(name),
			Number:   proto.Int32(number),
			Label:    descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
			Type:     typ.Enum(),
			JsonName: proto.String(jsonName),
		}
	}

	return &descriptorpb.FileDescriptorProto{
		Name:    proto.String("qpu.proto"),
		Package: proto.String("qpu"),
		Syntax:  proto.String("proto3"),
		MessageType: []*descriptorpb.DescriptorProto{
			{
				Name: proto.String("Circuit"),
				Field: []*descriptorpb.FieldDescriptorProto{
					field("circuit", 1, descriptorpb.FieldDescriptorProto_TYPE_STRING, "circuit"),
					field("pkt_id", 2, descriptorpb.FieldDescriptorProto_TYPE_INT64, "pktId"),
				},
			},
			{
				Name: proto.String("CircuitResponse"),
				Field: []*descriptorpb.FieldDescriptorProto{
					field("result", 1, descriptorpb.FieldDescriptorProto_TYPE_STRING, "result"),
					field("capacity", 2, descriptorpb.FieldDescriptorProto_TYPE_INT32, "capacity"),
				},
			},
		},
		Service: []*descriptorpb.ServiceDescriptorProto{
			{
				Name: proto.String("QPU"),
				Method: []*descriptorpb.MethodDescriptorProto{
					{
						Name:       proto.String("RunQuantumCircuit"),
						InputType:  proto.String(".qpu.Circuit"),
						OutputType: proto.String(".qpu.CircuitResponse"),
					},
				},
			},
		},
	}
}

// CircuitRequest carries the raw circuit text and its packet identifier.
type CircuitRequest struct {
	Circuit string
	PktID   int64
}

// CircuitResponse carries the JSON-encoded result.
type CircuitResponse struct {
	Result   string
	Capacity int32
}

func (r CircuitRequest) message() *dynamicpb.Message {
	m := dynamicpb.NewMessage(circuitDesc)
	m.Set(circuitDesc.Fields().ByName("circuit"), protoreflect.ValueOfString(r.Circuit))
	m.Set(circuitDesc.Fields().ByName("pkt_id"), protoreflect.ValueOfInt64(r.PktID))
	return m
}

func circuitRequestFrom(m *dynamicpb.Message) CircuitRequest {
	return CircuitRequest{
		Circuit: m.Get(circuitDesc.Fields().ByName("circuit")).String(),
		PktID:   m.Get(circuitDesc.Fields().ByName("pkt_id")).Int(),
	}
}

func (r CircuitResponse) message() *dynamicpb.Message {
	m := dynamicpb.NewMessage(responseDesc)
	m.Set(responseDesc.Fields().ByName("result"), protoreflect.ValueOfString(r.Result))
	m.Set(responseDesc.Fields().ByName("capacity"), protoreflect.ValueOfInt32(r.Capacity))
	return m
}

func circuitResponseFrom(m *dynamicpb.Message) CircuitResponse {
	return CircuitResponse{
		Result:   m.Get(responseDesc.Fields().ByName("result")).String(),
		Capacity: int32(m.Get(responseDesc.Fields().ByName("capacity")).Int()),
	}
}

// QPUClient calls the qpu.QPU service.
type QPUClient interface {
	RunQuantumCircuit(ctx context.Context, in CircuitRequest, opts ...grpc.CallOption) (CircuitResponse, error)
}

type qpuClient struct {
	cc grpc.ClientConnInterface
}

func NewQPUClient(cc grpc.ClientConnInterface) QPUClient {
	return &qpuClient{cc: cc}
}

func (c *qpuClient) RunQuantumCircuit(ctx context.Context, in CircuitRequest, opts ...grpc.CallOption) (CircuitResponse, error) {
	out := dynamicpb.NewMessage(responseDesc)
	if err := c.cc.Invoke(ctx, RunQuantumCircuitMethod, in.message(), out, opts...); err != nil {
		return CircuitResponse{}, err
	}
	return circuitResponseFrom(out), nil
}

// QPUServer is implemented by anything that executes circuits for the
// qpu.QPU service.
type QPUServer interface {
	RunQuantumCircuit(ctx context.Context, in CircuitRequest) (CircuitResponse, error)
}

var qpuServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*QPUServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "RunQuantumCircuit",
			Handler:    runQuantumCircuitHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "qpu.proto",
}

func RegisterQPUServer(s grpc.ServiceRegistrar, srv QPUServer) {
	s.RegisterService(&qpuServiceDesc, srv)
}

func runQuantumCircuitHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := dynamicpb.NewMessage(circuitDesc)
	if err := dec(in); err != nil {
		return nil, err
	}
	handle := func(ctx context.Context, req any) (any, error) {
		resp, err := srv.(QPUServer).RunQuantumCircuit(ctx, circuitRequestFrom(req.(*dynamicpb.Message)))
		if err != nil {
			return nil, err
		}
		return resp.message(), nil
	}
	if interceptor == nil {
		return handle(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: RunQuantumCircuitMethod,
	}
	return interceptor(ctx, in, info, handle)
}
