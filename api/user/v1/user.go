// Package userv1 defines the farkoosh.user.v1.UserService gRPC contract.
package userv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	authv1 "github.com/Zaid-daoud/Farkoosh-Backend/api/auth/v1"
	"github.com/Zaid-daoud/Farkoosh-Backend/api/grpcjson"
)

const (
	ServiceName                        = "farkoosh.user.v1.UserService"
	UserService_GetUser_FullMethodName = "/" + ServiceName + "/GetUser"
)

// GetUserRequest reads the caller's principal; UserID selects another principal and requires ADMIN.
type GetUserRequest struct {
	UserID string `json:"user_id,omitempty"`
}

type GetUserResponse struct {
	User *authv1.User `json:"user"`
}

// UserServiceServer is the server API for UserService.
type UserServiceServer interface {
	GetUser(context.Context, *GetUserRequest) (*GetUserResponse, error)
}

// UnimplementedUserServiceServer returns codes.Unimplemented for every method.
type UnimplementedUserServiceServer struct{}

func (UnimplementedUserServiceServer) GetUser(context.Context, *GetUserRequest) (*GetUserResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetUser not implemented")
}

// UserService_ServiceDesc is the grpc.ServiceDesc for UserService.
var UserService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*UserServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetUser", Handler: grpcjson.UnaryHandler(UserService_GetUser_FullMethodName, UserServiceServer.GetUser)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "user/v1/user",
}

// RegisterUserServiceServer registers srv with s.
func RegisterUserServiceServer(s grpc.ServiceRegistrar, srv UserServiceServer) {
	s.RegisterService(&UserService_ServiceDesc, srv)
}

// UserServiceClient is the client API for UserService.
type UserServiceClient interface {
	GetUser(ctx context.Context, in *GetUserRequest, opts ...grpc.CallOption) (*GetUserResponse, error)
}

type userServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewUserServiceClient returns a client that calls UserService over cc with the JSON codec.
func NewUserServiceClient(cc grpc.ClientConnInterface) UserServiceClient {
	return &userServiceClient{cc: cc}
}

func (c *userServiceClient) GetUser(ctx context.Context, in *GetUserRequest, opts ...grpc.CallOption) (*GetUserResponse, error) {
	return grpcjson.Invoke[GetUserResponse](ctx, c.cc, UserService_GetUser_FullMethodName, in, opts...)
}
