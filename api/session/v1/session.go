// Package sessionv1 defines the farkoosh.session.v1.SessionService gRPC contract.
package sessionv1

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/Zaid-daoud/Farkoosh-Backend/api/grpcjson"
)

const (
	ServiceName                                 = "farkoosh.session.v1.SessionService"
	SessionService_ListSessions_FullMethodName  = "/" + ServiceName + "/ListSessions"
	SessionService_RevokeSession_FullMethodName = "/" + ServiceName + "/RevokeSession"
)

// ListSessionsRequest lists the caller's sessions; UserID selects another principal and requires ADMIN.
type ListSessionsRequest struct {
	UserID string `json:"user_id,omitempty"`
}

type Session struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	DeviceInfo string    `json:"device_info"`
	PushToken  string    `json:"push_token,omitempty"`
	ExpiresAt  time.Time `json:"expires_at"`
	CreatedAt  time.Time `json:"created_at"`
}

type ListSessionsResponse struct {
	Sessions []*Session `json:"sessions"`
}

type RevokeSessionRequest struct {
	SessionID string `json:"session_id"`
}

type RevokeSessionResponse struct{}

// SessionServiceServer is the server API for SessionService.
type SessionServiceServer interface {
	ListSessions(context.Context, *ListSessionsRequest) (*ListSessionsResponse, error)
	RevokeSession(context.Context, *RevokeSessionRequest) (*RevokeSessionResponse, error)
}

// UnimplementedSessionServiceServer returns codes.Unimplemented for every method.
type UnimplementedSessionServiceServer struct{}

func (UnimplementedSessionServiceServer) ListSessions(context.Context, *ListSessionsRequest) (*ListSessionsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListSessions not implemented")
}

func (UnimplementedSessionServiceServer) RevokeSession(context.Context, *RevokeSessionRequest) (*RevokeSessionResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method RevokeSession not implemented")
}

// SessionService_ServiceDesc is the grpc.ServiceDesc for SessionService.
var SessionService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SessionServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListSessions", Handler: grpcjson.UnaryHandler(SessionService_ListSessions_FullMethodName, SessionServiceServer.ListSessions)},
		{MethodName: "RevokeSession", Handler: grpcjson.UnaryHandler(SessionService_RevokeSession_FullMethodName, SessionServiceServer.RevokeSession)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "session/v1/session",
}

// RegisterSessionServiceServer registers srv with s.
func RegisterSessionServiceServer(s grpc.ServiceRegistrar, srv SessionServiceServer) {
	s.RegisterService(&SessionService_ServiceDesc, srv)
}

// SessionServiceClient is the client API for SessionService.
type SessionServiceClient interface {
	ListSessions(ctx context.Context, in *ListSessionsRequest, opts ...grpc.CallOption) (*ListSessionsResponse, error)
	RevokeSession(ctx context.Context, in *RevokeSessionRequest, opts ...grpc.CallOption) (*RevokeSessionResponse, error)
}

type sessionServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewSessionServiceClient returns a client that calls SessionService over cc with the JSON codec.
func NewSessionServiceClient(cc grpc.ClientConnInterface) SessionServiceClient {
	return &sessionServiceClient{cc: cc}
}

func (c *sessionServiceClient) ListSessions(ctx context.Context, in *ListSessionsRequest, opts ...grpc.CallOption) (*ListSessionsResponse, error) {
	return grpcjson.Invoke[ListSessionsResponse](ctx, c.cc, SessionService_ListSessions_FullMethodName, in, opts...)
}

func (c *sessionServiceClient) RevokeSession(ctx context.Context, in *RevokeSessionRequest, opts ...grpc.CallOption) (*RevokeSessionResponse, error) {
	return grpcjson.Invoke[RevokeSessionResponse](ctx, c.cc, SessionService_RevokeSession_FullMethodName, in, opts...)
}
