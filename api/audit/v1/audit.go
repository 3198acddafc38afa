// Package auditv1 defines the farkoosh.audit.v1.AuditService gRPC contract.
package auditv1

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/Zaid-daoud/Farkoosh-Backend/api/grpcjson"
)

const (
	ServiceName                               = "farkoosh.audit.v1.AuditService"
	AuditService_ListAuditLogs_FullMethodName = "/" + ServiceName + "/ListAuditLogs"
)

// ListAuditLogsRequest lists the caller's audit trail; UserID selects another principal and requires ADMIN.
type ListAuditLogsRequest struct {
	UserID string `json:"user_id,omitempty"`
	Limit  int32  `json:"limit,omitempty"`
}

type AuditLog struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id,omitempty"`
	Action    string    `json:"action"`
	Resource  string    `json:"resource"`
	IP        string    `json:"ip"`
	Metadata  string    `json:"metadata,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type ListAuditLogsResponse struct {
	Logs []*AuditLog `json:"logs"`
}

// AuditServiceServer is the server API for AuditService.
type AuditServiceServer interface {
	ListAuditLogs(context.Context, *ListAuditLogsRequest) (*ListAuditLogsResponse, error)
}

// UnimplementedAuditServiceServer returns codes.Unimplemented for every method.
type UnimplementedAuditServiceServer struct{}

func (UnimplementedAuditServiceServer) ListAuditLogs(context.Context, *ListAuditLogsRequest) (*ListAuditLogsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListAuditLogs not implemented")
}

// AuditService_ServiceDesc is the grpc.ServiceDesc for AuditService.
var AuditService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AuditServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListAuditLogs", Handler: grpcjson.UnaryHandler(AuditService_ListAuditLogs_FullMethodName, AuditServiceServer.ListAuditLogs)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "audit/v1/audit",
}

// RegisterAuditServiceServer registers srv with s.
func RegisterAuditServiceServer(s grpc.ServiceRegistrar, srv AuditServiceServer) {
	s.RegisterService(&AuditService_ServiceDesc, srv)
}

// AuditServiceClient is the client API for AuditService.
type AuditServiceClient interface {
	ListAuditLogs(ctx context.Context, in *ListAuditLogsRequest, opts ...grpc.CallOption) (*ListAuditLogsResponse, error)
}

type auditServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewAuditServiceClient returns a client that calls AuditService over cc with the JSON codec.
func NewAuditServiceClient(cc grpc.ClientConnInterface) AuditServiceClient {
	return &auditServiceClient{cc: cc}
}

func (c *auditServiceClient) ListAuditLogs(ctx context.Context, in *ListAuditLogsRequest, opts ...grpc.CallOption) (*ListAuditLogsResponse, error) {
	return grpcjson.Invoke[ListAuditLogsResponse](ctx, c.cc, AuditService_ListAuditLogs_FullMethodName, in, opts...)
}
