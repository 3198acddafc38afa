package audit

import "strings"

// ActionResource holds action and resource derived from a gRPC full method name.
type ActionResource struct {
	Action   string
	Resource string
}

const sessionRevoke = "/farkoosh.session.v1.SessionService/RevokeSession"

// ParseFullMethod returns action and resource for a gRPC full method (e.g. /farkoosh.session.v1.SessionService/ListSessions).
// Action is a verb: get, list, revoke, login, refresh, or a lowercase method name for others.
// Resource is derived from the service name (e.g. SessionService -> session).
// RevokeSession is mapped to session_revoked so interceptor rows line up with the service's own audit rows.
func ParseFullMethod(fullMethod string) ActionResource {
	if fullMethod == sessionRevoke {
		return ActionResource{Action: ActionSessionRevoked, Resource: ResourceSession}
	}
	// fullMethod format: /farkoosh.package.v1.ServiceName/MethodName
	slash := strings.LastIndex(fullMethod, "/")
	if slash < 0 {
		return ActionResource{Action: "unknown", Resource: "unknown"}
	}
	method := fullMethod[slash+1:]
	beforeSlash := fullMethod[:slash]
	dot := strings.LastIndex(beforeSlash, ".")
	if dot < 0 {
		return ActionResource{Action: strings.ToLower(method), Resource: "unknown"}
	}
	return ActionResource{Action: methodToAction(method), Resource: serviceToResource(beforeSlash[dot+1:])}
}

func serviceToResource(serviceName string) string {
	s := strings.TrimSuffix(serviceName, "Service")
	if s == "" {
		return "unknown"
	}
	return strings.ToLower(s[0:1]) + s[1:]
}

func methodToAction(method string) string {
	switch {
	case strings.HasPrefix(method, "Get") && method != "Get":
		return "get"
	case strings.HasPrefix(method, "List"):
		return "list"
	case strings.HasPrefix(method, "Register"):
		return "register"
	case strings.HasPrefix(method, "Login"):
		return "login"
	case strings.HasPrefix(method, "Refresh"):
		return "refresh"
	case strings.HasPrefix(method, "Revoke"):
		return "revoke"
	case strings.HasPrefix(method, "Delete"):
		return "delete"
	default:
		return strings.ToLower(method)
	}
}
