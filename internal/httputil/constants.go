// Package httputil defines HTTP related constants.
package httputil

// HTTP header constants - standard headers plus the headers the dbt platform
// APIs rely on.
const (
	// ContentTypeHeader is the HTTP Content-Type header
	ContentTypeHeader = "Content-Type"

	// AcceptHeader is the HTTP Accept header
	AcceptHeader = "Accept"

	// AuthorizationHeader is the HTTP Authorization header
	AuthorizationHeader = "Authorization"

	// SessionIDHeader carries the session token correlating HTTP exchanges
	SessionIDHeader = "Mcp-Session-Id"

	// PartnerSourceHeader marks requests as originating from this integration
	PartnerSourceHeader = "X-Dbt-Partner-Source"

	// ProdEnvironmentIDHeader carries the production environment ID
	ProdEnvironmentIDHeader = "X-Dbt-Prod-Environment-Id"

	// DevEnvironmentIDHeader carries the development environment ID
	DevEnvironmentIDHeader = "X-Dbt-Dev-Environment-Id"

	// UserIDHeader carries the dbt platform user ID
	UserIDHeader = "X-Dbt-User-Id"
)

// Content type constants - supported response content types
const (
	// ContentTypeJSON is the JSON content type
	ContentTypeJSON = "application/json"

	// ContentTypeSSE is the Server-Sent Events (SSE) content type
	ContentTypeSSE = "text/event-stream"
)

// PartnerSource identifies this module to the dbt platform.
const PartnerSource = "dbt-mcp"
