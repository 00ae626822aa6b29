package mcpclient

import "github.com/dotsetlabs/bellwether/internal/mcptypes"

// SupportedProtocolVersions lists the protocol versions Bellwether offers
// during initialize, most preferred first.
var SupportedProtocolVersions = []string{"2025-06-18", "2025-03-26", "2024-11-05"}

// FeatureFlags records protocol-version-gated capabilities, derived once
// the version is negotiated (§4.3).
type FeatureFlags struct {
	SupportsToolAnnotations   bool
	SupportsTaskNotifications bool
}

func deriveFeatureFlags(version string) FeatureFlags {
	switch version {
	case "2025-06-18", "2025-03-26":
		return FeatureFlags{SupportsToolAnnotations: true, SupportsTaskNotifications: true}
	default:
		return FeatureFlags{SupportsToolAnnotations: false, SupportsTaskNotifications: false}
	}
}

// Session is the negotiated state of one MCP connection (§3). It is
// immutable once Ready flips true, aside from feature-flag-gated fields
// that can never regress within a connection's lifetime.
type Session struct {
	Ready           bool
	ProtocolVersion string
	ServerInfo      mcptypes.Implementation
	Capabilities    mcptypes.ServerCapabilities
	Features        FeatureFlags
}
