// Package key defines the canonical set of configuration identifiers used for centralized settings management.
package key

// Catalog Access - these keys configure the read-only metadata catalog client.
const (
	CatalogBaseURL = "catalog.base_url"
)

// Mirror Access - these keys configure the identity and delivery surface of the mirror network.
const (
	MirrorBaseURL         = "mirror.base_url"
	MirrorProvider        = "mirror.provider"
	MirrorPreferredServer = "mirror.preferred_server"
)

// Proxy Relay - these keys configure the pass-through request relay used to reach the mirror network.
const (
	RelayEnable = "relay.enable"
	RelayURL    = "relay.url"
	RelayToken  = "relay.token"
)

// Episode Resolution - these keys govern how a human-readable title maps onto the mirror namespace.
const (
	ResolveClosestMatch = "resolve.closest_match"
)

// Playback - these keys tune the adaptive playback engine.
const (
	PlaybackStallThreshold = "playback.stall_threshold"
	PlaybackProbeTimeout   = "playback.probe_timeout"
)

// Search Interaction - these keys define the parameters for search discovery.
const (
	SearchShowQuerySuggestions = "search.show_query_suggestions"
	SearchLimit                = "search.limit"
)

// Logging - these keys configure the diagnostic logging backend.
const (
	LogsWrite = "logs.write"
	LogsLevel = "logs.level"
	LogsJson  = "logs.json"
)

// CLI Presentation.
const (
	CliColored   = "cli.colored"
	IconsVariant = "icons.variant"
)
