package config

// Transport name constants accepted by ServerConfig.Transport (§6).
const (
	TransportStdio          = "stdio"
	TransportSSE            = "sse"
	TransportStreamableHTTP = "streamable-http"
	TransportHTTP           = "http"
)
