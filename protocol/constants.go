package protocol

// MCPVersion is the protocol revision this server negotiates.
const MCPVersion = "2024-11-05"

// Methods served by the currency server.
const (
	MethodInitialize  = "initialize"
	MethodInitialized = "notifications/initialized"
	MethodCancelled   = "notifications/cancelled"
	MethodToolsList   = "tools/list"
	MethodToolsCall   = "tools/call"
	MethodPing        = "ping"
)

// ContentTypeText is the only content block type produced by tools.
const ContentTypeText = "text"
