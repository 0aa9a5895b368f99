package config

// Application constants
const (
	AppName    = "seasonalcli"
	AppVersion = "1.0.0"

	// Bundled binary layout: <BinaryDir>/<platform>/bin/<BinaryName>[.exe]
	DefaultBinaryDir = "x13binary"
	BinaryName       = "x13ashtml"

	// Limits
	DefaultMaxRecords        = 100000
	DefaultMaxConcurrentRuns = 2
	DefaultRateLimit         = 10 // requests per second
	DefaultBurstSize         = 20

	DefaultLogsDir = "logs"
)
