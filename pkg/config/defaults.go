package config

// Upstream defaults.
const (
	DefaultUpstreamOrg    = "OCA"
	DefaultUpstreamRemote = "origin"
)

// Cache defaults.
const (
	DefaultCacheEnabled  = true
	DefaultCacheCompress = true
	DefaultCacheLRUSize  = 4096
)

// GitHub defaults.
const (
	DefaultGitHubTokenEnv = "GITHUB_TOKEN"
	DefaultGitHubAPIURL   = ""
)

// Logging defaults.
const (
	DefaultLogLevel = "info"
	DefaultLogJSON  = false
)

// DefaultBlacklistEnvFile names the variable pointing at a fallback blacklist.
const DefaultBlacklistEnvFile = "BLACKLIST_FILE"
