package config

import "time"

// Lua schema field names and globals
const (
	luaGlobalPipeline     = "pipeline"
	luaFieldName          = "name"
	luaFieldDesc          = "description"
	luaFieldVersion       = "version"
	luaFieldSpecFile      = "spec_file"
	luaFieldRetries       = "retries"
	luaFieldCache         = "cache"
	luaFieldDir           = "dir"
	luaFieldVersioned     = "versioned"
	luaFieldDownload      = "download"
	luaFieldTimeout       = "timeout"
	luaFieldSync          = "sync"
	luaFieldEnv           = "env"
	luaFieldVerify        = "verify"
	luaFieldChecksum      = "checksum"
	luaFieldChecksumsFile = "checksums_file"
	luaFieldPublicKey     = "public_key"
)

// Defaults applied to fields a pipeline definition omits. A definition file
// is itself optional: Default() alone is a runnable configuration.
const (
	DefaultVersion         = "v6.4.1"
	DefaultSpecFile        = "sync_spec.yml"
	DefaultRetries         = 1
	DefaultDownloadTimeout = 5 * time.Minute
	DefaultDownloadRetries = 3
)

// Limits guarding the parser against runaway definitions.
const (
	// MaxConfigSize is the largest pipeline definition ParseString accepts,
	// in bytes.
	MaxConfigSize = 1 << 20

	// MaxRetries caps both the step retry budget and the download retry
	// count.
	MaxRetries = 100

	// MaxEnvCount caps the number of sync.env entries.
	MaxEnvCount = 100

	// MaxNameLength caps the pipeline name.
	MaxNameLength = 256
)
