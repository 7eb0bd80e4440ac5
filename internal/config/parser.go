package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cqflow/cqflow/internal/platform"
	lua "github.com/yuin/gopher-lua"
)

// Parser represents a Lua pipeline definition parser with platform detection.
type Parser struct {
	detector platform.Detector
	logger   Logger
}

// NewParser creates a new definition parser with the given platform detector.
// A nil detector disables the platform table inside the Lua VM.
func NewParser(detector platform.Detector) *Parser {
	return &Parser{detector: detector, logger: defaultLogger()}
}

// WithLogger sets the logger used for parse diagnostics and returns the
// parser for chaining.
func (p *Parser) WithLogger(logger Logger) *Parser {
	if logger != nil {
		p.logger = logger
	}
	return p
}

// ParseString parses a Lua pipeline definition from a string.
// This is useful for testing and in-memory definitions.
func (p *Parser) ParseString(ctx context.Context, luaCode string) (*Config, error) {
	if len(luaCode) > MaxConfigSize {
		return nil, &ParseError{
			Message: "pipeline definition too large",
			Detail:  fmt.Sprintf("%d bytes, maximum is %d", len(luaCode), MaxConfigSize),
		}
	}

	L := newSandboxedVM()
	defer L.Close()

	// Interrupt long-running Lua code when the caller gives up.
	L.SetContext(ctx)

	// Detect platform and inject platform table
	if p.detector != nil {
		platformInfo, err := p.detector.Detect(ctx)
		if err != nil {
			return nil, fmt.Errorf("platform detection failed: %w", err)
		}
		if err := platform.InjectPlatformTable(L, platformInfo); err != nil {
			return nil, fmt.Errorf("inject platform table: %w", err)
		}
	}

	// Execute Lua code
	if err := L.DoString(luaCode); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &ParseError{
			Message: "Lua syntax error",
			Detail:  err.Error(),
		}
	}

	config, err := extractConfig(L)
	if err != nil {
		return nil, err
	}

	p.logger.Debug("parsed pipeline definition",
		"name", config.Name,
		"version", config.Version,
		"spec_file", config.SpecFile)

	return config, nil
}

// ParseFile parses a Lua pipeline definition from disk. Relative spec_file
// and verify.public_key values are resolved against the definition file's
// directory, so a definition works the same from any working directory.
func (p *Parser) ParseFile(ctx context.Context, path string) (*Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("read pipeline definition %s: %w", path, err)
	}
	if info.Size() > MaxConfigSize {
		return nil, &ParseError{
			Message: "pipeline definition too large",
			Detail:  fmt.Sprintf("%s is %d bytes, maximum is %d", path, info.Size(), MaxConfigSize),
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pipeline definition %s: %w", path, err)
	}

	config, err := p.ParseString(ctx, string(data))
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(path)
	if !filepath.IsAbs(config.SpecFile) {
		config.SpecFile = filepath.Join(dir, config.SpecFile)
	}
	if config.Verify.PublicKey != "" && !filepath.IsAbs(config.Verify.PublicKey) {
		config.Verify.PublicKey = filepath.Join(dir, config.Verify.PublicKey)
	}

	return config, nil
}

// ParseError represents a definition parsing error with a friendly message.
type ParseError struct {
	Message string // User-friendly message
	Detail  string // Technical details (raw Lua error)
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Message, e.Detail)
}

// extractConfig extracts the pipeline definition from a Lua state.
// It expects a global "pipeline" table and starts from Default(), so fields
// the table omits keep their default values.
func extractConfig(L *lua.LState) (*Config, error) {
	pipelineTable := L.GetGlobal(luaGlobalPipeline)
	if pipelineTable.Type() != lua.LTTable {
		return nil, &ParseError{
			Message: "missing or invalid 'pipeline' table",
			Detail:  fmt.Sprintf("expected table, got %s", pipelineTable.Type()),
		}
	}

	config := Default()
	table := pipelineTable.(*lua.LTable)

	extractRoot(table, config)

	if cacheVal := table.RawGetString(luaFieldCache); cacheVal.Type() == lua.LTTable {
		config.Cache = extractCache(cacheVal.(*lua.LTable), config.Cache)
	}

	if downloadVal := table.RawGetString(luaFieldDownload); downloadVal.Type() == lua.LTTable {
		download, err := extractDownload(downloadVal.(*lua.LTable), config.Download)
		if err != nil {
			return nil, err
		}
		config.Download = download
	}

	if syncVal := table.RawGetString(luaFieldSync); syncVal.Type() == lua.LTTable {
		sync, err := extractSync(syncVal.(*lua.LTable), config.Sync)
		if err != nil {
			return nil, err
		}
		config.Sync = sync
	}

	if verifyVal := table.RawGetString(luaFieldVerify); verifyVal.Type() == lua.LTTable {
		config.Verify = extractVerify(verifyVal.(*lua.LTable), config.Verify)
	}

	// Validate the extracted definition
	if err := config.Validate(); err != nil {
		return nil, &ParseError{
			Message: "config validation failed",
			Detail:  err.Error(),
		}
	}

	return config, nil
}

// extractRoot extracts the scalar top-level fields.
func extractRoot(table *lua.LTable, config *Config) {
	if nameVal := table.RawGetString(luaFieldName); nameVal.Type() == lua.LTString {
		config.Name = nameVal.String()
	}

	if descVal := table.RawGetString(luaFieldDesc); descVal.Type() == lua.LTString {
		config.Description = descVal.String()
	}

	if versionVal := table.RawGetString(luaFieldVersion); versionVal.Type() == lua.LTString {
		config.Version = versionVal.String()
	}

	if specVal := table.RawGetString(luaFieldSpecFile); specVal.Type() == lua.LTString {
		config.SpecFile = specVal.String()
	}

	if retriesVal := table.RawGetString(luaFieldRetries); retriesVal.Type() == lua.LTNumber {
		config.Retries = int(lua.LVAsNumber(retriesVal))
	}
}

// extractCache extracts cache settings from a Lua table.
func extractCache(table *lua.LTable, cache CacheOptions) CacheOptions {
	if dirVal := table.RawGetString(luaFieldDir); dirVal.Type() == lua.LTString {
		cache.Dir = dirVal.String()
	}

	if versionedVal := table.RawGetString(luaFieldVersioned); versionedVal.Type() == lua.LTBool {
		cache.Versioned = bool(versionedVal.(lua.LBool))
	}

	return cache
}

// extractDownload extracts download settings from a Lua table.
func extractDownload(table *lua.LTable, download DownloadOptions) (DownloadOptions, error) {
	if timeoutVal := table.RawGetString(luaFieldTimeout); timeoutVal.Type() != lua.LTNil {
		timeout, err := extractDuration(timeoutVal, "download.timeout")
		if err != nil {
			return download, err
		}
		download.Timeout = timeout
	}

	if retriesVal := table.RawGetString(luaFieldRetries); retriesVal.Type() == lua.LTNumber {
		download.Retries = int(lua.LVAsNumber(retriesVal))
	}

	return download, nil
}

// extractSync extracts sync settings from a Lua table.
func extractSync(table *lua.LTable, sync SyncOptions) (SyncOptions, error) {
	if timeoutVal := table.RawGetString(luaFieldTimeout); timeoutVal.Type() != lua.LTNil {
		timeout, err := extractDuration(timeoutVal, "sync.timeout")
		if err != nil {
			return sync, err
		}
		sync.Timeout = timeout
	}

	if envVal := table.RawGetString(luaFieldEnv); envVal.Type() == lua.LTTable {
		env := make(map[string]string)
		envVal.(*lua.LTable).ForEach(func(key, value lua.LValue) {
			if key.Type() != lua.LTString {
				return
			}
			// Numbers and booleans stringify naturally (PORT = 8080).
			switch value.Type() {
			case lua.LTString, lua.LTNumber, lua.LTBool:
				env[key.String()] = value.String()
			}
		})
		if len(env) > 0 {
			sync.Env = env
		}
	}

	return sync, nil
}

// extractVerify extracts verification settings from a Lua table.
func extractVerify(table *lua.LTable, verify VerifyOptions) VerifyOptions {
	if checksumVal := table.RawGetString(luaFieldChecksum); checksumVal.Type() == lua.LTString {
		verify.Checksum = checksumVal.String()
	}

	if fileVal := table.RawGetString(luaFieldChecksumsFile); fileVal.Type() == lua.LTBool {
		verify.ChecksumsFile = bool(fileVal.(lua.LBool))
	}

	if keyVal := table.RawGetString(luaFieldPublicKey); keyVal.Type() == lua.LTString {
		verify.PublicKey = keyVal.String()
	}

	return verify
}

// extractDuration reads a duration that may be written as a Lua string
// accepted by time.ParseDuration ("5m", "90s") or as a number of seconds.
func extractDuration(value lua.LValue, field string) (time.Duration, error) {
	switch value.Type() {
	case lua.LTString:
		d, err := time.ParseDuration(value.String())
		if err != nil {
			return 0, &ValidationError{
				Field:   field,
				Message: fmt.Sprintf("invalid duration %q", value.String()),
			}
		}
		return d, nil
	case lua.LTNumber:
		seconds := float64(lua.LVAsNumber(value))
		return time.Duration(seconds * float64(time.Second)), nil
	default:
		return 0, &ValidationError{
			Field:   field,
			Message: fmt.Sprintf("duration must be a string or a number of seconds, got %s", value.Type()),
		}
	}
}

// FormatError formats a ParseError for user display.
// In verbose mode, show the raw Lua error. Otherwise, show friendly message.
func FormatError(err error, verbose bool) string {
	if parseErr, ok := err.(*ParseError); ok {
		if verbose {
			return fmt.Sprintf("%s\n\nDetails:\n%s", parseErr.Message, parseErr.Detail)
		}
		// Extract the most relevant part of the error
		detail := parseErr.Detail
		if idx := strings.Index(detail, "stack traceback"); idx > 0 {
			detail = strings.TrimSpace(detail[:idx])
		}
		return fmt.Sprintf("%s: %s", parseErr.Message, detail)
	}
	return err.Error()
}
