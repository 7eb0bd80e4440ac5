package config

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Generator generates Lua pipeline definitions from Go structs.
type Generator struct {
	indent string // Indentation string (default: two spaces)
}

// NewGenerator creates a new Lua definition generator.
func NewGenerator() *Generator {
	return &Generator{
		indent: "  ", // Two spaces
	}
}

// Generate generates Lua code from a Config struct. Fields still at their
// default values are elided; parsing the output restores them, so the
// result round-trips through Parser.ParseString.
func (g *Generator) Generate(config *Config) (string, error) {
	var buf bytes.Buffer

	// Write header comment
	buf.WriteString("-- cqflow pipeline definition\n")
	buf.WriteString("-- Generated: ")
	buf.WriteString(time.Now().Format(time.RFC3339))
	buf.WriteString("\n\n")

	buf.WriteString("pipeline = {\n")

	if config.Name != "" {
		buf.WriteString(fmt.Sprintf("%sname = %s,\n", g.indent, g.quoteLuaString(config.Name)))
	}
	if config.Description != "" {
		buf.WriteString(fmt.Sprintf("%sdescription = %s,\n", g.indent, g.quoteLuaString(config.Description)))
	}

	buf.WriteString(fmt.Sprintf("%sversion = %s,\n", g.indent, g.quoteLuaString(config.Version)))
	buf.WriteString(fmt.Sprintf("%sspec_file = %s,\n", g.indent, g.quoteLuaString(config.SpecFile)))

	if config.Retries != DefaultRetries {
		buf.WriteString(fmt.Sprintf("%sretries = %d,\n", g.indent, config.Retries))
	}

	if config.Cache.Dir != "" || config.Cache.Versioned {
		g.writeCache(&buf, config.Cache)
	}

	if config.Download.Timeout != DefaultDownloadTimeout || config.Download.Retries != DefaultDownloadRetries {
		g.writeDownload(&buf, config.Download)
	}

	if config.Sync.Timeout != 0 || len(config.Sync.Env) > 0 {
		g.writeSync(&buf, config.Sync)
	}

	if config.Verify != (VerifyOptions{}) {
		g.writeVerify(&buf, config.Verify)
	}

	buf.WriteString("}\n")

	return buf.String(), nil
}

// writeCache writes the cache section to the buffer.
func (g *Generator) writeCache(buf *bytes.Buffer, cache CacheOptions) {
	buf.WriteString(g.indent)
	buf.WriteString("cache = {\n")

	if cache.Dir != "" {
		buf.WriteString(fmt.Sprintf("%s%sdir = %s,\n", g.indent, g.indent, g.quoteLuaString(cache.Dir)))
	}
	if cache.Versioned {
		buf.WriteString(fmt.Sprintf("%s%sversioned = true,\n", g.indent, g.indent))
	}

	buf.WriteString(g.indent)
	buf.WriteString("},\n")
}

// writeDownload writes the download section to the buffer.
func (g *Generator) writeDownload(buf *bytes.Buffer, download DownloadOptions) {
	buf.WriteString(g.indent)
	buf.WriteString("download = {\n")

	if download.Timeout != DefaultDownloadTimeout {
		buf.WriteString(fmt.Sprintf("%s%stimeout = %s,\n", g.indent, g.indent, g.quoteLuaString(download.Timeout.String())))
	}
	if download.Retries != DefaultDownloadRetries {
		buf.WriteString(fmt.Sprintf("%s%sretries = %d,\n", g.indent, g.indent, download.Retries))
	}

	buf.WriteString(g.indent)
	buf.WriteString("},\n")
}

// writeSync writes the sync section to the buffer.
func (g *Generator) writeSync(buf *bytes.Buffer, sync SyncOptions) {
	buf.WriteString(g.indent)
	buf.WriteString("sync = {\n")

	if sync.Timeout != 0 {
		buf.WriteString(fmt.Sprintf("%s%stimeout = %s,\n", g.indent, g.indent, g.quoteLuaString(sync.Timeout.String())))
	}

	if len(sync.Env) > 0 {
		buf.WriteString(g.indent)
		buf.WriteString(g.indent)
		buf.WriteString("env = {\n")

		// Sorted for deterministic output
		names := make([]string, 0, len(sync.Env))
		for name := range sync.Env {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			buf.WriteString(fmt.Sprintf("%s%s%s%s = %s,\n",
				g.indent, g.indent, g.indent, name, g.quoteLuaString(sync.Env[name])))
		}

		buf.WriteString(g.indent)
		buf.WriteString(g.indent)
		buf.WriteString("},\n")
	}

	buf.WriteString(g.indent)
	buf.WriteString("},\n")
}

// writeVerify writes the verify section to the buffer.
func (g *Generator) writeVerify(buf *bytes.Buffer, verify VerifyOptions) {
	buf.WriteString(g.indent)
	buf.WriteString("verify = {\n")

	if verify.Checksum != "" {
		buf.WriteString(fmt.Sprintf("%s%schecksum = %s,\n", g.indent, g.indent, g.quoteLuaString(verify.Checksum)))
	}
	if verify.ChecksumsFile {
		buf.WriteString(fmt.Sprintf("%s%schecksums_file = true,\n", g.indent, g.indent))
	}
	if verify.PublicKey != "" {
		buf.WriteString(fmt.Sprintf("%s%spublic_key = %s,\n", g.indent, g.indent, g.quoteLuaString(verify.PublicKey)))
	}

	buf.WriteString(g.indent)
	buf.WriteString("},\n")
}

// Scaffold renders a commented starter definition for `cqflow init`. The
// output parses as-is and documents the optional blocks without enabling
// them.
func (g *Generator) Scaffold(name string) string {
	var buf bytes.Buffer

	buf.WriteString("-- cqflow pipeline definition\n")
	buf.WriteString("-- Run with: cqflow run --config pipeline.lua\n\n")

	buf.WriteString("pipeline = {\n")
	buf.WriteString(fmt.Sprintf("%sname = %s,\n\n", g.indent, g.quoteLuaString(name)))

	buf.WriteString(g.indent + "-- cloudquery release tag to fetch.\n")
	buf.WriteString(fmt.Sprintf("%sversion = %s,\n\n", g.indent, g.quoteLuaString(DefaultVersion)))

	buf.WriteString(g.indent + "-- Sync spec passed to `cloudquery sync`, relative to this file.\n")
	buf.WriteString(fmt.Sprintf("%sspec_file = %s,\n\n", g.indent, g.quoteLuaString(DefaultSpecFile)))

	buf.WriteString(g.indent + "-- Retries per pipeline step.\n")
	buf.WriteString(fmt.Sprintf("%sretries = %d,\n\n", g.indent, DefaultRetries))

	buf.WriteString(g.indent + "-- cache = {\n")
	buf.WriteString(g.indent + "--   dir = \"/var/cache/cqflow\",\n")
	buf.WriteString(g.indent + "--   versioned = true,\n")
	buf.WriteString(g.indent + "-- },\n\n")

	buf.WriteString(g.indent + "-- sync = {\n")
	buf.WriteString(g.indent + "--   timeout = \"30m\",\n")
	buf.WriteString(g.indent + "--   env = { CQ_ENV = \"prod\" },\n")
	buf.WriteString(g.indent + "-- },\n\n")

	buf.WriteString(g.indent + "-- verify = {\n")
	buf.WriteString(g.indent + "--   checksums_file = true,\n")
	buf.WriteString(g.indent + "-- },\n\n")

	buf.WriteString(g.indent + "-- Platform conditionals are available, e.g.:\n")
	buf.WriteString(g.indent + "--   spec_file = platform.is_windows and \"win_spec.yml\" or \"sync_spec.yml\",\n")
	buf.WriteString("}\n")

	return buf.String()
}

// quoteLuaString quotes a string for Lua, handling special characters.
func (g *Generator) quoteLuaString(s string) string {
	// Use double quotes and escape special characters
	s = strings.ReplaceAll(s, "\\", "\\\\") // Escape backslashes first
	s = strings.ReplaceAll(s, "\"", "\\\"") // Escape double quotes
	s = strings.ReplaceAll(s, "\n", "\\n")  // Escape newlines
	s = strings.ReplaceAll(s, "\r", "\\r")  // Escape carriage returns
	s = strings.ReplaceAll(s, "\t", "\\t")  // Escape tabs
	return "\"" + s + "\""
}
