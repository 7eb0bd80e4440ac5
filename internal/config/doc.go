// Package config parses Lua pipeline definitions for cqflow.
//
// # Overview
//
// A pipeline definition describes one fetch-and-sync run: which cloudquery
// release to fetch, where to cache it, how to verify it, and how to invoke
// sync. Definitions are Lua files executed in a sandboxed VM (gopher-lua, a
// pure Go Lua 5.1 implementation), which keeps them declarative while still
// allowing platform conditionals.
//
// # Schema
//
// A definition file assigns a global "pipeline" table:
//
//	pipeline = {
//	  name = "nightly-accounts",
//	  version = "v6.4.1",           -- cloudquery release tag
//	  spec_file = "sync_spec.yml",  -- resolved relative to this file
//	  retries = 1,                  -- per-step retry budget
//
//	  cache = {
//	    dir = "/var/cache/cqflow",  -- default: system temp dir
//	    versioned = true,           -- cache as cloudquery-<version>
//	  },
//
//	  download = {
//	    timeout = "5m",             -- string (time.ParseDuration) or seconds
//	    retries = 3,
//	  },
//
//	  sync = {
//	    timeout = "30m",            -- zero means unbounded
//	    env = { CQ_ENV = "prod" },  -- extra child process environment
//	  },
//
//	  verify = {
//	    checksum = "<64 hex chars>",  -- pin a SHA-256 digest, or
//	    checksums_file = true,        -- check against release checksums.txt
//	    public_key = "release.pub",   -- minisign or armored PGP key
//	  },
//	}
//
// Every field is optional. Omitted fields take the defaults in
// constants.go, so an empty table (or no definition file at all) is a
// runnable configuration.
//
// # Platform conditionals
//
// When the parser is built with a platform detector, a read-only "platform"
// table is injected into the VM, so definitions can branch on the host:
//
//	pipeline = {
//	  spec_file = platform.is_windows and "win_spec.yml" or "sync_spec.yml",
//	  cache = {
//	    dir = platform.when(platform.is_linux, "/var/cache/cqflow"),
//	  },
//	}
//
// # Sandboxing
//
// Definition code runs with os, io, require, dofile, loadfile, load,
// loadstring, and debug removed. Parsing a definition can never run
// processes, read files, or load external code. See sandbox.go.
//
// # Errors
//
//	type ParseError struct {
//	    Message string  // user-friendly message
//	    Detail  string  // raw Lua error
//	}
//
//	type ValidationError struct {
//	    Field   string  // field that failed validation
//	    Message string  // what was wrong
//	}
//
// FormatError renders either for terminal display; non-verbose output trims
// Lua stack tracebacks.
//
// # Related helpers
//
// Beyond parsing, the package carries the pieces the CLI needs around a
// definition file: Generator scaffolds a starter definition (cqflow init),
// DetectSensitiveData flags credentials pasted into definitions or sync
// specs, and StatusDetector reports whether a pipeline's prerequisites are
// in place (cqflow status).
package config
