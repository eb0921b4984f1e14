// Package buildinfo carries build-time metadata separate from user configuration.
package buildinfo

import "fmt"

// UnknownValue is reported for metadata that was not injected at build time.
const UnknownValue = "unknown"

// BuildInfo provides access to build-time metadata.
type BuildInfo interface {
	GetVersion() string
	GetBuildDate() string
	GetCommit() string
}

// Context holds metadata injected at startup through -ldflags. It is not part
// of the configuration system.
type Context struct {
	Version   string
	BuildDate string
	Commit    string
}

// NewContext creates a Context.
func NewContext(version, buildDate, commit string) *Context {
	return &Context{Version: version, BuildDate: buildDate, Commit: commit}
}

// GetVersion implements BuildInfo.GetVersion
func (c *Context) GetVersion() string {
	if c == nil || c.Version == "" {
		return UnknownValue
	}
	return c.Version
}

// GetBuildDate implements BuildInfo.GetBuildDate
func (c *Context) GetBuildDate() string {
	if c == nil || c.BuildDate == "" {
		return UnknownValue
	}
	return c.BuildDate
}

// GetCommit implements BuildInfo.GetCommit
func (c *Context) GetCommit() string {
	if c == nil || c.Commit == "" {
		return UnknownValue
	}
	return c.Commit
}

// Release is the identifier reported to error telemetry, e.g. quicktest@1.2.0.
func Release(info BuildInfo) string {
	return "quicktest@" + info.GetVersion()
}

// String formats the metadata for the version command.
func String(info BuildInfo) string {
	return fmt.Sprintf("quicktest %s (commit %s, built %s)", info.GetVersion(), info.GetCommit(), info.GetBuildDate())
}
