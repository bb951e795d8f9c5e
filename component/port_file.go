package component

import "fmt"

// FilePort - a file-system write target owned by a sink
type FilePort struct {
	Path string `json:"path"`
}

// ResourceID returns unique identifier for file ports
func (f FilePort) ResourceID() string {
	return fmt.Sprintf("file:%s", f.Path)
}

// IsExclusive returns true for regular files: two sinks appending to
// one file would interleave their output. Standard output is shared.
func (f FilePort) IsExclusive() bool {
	return f.Path != "" && f.Path != "-"
}

// Type returns the port type identifier
func (f FilePort) Type() string {
	return "file"
}
