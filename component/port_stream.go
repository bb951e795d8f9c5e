package component

import "fmt"

// StreamPort - an in-process chunk stream between pipeline stages
type StreamPort struct {
	Stream string   `json:"stream"`         // stream name within the toolchain
	Tags   []string `json:"tags,omitempty"` // chunk tags carried, when restricted
}

// ResourceID returns unique identifier for stream ports
func (s StreamPort) ResourceID() string {
	return fmt.Sprintf("stream:%s", s.Stream)
}

// IsExclusive returns false as any number of stages can tap one stream
func (s StreamPort) IsExclusive() bool {
	return false
}

// Type returns the port type identifier
func (s StreamPort) Type() string {
	return "stream"
}
