package component

import "fmt"

// ContainerPort - read access to an ARF container file
type ContainerPort struct {
	Path string `json:"path"`
}

// ResourceID returns unique identifier for container ports
func (c ContainerPort) ResourceID() string {
	return fmt.Sprintf("container:%s", c.Path)
}

// IsExclusive returns false as containers are opened read-only and can
// be shared between readers
func (c ContainerPort) IsExclusive() bool {
	return false
}

// Type returns the port type identifier
func (c ContainerPort) Type() string {
	return "container"
}
