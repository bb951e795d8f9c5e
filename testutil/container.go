package testutil

import (
	"fmt"
	"sync"

	"github.com/c360/arfstream/arf"
)

// Container is an in-memory arf.Container for tests. Build one with the
// fluent methods, then hand it to a reader:
//
//	c := testutil.NewContainer("mem.arf").SetAttr("sampling_rate", int64(20000))
//	c.AddEntry("entry_00001").
//	    SetAttr("timestamp", []int64{1000, 0}).
//	    AddSamples("pcm", 20000, values)
//
// Attribute values keep whatever type the test stores, so fixtures can
// reproduce the scalar and slice types real HDF5 attributes decode to.
type Container struct {
	mu      sync.Mutex
	path    string
	attrs   map[string]any
	members map[string]struct{}
	entries []*Entry
	closed  bool

	// EntriesErr, when set, is returned from Entries to exercise
	// container read failures.
	EntriesErr error
}

// NewContainer creates an empty in-memory container.
func NewContainer(path string) *Container {
	return &Container{
		path:    path,
		attrs:   make(map[string]any),
		members: make(map[string]struct{}),
	}
}

// SetAttr sets a top-level attribute and returns the container for
// chaining.
func (c *Container) SetAttr(name string, value any) *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attrs[name] = value
	return c
}

// AddMember records a non-entry top-level member, such as a jill_log
// dataset, and returns the container for chaining.
func (c *Container) AddMember(name string) *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.members[name] = struct{}{}
	return c
}

// AddEntry appends a top-level entry group and returns it for chaining.
// Entries iterate in insertion order.
func (c *Container) AddEntry(name string) *Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry := &Entry{name: name, attrs: make(map[string]any)}
	c.entries = append(c.entries, entry)
	return entry
}

// Path implements arf.Container.
func (c *Container) Path() string { return c.path }

// Attr implements arf.Container.
func (c *Container) Attr(name string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.attrs[name]
	return v, ok
}

// HasMember implements arf.Container. Both entries and members added
// with AddMember count.
func (c *Container) HasMember(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.members[name]; ok {
		return true
	}
	for _, entry := range c.entries {
		if entry.name == name {
			return true
		}
	}
	return false
}

// Entries implements arf.Container.
func (c *Container) Entries() ([]arf.Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.EntriesErr != nil {
		return nil, c.EntriesErr
	}
	out := make([]arf.Entry, len(c.entries))
	for i, entry := range c.entries {
		out[i] = entry
	}
	return out, nil
}

// Close implements arf.Container.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (c *Container) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Entry is an in-memory arf.Entry.
type Entry struct {
	mu       sync.Mutex
	name     string
	attrs    map[string]any
	datasets []*Dataset

	// DatasetsErr, when set, is returned from Datasets.
	DatasetsErr error
}

// SetAttr sets an entry attribute and returns the entry for chaining.
func (e *Entry) SetAttr(name string, value any) *Entry {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.attrs[name] = value
	return e
}

// AddSamples appends a sampled dataset with the given rate, setting its
// sampling_rate attribute, and returns it for chaining.
func (e *Entry) AddSamples(name string, rate int64, values []float64) *Dataset {
	ds := e.AddDataset(name)
	ds.SetAttr(arf.AttrSamplingRate, rate)
	ds.samples = values
	return ds
}

// AddEvents appends an event dataset with the given units attribute and
// returns it for chaining.
func (e *Entry) AddEvents(name string, units string, times []float64) *Dataset {
	ds := e.AddDataset(name)
	ds.SetAttr(arf.AttrUnits, units)
	ds.events = times
	return ds
}

// AddDataset appends a bare dataset with no attributes or data.
func (e *Entry) AddDataset(name string) *Dataset {
	e.mu.Lock()
	defer e.mu.Unlock()
	ds := &Dataset{
		name:  name,
		path:  fmt.Sprintf("/%s/%s", e.name, name),
		attrs: make(map[string]any),
	}
	e.datasets = append(e.datasets, ds)
	return ds
}

// Name implements arf.Entry.
func (e *Entry) Name() string { return e.name }

// Attr implements arf.Entry.
func (e *Entry) Attr(name string) (any, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.attrs[name]
	return v, ok
}

// Datasets implements arf.Entry. Datasets iterate in insertion order,
// matching the name-ordered listing of the HDF5 adapter when tests add
// them alphabetically.
func (e *Entry) Datasets() ([]arf.Dataset, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.DatasetsErr != nil {
		return nil, e.DatasetsErr
	}
	out := make([]arf.Dataset, len(e.datasets))
	for i, ds := range e.datasets {
		out[i] = ds
	}
	return out, nil
}

// Dataset is an in-memory arf.Dataset holding either sampled values or
// event times.
type Dataset struct {
	mu          sync.Mutex
	name        string
	path        string
	attrs       map[string]any
	samples     []float64
	events      []float64
	chunkFrames int64

	// ReadErr, when set, is returned from ReadSamples and ReadEvents.
	ReadErr error
}

// SetAttr sets a dataset attribute and returns the dataset for
// chaining.
func (d *Dataset) SetAttr(name string, value any) *Dataset {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.attrs[name] = value
	return d
}

// SetChunkFrames sets the native chunk granularity reported by
// ChunkFrames and returns the dataset for chaining.
func (d *Dataset) SetChunkFrames(frames int64) *Dataset {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.chunkFrames = frames
	return d
}

// Name implements arf.Dataset.
func (d *Dataset) Name() string { return d.name }

// Path implements arf.Dataset.
func (d *Dataset) Path() string { return d.path }

// Attr implements arf.Dataset.
func (d *Dataset) Attr(name string) (any, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, ok := d.attrs[name]
	return v, ok
}

// Dims implements arf.Dataset.
func (d *Dataset) Dims() []int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.events != nil {
		return []int64{int64(len(d.events))}
	}
	return []int64{int64(len(d.samples))}
}

// ChunkFrames implements arf.Dataset.
func (d *Dataset) ChunkFrames() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.chunkFrames
}

// ReadEvents implements arf.Dataset.
func (d *Dataset) ReadEvents() ([]float64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.ReadErr != nil {
		return nil, d.ReadErr
	}
	out := make([]float64, len(d.events))
	copy(out, d.events)
	return out, nil
}

// ReadSamples implements arf.Dataset, clamping [start, stop) to the
// dataset extent.
func (d *Dataset) ReadSamples(start, stop int64) ([]float64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.ReadErr != nil {
		return nil, d.ReadErr
	}
	n := int64(len(d.samples))
	if start < 0 {
		start = 0
	}
	if stop > n {
		stop = n
	}
	if start >= stop {
		return []float64{}, nil
	}
	out := make([]float64, stop-start)
	copy(out, d.samples[start:stop])
	return out, nil
}

var (
	_ arf.Container = (*Container)(nil)
	_ arf.Entry     = (*Entry)(nil)
	_ arf.Dataset   = (*Dataset)(nil)
)
