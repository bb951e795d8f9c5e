package arf

import (
	stderrors "errors"
	"path"
	"slices"

	"github.com/robert-malhotra/go-hdf5/hdf5"

	"github.com/c360/arfstream/errors"
)

// Open opens an ARF container backed by an HDF5 file on disk.
func Open(filename string) (Container, error) {
	f, err := hdf5.Open(filename)
	if err != nil {
		return nil, errors.Wrap(err, "Container", "Open", "open "+filename)
	}
	root := f.Root()
	if root == nil {
		f.Close()
		return nil, errors.WrapInvalid(hdf5.ErrNotHDF5, "Container", "Open", "read root group of "+filename)
	}
	return &hdf5Container{file: f, root: root}, nil
}

type hdf5Container struct {
	file *hdf5.File
	root *hdf5.Group
}

var _ Container = (*hdf5Container)(nil)

func (c *hdf5Container) Path() string { return c.file.Path() }

func (c *hdf5Container) Attr(name string) (any, bool) {
	return attrValue(c.root, name)
}

func (c *hdf5Container) HasMember(name string) bool {
	names, err := c.root.Members()
	if err != nil {
		return false
	}
	return slices.Contains(names, name)
}

func (c *hdf5Container) Entries() ([]Entry, error) {
	names, err := c.root.Members()
	if err != nil {
		return nil, errors.WrapInvalid(err, "Container", "Entries", "list top-level members")
	}
	entries := make([]Entry, 0, len(names))
	for _, name := range names {
		g, err := c.root.OpenGroup(name)
		if stderrors.Is(err, hdf5.ErrNotGroup) {
			// Top-level datasets (jill_log and the like) are not entries.
			continue
		}
		if err != nil {
			return nil, errors.WrapInvalid(err, "Container", "Entries", "open entry "+name)
		}
		entries = append(entries, &hdf5Entry{group: g})
	}
	return entries, nil
}

func (c *hdf5Container) Close() error {
	if err := c.file.Close(); err != nil {
		return errors.Wrap(err, "Container", "Close", "close "+c.file.Path())
	}
	return nil
}

type hdf5Entry struct {
	group *hdf5.Group
}

var _ Entry = (*hdf5Entry)(nil)

func (e *hdf5Entry) Name() string { return e.group.Name() }

func (e *hdf5Entry) Attr(name string) (any, bool) {
	return attrValue(e.group, name)
}

func (e *hdf5Entry) Datasets() ([]Dataset, error) {
	names, err := e.group.Members()
	if err != nil {
		return nil, errors.WrapInvalid(err, "Entry", "Datasets", "list members of "+e.group.Path())
	}
	slices.Sort(names)
	out := make([]Dataset, 0, len(names))
	for _, name := range names {
		ds, err := e.group.OpenDataset(name)
		if stderrors.Is(err, hdf5.ErrNotDataset) {
			// Nested groups are not channels.
			continue
		}
		if err != nil {
			return nil, errors.WrapInvalid(err, "Entry", "Datasets", "open dataset "+name)
		}
		out = append(out, newHDF5Dataset(e.group.Path(), name, ds))
	}
	return out, nil
}

type hdf5Dataset struct {
	name string
	path string
	dset *hdf5.Dataset
	dims []int64

	data []float64
	read bool
}

var _ Dataset = (*hdf5Dataset)(nil)

func newHDF5Dataset(parent, name string, dset *hdf5.Dataset) *hdf5Dataset {
	shape := dset.Shape()
	dims := make([]int64, len(shape))
	for i, d := range shape {
		dims[i] = int64(d)
	}
	return &hdf5Dataset{
		name: name,
		path: path.Join(parent, name),
		dset: dset,
		dims: dims,
	}
}

func (d *hdf5Dataset) Name() string { return d.name }
func (d *hdf5Dataset) Path() string { return d.path }

func (d *hdf5Dataset) Attr(name string) (any, bool) {
	return attrValue(d.dset, name)
}

func (d *hdf5Dataset) Dims() []int64 { return slices.Clone(d.dims) }

// ChunkFrames always reports 0: the storage layer does not expose
// chunk dimensions, so traversal falls back to DefaultChunkFrames.
func (d *hdf5Dataset) ChunkFrames() int64 { return 0 }

func (d *hdf5Dataset) ReadEvents() ([]float64, error) {
	return d.readAll()
}

func (d *hdf5Dataset) ReadSamples(start, stop int64) ([]float64, error) {
	vals, err := d.readAll()
	if err != nil {
		return nil, err
	}
	n := int64(len(vals))
	start = min(max(start, 0), n)
	stop = min(max(stop, start), n)
	return vals[start:stop], nil
}

// readAll reads the dataset once and serves later windows from memory.
// The storage layer has no partial reads, so a whole-dataset read is
// the only granularity available.
func (d *hdf5Dataset) readAll() ([]float64, error) {
	if d.read {
		return d.data, nil
	}
	vals, err := d.dset.ReadFloat64()
	if err != nil {
		return nil, errors.WrapInvalid(err, "Dataset", "Read", "read "+d.path)
	}
	d.data = vals
	d.read = true
	return vals, nil
}

// attrHolder is the read surface shared by HDF5 groups and datasets.
type attrHolder interface {
	Attr(name string) *hdf5.Attribute
}

func attrValue(h attrHolder, name string) (any, bool) {
	a := h.Attr(name)
	if a == nil {
		return nil, false
	}
	v, err := a.Value()
	if err != nil {
		return nil, false
	}
	return v, true
}
