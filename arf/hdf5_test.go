package arf

import (
	"path/filepath"
	"testing"

	"github.com/robert-malhotra/go-hdf5/hdf5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeFixture builds a small JILL-style container on disk: two entries
// with sampled and event channels, plus a top-level log dataset.
func writeFixture(t *testing.T) string {
	t.Helper()

	fn := filepath.Join(t.TempDir(), "fixture.arf")
	f, err := hdf5.Create(fn)
	require.NoError(t, err)

	e1, err := f.Root().CreateGroup("entry_001")
	require.NoError(t, err)

	pcm := make([]int16, 40)
	for i := range pcm {
		pcm[i] = int16(i)
	}
	_, err = e1.CreateDataset("pcm_000", pcm,
		hdf5.WithChunks(8),
		hdf5.WithAttribute("sampling_rate", int64(20000)),
	)
	require.NoError(t, err)

	_, err = e1.CreateDataset("spk", []float64{0.01, 0.5, 1.2},
		hdf5.WithAttribute("units", "s"),
	)
	require.NoError(t, err)

	e2, err := f.Root().CreateGroup("entry_002")
	require.NoError(t, err)
	_, err = e2.CreateDataset("pcm_000", []int16{9, 8, 7},
		hdf5.WithAttribute("sampling_rate", int64(20000)),
	)
	require.NoError(t, err)
	_, err = e2.CreateGroup("notes")
	require.NoError(t, err)

	_, err = f.Root().CreateDataset("jill_log", []int64{0, 1})
	require.NoError(t, err)

	require.NoError(t, f.Close())
	return fn
}

func openFixture(t *testing.T) Container {
	t.Helper()
	c, err := Open(writeFixture(t))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestOpen_MissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "absent.arf"))
	assert.Error(t, err)
}

func TestContainer_Entries(t *testing.T) {
	c := openFixture(t)

	entries, err := c.Entries()
	require.NoError(t, err)

	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name()
	}
	// jill_log is a dataset and must not appear as an entry.
	assert.ElementsMatch(t, []string{"entry_001", "entry_002"}, names)
}

func TestContainer_CreatorDetection(t *testing.T) {
	c := openFixture(t)

	assert.True(t, c.HasMember(JillLogMember))
	assert.False(t, c.HasMember("no_such_member"))
	assert.Equal(t, CreatorJill, Creator(c))
}

func TestEntry_Datasets(t *testing.T) {
	c := openFixture(t)

	entries, err := c.Entries()
	require.NoError(t, err)

	byName := map[string]Entry{}
	for _, e := range entries {
		byName[e.Name()] = e
	}

	dsets, err := byName["entry_001"].Datasets()
	require.NoError(t, err)
	require.Len(t, dsets, 2)
	assert.Equal(t, "pcm_000", dsets[0].Name())
	assert.Equal(t, "spk", dsets[1].Name())
	assert.Equal(t, "/entry_001/pcm_000", dsets[0].Path())

	// The nested group under entry_002 is not a channel.
	dsets, err = byName["entry_002"].Datasets()
	require.NoError(t, err)
	require.Len(t, dsets, 1)
	assert.Equal(t, "pcm_000", dsets[0].Name())
}

func TestDataset_Attrs(t *testing.T) {
	c := openFixture(t)
	ds := firstDataset(t, c, "entry_001")

	v, ok := ds.Attr(AttrSamplingRate)
	require.True(t, ok)
	rate, ok := AsInt(v)
	require.True(t, ok)
	assert.Equal(t, int64(20000), rate)

	_, ok = ds.Attr("missing")
	assert.False(t, ok)
}

func TestDataset_Dims(t *testing.T) {
	c := openFixture(t)
	ds := firstDataset(t, c, "entry_001")
	assert.Equal(t, []int64{40}, ds.Dims())
}

func TestDataset_ReadSamples(t *testing.T) {
	c := openFixture(t)
	ds := firstDataset(t, c, "entry_001")

	vals, err := ds.ReadSamples(8, 16)
	require.NoError(t, err)
	require.Len(t, vals, 8)
	assert.Equal(t, 8.0, vals[0])
	assert.Equal(t, 15.0, vals[7])

	// Bounds clamp to the dataset extent.
	vals, err = ds.ReadSamples(-5, 999)
	require.NoError(t, err)
	assert.Len(t, vals, 40)

	vals, err = ds.ReadSamples(30, 20)
	require.NoError(t, err)
	assert.Empty(t, vals)
}

func TestDataset_ReadEvents(t *testing.T) {
	c := openFixture(t)

	entries, err := c.Entries()
	require.NoError(t, err)
	for _, e := range entries {
		if e.Name() != "entry_001" {
			continue
		}
		dsets, err := e.Datasets()
		require.NoError(t, err)
		vals, err := dsets[1].ReadEvents()
		require.NoError(t, err)
		assert.Equal(t, []float64{0.01, 0.5, 1.2}, vals)
	}
}

func firstDataset(t *testing.T, c Container, entry string) Dataset {
	t.Helper()
	entries, err := c.Entries()
	require.NoError(t, err)
	for _, e := range entries {
		if e.Name() != entry {
			continue
		}
		dsets, err := e.Datasets()
		require.NoError(t, err)
		require.NotEmpty(t, dsets)
		return dsets[0]
	}
	t.Fatalf("entry %q not found", entry)
	return nil
}
