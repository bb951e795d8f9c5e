package reader

import (
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/arfstream/arf"
	"github.com/c360/arfstream/errors"
	"github.com/c360/arfstream/testutil"
)

// testReader builds a reader whose log output is captured for
// assertion. The container is injected later or ignored.
func testReader(t *testing.T, cfg Config) (*Reader, *testutil.LogRecorder) {
	t.Helper()
	if cfg.Path == "" {
		cfg.Path = "test.arf"
	}
	logs := testutil.NewLogRecorder()
	r, err := NewReader(ReaderDeps{
		Config: cfg,
		Logger: logs.Logger(),
	})
	require.NoError(t, err)
	return r, logs
}

func entryNames(table *entryTable) []string {
	names := make([]string, len(table.entries))
	for i, e := range table.entries {
		names[i] = e.entry.Name()
	}
	return names
}

func TestCorrectFrames(t *testing.T) {
	tests := []struct {
		name     string
		raw      []uint32
		expected []uint64
	}{
		{
			name: "empty",
		},
		{
			name:     "single",
			raw:      []uint32{42},
			expected: []uint64{42},
		},
		{
			name:     "monotone passthrough",
			raw:      []uint32{10, 20, 30},
			expected: []uint64{10, 20, 30},
		},
		{
			name:     "wrap at 2^32",
			raw:      []uint32{4294967290, 4294967295, 2, 10},
			expected: []uint64{4294967290, 4294967295, 4294967297, 4294967305},
		},
		{
			name:     "wrap twice",
			raw:      []uint32{4294967000, 1000, 4294967290, 500},
			expected: []uint64{4294967000, 4294968296, 8589935586, 8589936092},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, correctFrames(tt.raw))
		})
	}
}

func TestBuildEntryTable_Timestamp(t *testing.T) {
	c := testutil.NewContainer("test.arf")
	c.AddEntry("late").SetAttr(arf.AttrTimestamp, []int64{200, 0})
	c.AddEntry("early").SetAttr(arf.AttrTimestamp, []int64{100, 500000})
	c.AddEntry("middle").SetAttr(arf.AttrTimestamp, []int64{150, 0})

	r, _ := testReader(t, Config{Clock: ClockTimestamp})
	table, err := r.buildEntryTable(c)
	require.NoError(t, err)

	assert.Equal(t, ClockTimestamp, table.clock)
	assert.Zero(t, table.rate)
	assert.Equal(t, []string{"early", "middle", "late"}, entryNames(table))
	assert.InDelta(t, 100.5, table.entries[0].key.Seconds(), 1e-9)
}

func TestBuildEntryTable_TimestampTiesKeepFileOrder(t *testing.T) {
	c := testutil.NewContainer("test.arf")
	c.AddEntry("a").SetAttr(arf.AttrTimestamp, []int64{100, 0})
	c.AddEntry("b").SetAttr(arf.AttrTimestamp, []int64{100, 0})
	c.AddEntry("c").SetAttr(arf.AttrTimestamp, []int64{50, 0})

	r, _ := testReader(t, Config{Clock: ClockTimestamp})
	table, err := r.buildEntryTable(c)
	require.NoError(t, err)

	assert.Equal(t, []string{"c", "a", "b"}, entryNames(table))
}

func TestBuildEntryTable_SkipsEntryWithoutKey(t *testing.T) {
	c := testutil.NewContainer("test.arf")
	c.AddEntry("keyed").SetAttr(arf.AttrTimestamp, []int64{100, 0})
	c.AddEntry("naked")

	r, logs := testReader(t, Config{Clock: ClockTimestamp})
	table, err := r.buildEntryTable(c)
	require.NoError(t, err)

	assert.Equal(t, []string{"keyed"}, entryNames(table))
	assert.Equal(t, 1, logs.Count(slog.LevelWarn, "missing ordering attribute"))
}

func TestBuildEntryTable_EntryFilter(t *testing.T) {
	c := testutil.NewContainer("test.arf")
	c.AddEntry("rec_001").SetAttr(arf.AttrTimestamp, []int64{100, 0})
	c.AddEntry("scratch").SetAttr(arf.AttrTimestamp, []int64{110, 0})
	c.AddEntry("rec_002").SetAttr(arf.AttrTimestamp, []int64{120, 0})

	r, _ := testReader(t, Config{Clock: ClockTimestamp, Entries: []string{"^rec_"}})
	table, err := r.buildEntryTable(c)
	require.NoError(t, err)

	assert.Equal(t, []string{"rec_001", "rec_002"}, entryNames(table))
}

func TestBuildEntryTable_NoEntries(t *testing.T) {
	c := testutil.NewContainer("test.arf")
	c.AddEntry("scratch").SetAttr(arf.AttrTimestamp, []int64{100, 0})

	r, _ := testReader(t, Config{Clock: ClockTimestamp, Entries: []string{"^rec_"}})
	_, err := r.buildEntryTable(c)

	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrNoEntries)
	assert.Equal(t, errors.ErrorFatal, errors.Classify(err))
}

func TestBuildEntryTable_SampleCount(t *testing.T) {
	c := testutil.NewContainer("test.arf")
	c.SetAttr(arf.AttrSamplingRate, int64(20000))
	c.AddEntry("second").SetAttr(arf.AttrSampleCount, int64(40000))
	c.AddEntry("first").SetAttr(arf.AttrSampleCount, int64(0))

	r, _ := testReader(t, Config{Clock: ClockSampleCount})
	table, err := r.buildEntryTable(c)
	require.NoError(t, err)

	assert.Equal(t, ClockSampleCount, table.clock)
	assert.Equal(t, int64(20000), table.rate)
	assert.Equal(t, []string{"first", "second"}, entryNames(table))

	// 40000 samples at 20 kHz is exactly 2 seconds.
	samples, err := table.entries[1].key.SamplesAt(20000)
	require.NoError(t, err)
	assert.Equal(t, int64(40000), samples)
}

func TestBuildEntryTable_SampleCountRequiresFileRate(t *testing.T) {
	c := testutil.NewContainer("test.arf")
	c.AddEntry("rec").SetAttr(arf.AttrSampleCount, int64(100))

	r, _ := testReader(t, Config{Clock: ClockSampleCount})
	_, err := r.buildEntryTable(c)

	require.Error(t, err)
	assert.Equal(t, errors.ErrorFatal, errors.Classify(err))
	assert.Contains(t, err.Error(), "sampling_rate")
}

func TestBuildEntryTable_FrameCounterWrap(t *testing.T) {
	c := testutil.NewContainer("test.arf")
	frames := []uint64{4294967290, 4294967295, 2, 10}
	for i, frame := range frames {
		e := c.AddEntry(fmt.Sprintf("e%d", i))
		e.SetAttr(arf.AttrJackFrame, frame)
		e.SetAttr(arf.AttrJackUsec, uint64(1000000*i))
		if i == 0 {
			e.AddSamples("pcm", 20000, testutil.Ramp(10))
		}
	}

	r, _ := testReader(t, Config{Clock: ClockFrameCounter})
	table, err := r.buildEntryTable(c)
	require.NoError(t, err)

	assert.Equal(t, int64(20000), table.rate, "rate discovered from the first rated dataset")
	assert.Equal(t, []string{"e0", "e1", "e2", "e3"}, entryNames(table))

	corrected := []int64{4294967290, 4294967295, 4294967297, 4294967305}
	for i, want := range corrected {
		samples, err := table.entries[i].key.SamplesAt(20000)
		require.NoError(t, err)
		assert.Equal(t, want, samples)
	}
}

func TestBuildEntryTable_FrameCounterOrdersByUsec(t *testing.T) {
	// The frame counter has wrapped between b and a, so raw frame
	// order disagrees with capture order; jack_usec settles it.
	c := testutil.NewContainer("test.arf")
	a := c.AddEntry("a")
	a.SetAttr(arf.AttrJackFrame, uint64(5))
	a.SetAttr(arf.AttrJackUsec, uint64(2000000))
	b := c.AddEntry("b")
	b.SetAttr(arf.AttrJackFrame, uint64(4294967295))
	b.SetAttr(arf.AttrJackUsec, uint64(1000000))

	r, logs := testReader(t, Config{Clock: ClockFrameCounter})
	table, err := r.buildEntryTable(c)
	require.NoError(t, err)

	assert.Equal(t, []string{"b", "a"}, entryNames(table))
	assert.Equal(t, 1, logs.Count(slog.LevelWarn, "no dataset declares a sampling rate"))
	assert.Zero(t, table.rate)

	// Rate-less frame keys degrade to raw counted seconds.
	assert.InDelta(t, float64(4294967295), table.entries[0].key.Seconds(), 1)
	assert.InDelta(t, float64(4294967301), table.entries[1].key.Seconds(), 1)
}

func TestBuildEntryTable_FrameGapFatal(t *testing.T) {
	// 2^32 frames at 20 kHz is ~214748 seconds; a larger wall-clock
	// gap makes wrap correction ambiguous.
	c := testutil.NewContainer("test.arf")
	a := c.AddEntry("a")
	a.SetAttr(arf.AttrJackFrame, uint64(0))
	a.SetAttr(arf.AttrJackUsec, uint64(0))
	a.AddSamples("pcm", 20000, testutil.Ramp(4))
	b := c.AddEntry("b")
	b.SetAttr(arf.AttrJackFrame, uint64(100))
	b.SetAttr(arf.AttrJackUsec, uint64(300000*1e6))

	r, _ := testReader(t, Config{Clock: ClockFrameCounter})
	_, err := r.buildEntryTable(c)

	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrFrameGapExceeded)
	assert.Equal(t, errors.ErrorFatal, errors.Classify(err))
}

func TestBuildEntryTable_AutoClock(t *testing.T) {
	tests := []struct {
		name          string
		setup         func(*testutil.Container)
		expectedClock string
	}{
		{
			name: "arfxplog selects sample count",
			setup: func(c *testutil.Container) {
				c.SetAttr(arf.AttrProgram, arf.CreatorArfxplog)
				c.SetAttr(arf.AttrSamplingRate, int64(1000))
				c.AddEntry("rec").SetAttr(arf.AttrSampleCount, int64(0))
			},
			expectedClock: ClockSampleCount,
		},
		{
			name: "jill log selects frame counter",
			setup: func(c *testutil.Container) {
				c.AddMember(arf.JillLogMember)
				e := c.AddEntry("rec")
				e.SetAttr(arf.AttrJackFrame, uint64(0))
				e.SetAttr(arf.AttrJackUsec, uint64(0))
			},
			expectedClock: ClockFrameCounter,
		},
		{
			name: "unknown creator selects timestamp",
			setup: func(c *testutil.Container) {
				c.AddEntry("rec").SetAttr(arf.AttrTimestamp, []int64{100, 0})
			},
			expectedClock: ClockTimestamp,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := testutil.NewContainer("test.arf")
			tt.setup(c)

			r, _ := testReader(t, Config{Clock: ClockAuto})
			table, err := r.buildEntryTable(c)
			require.NoError(t, err)

			assert.Equal(t, tt.expectedClock, table.clock)
		})
	}
}

func TestBuildEntryTable_DriftDiagnostic(t *testing.T) {
	// 20000 samples across a 2-second wall gap implies an effective
	// rate of 10 kHz against a 20 kHz nominal.
	c := testutil.NewContainer("test.arf")
	c.SetAttr(arf.AttrSamplingRate, int64(20000))
	first := c.AddEntry("first")
	first.SetAttr(arf.AttrSampleCount, int64(0))
	first.SetAttr(arf.AttrTimestamp, []int64{100, 0})
	last := c.AddEntry("last")
	last.SetAttr(arf.AttrSampleCount, int64(20000))
	last.SetAttr(arf.AttrTimestamp, []int64{102, 0})

	r, logs := testReader(t, Config{Clock: ClockSampleCount})
	_, err := r.buildEntryTable(c)
	require.NoError(t, err)

	assert.Equal(t, 1, logs.Count(slog.LevelInfo, "effective sampling rate"))
}

func TestBuildEntryTable_EntriesError(t *testing.T) {
	c := testutil.NewContainer("test.arf")
	c.EntriesErr = errors.ErrDataCorrupted

	r, _ := testReader(t, Config{})
	_, err := r.buildEntryTable(c)

	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrDataCorrupted)
}

func TestCheckFrameGap(t *testing.T) {
	// One wrap at 20 kHz is ~214748 seconds of wall clock.
	wrapSeconds := float64(frameWrap) / 20000

	err := checkFrameGap(0, uint64((wrapSeconds-1)*1e6), 20000)
	assert.NoError(t, err)

	err = checkFrameGap(0, uint64((wrapSeconds+1)*1e6), 20000)
	assert.ErrorIs(t, err, errors.ErrFrameGapExceeded)

	// Without a rate the check cannot run.
	assert.NoError(t, checkFrameGap(0, 1<<62, 0))
}

func TestRateValue(t *testing.T) {
	tests := []struct {
		name     string
		value    any
		expected int64
		ok       bool
	}{
		{name: "int64", value: int64(20000), expected: 20000, ok: true},
		{name: "float truncates", value: 11025.9, expected: 11025, ok: true},
		{name: "zero rejected", value: int64(0), ok: false},
		{name: "negative rejected", value: int64(-5), ok: false},
		{name: "string rejected", value: "20000", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rate, ok := rateValue(tt.value)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.expected, rate)
			}
		})
	}
}
