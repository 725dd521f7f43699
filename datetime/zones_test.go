package datetime_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/marcodamonte/concurrency/racetime/datetime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tzif() *fstest.MapFile {
	return &fstest.MapFile{Data: []byte("TZif2\x00\x00\x00")}
}

// zoneTree mimics the layout of /usr/share/zoneinfo: region files, the
// posix/ mirror, tables and helper files that are not zones.
func zoneTree() fstest.MapFS {
	return fstest.MapFS{
		"Asia/Tokyo":       tzif(),
		"US/Pacific":       tzif(),
		"UTC":              tzif(),
		"Etc/GMT+1":        tzif(),
		"posix/Asia/Tokyo": tzif(),
		"right/UTC":        tzif(),
		"posixrules":       tzif(),
		"Factory":          tzif(),
		"zone.tab":         {Data: []byte("# tz zone descriptions\n")},
		"README":           {Data: []byte("not a zone")},
		"Empty":            {Data: nil},
	}
}

func TestZoneIDs(t *testing.T) {
	ids, err := datetime.NewZones(zoneTree()).IDs()
	require.NoError(t, err)
	assert.Equal(t, []string{"Asia/Tokyo", "Etc/GMT+1", "US/Pacific", "UTC"}, ids)
}

func TestZoneIDsWithoutTree(t *testing.T) {
	_, err := datetime.NewZones(nil).IDs()
	assert.Error(t, err)
}

func TestZoneLoad(t *testing.T) {
	zones := datetime.NewZones(nil)

	tokyo, err := zones.Load("Asia/Tokyo")
	require.NoError(t, err)
	_, offset := time.Date(2025, time.April, 20, 0, 0, 0, 0, tokyo).Zone()
	assert.Equal(t, 9*60*60, offset)

	again, err := zones.Load("Asia/Tokyo")
	require.NoError(t, err)
	assert.Same(t, tokyo, again, "locations are cached")

	for _, bad := range []string{"Nowhere/Else", "", "Local"} {
		_, err := zones.Load(bad)
		assert.True(t, errors.Is(err, datetime.ErrUnknownZone), "%q", bad)
	}
}

func TestNextRuns(t *testing.T) {
	saturday := datetime.DateTime(2025, time.April, 19, 10, 0, 0, 0)

	runs, err := datetime.NextRuns("0 0 9 * * MON-FRI", saturday, 3)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{
		datetime.DateTime(2025, time.April, 21, 9, 0, 0, 0),
		datetime.DateTime(2025, time.April, 22, 9, 0, 0, 0),
		datetime.DateTime(2025, time.April, 23, 9, 0, 0, 0),
	}, runs)

	runs, err = datetime.NextRuns("@every 90m", saturday, 2)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{
		saturday.Add(90 * time.Minute),
		saturday.Add(180 * time.Minute),
	}, runs)

	_, err = datetime.NextRuns("not a schedule", saturday, 1)
	assert.Error(t, err)
	_, err = datetime.NextRuns("@daily", saturday, -1)
	assert.Error(t, err)
}

func TestTour(t *testing.T) {
	now := time.Date(2025, time.April, 19, 10, 0, 0, 0, time.UTC)
	var buf bytes.Buffer

	require.NoError(t, datetime.Tour(&buf, now, datetime.NewZones(zoneTree()), datetime.TourConfig{}))
	out := buf.String()

	for _, want := range []string{
		"2025-04-20",
		"23:59:59",
		"2025-04-19T10:00:00",
		"4 (use --list-zones to print them)",
		"2025-04-20T23:59:59+09:00[Asia/Tokyo]",
		"2025-02-20",
		"2025-04-23T10:00:00",
		"year=2025 month=4 day=19 hour=10 minute=0 second=0 nano=0",
		"2024-04-12T23:10:50.1234Z",
		"2025-02-21T15:04:30.00013333-08:00[US/Pacific]",
		"PT24000H",
		"P2Y7M11D",
		"2025-04-21T09:00:00+09:00[Asia/Tokyo]",
	} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "    UTC\n")
}

// tourLine returns the value printed after label.
func tourLine(t *testing.T, out, label string) string {
	for _, line := range strings.Split(out, "\n") {
		if rest, ok := strings.CutPrefix(strings.TrimSpace(line), label); ok {
			return strings.TrimSpace(rest)
		}
	}
	t.Fatalf("no %q line in tour output", label)
	return ""
}

func TestTourDayArithmeticIgnoresDST(t *testing.T) {
	newYork, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	// Clocks in New York spring forward on 2025-03-09.
	now := time.Date(2025, time.March, 7, 12, 0, 0, 0, newYork)
	var buf bytes.Buffer

	require.NoError(t, datetime.Tour(&buf, now, datetime.NewZones(zoneTree()), datetime.TourConfig{}))
	out := buf.String()

	assert.Equal(t, "2025-03-12T12:00:00", tourLine(t, out, "five days later"))
	assert.Equal(t, "2025-03-02T12:00:00", tourLine(t, out, "five days ago"))
}

func TestTourListsZones(t *testing.T) {
	now := time.Date(2025, time.April, 19, 10, 0, 0, 0, time.UTC)
	var buf bytes.Buffer

	require.NoError(t, datetime.Tour(&buf, now, datetime.NewZones(zoneTree()), datetime.TourConfig{ListZones: true}))
	assert.Contains(t, buf.String(), "    Asia/Tokyo\n")
	assert.Contains(t, buf.String(), "    UTC\n")
}

func TestTourRejectsUnknownZone(t *testing.T) {
	var buf bytes.Buffer
	err := datetime.Tour(&buf, time.Now(), datetime.NewZones(zoneTree()), datetime.TourConfig{Zones: []string{"Mars/Olympus"}})
	assert.True(t, errors.Is(err, datetime.ErrUnknownZone))
	assert.Empty(t, strings.TrimSpace(buf.String()))
}
