package output

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ray1729/tidyshapes/pkg/places"
)

func mustWKB(t *testing.T, g orb.Geometry) []byte {
	t.Helper()
	data, err := wkb.Marshal(g)
	require.NoError(t, err)
	return data
}

func square(t *testing.T, size float64) []byte {
	t.Helper()
	return mustWKB(t, orb.Polygon{{{0, 0}, {size, 0}, {size, size}, {0, size}, {0, 0}}})
}

func TestRunWritesArtifacts(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	w := NewWriter(dir)
	slugMap := map[string]places.Entry{
		"zetland": {WikidataID: "Q1", Geometry: square(t, 1)},
		"avalon":  {WikidataID: "Q2", Geometry: square(t, 2)},
	}

	stats, err := w.Run(slugMap)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Entries)
	assert.Equal(t, 4, stats.GeoJSON)
	assert.Equal(t, 0, stats.Warnings)

	bbox, err := os.ReadFile(filepath.Join(dir, "zetland.bbox"))
	require.NoError(t, err)
	assert.Equal(t, "0,0,1,1\n", string(bbox))

	for _, name := range []string{"zetland.1k.geojson", "zetland.10k.geojson", "avalon.1k.geojson"} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err)
		var g geojson.Geometry
		require.NoError(t, json.Unmarshal(data, &g), "%s must hold a GeoJSON geometry", name)
	}

	index, err := os.ReadFile(filepath.Join(dir, "index.csv"))
	require.NoError(t, err)
	assert.Equal(t, "avalon\nzetland\n", string(index), "index.csv is sorted with a trailing newline")

	_, err = os.Stat(filepath.Join(dir, "index.html"))
	assert.NoError(t, err)
}

func TestRunSkipsUndecodableGeometry(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	w := NewWriter(dir)
	slugMap := map[string]places.Entry{
		"good": {WikidataID: "Q1", Geometry: square(t, 1)},
		"bad":  {WikidataID: "Q2", Geometry: []byte("not wkb")},
	}

	stats, err := w.Run(slugMap)
	require.NoError(t, err, "one bad entry must not abort the batch")
	assert.Equal(t, 1, stats.Warnings)

	_, err = os.Stat(filepath.Join(dir, "bad.bbox"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dir, "good.bbox"))
	assert.NoError(t, err)
}

func TestWriteIfChanged(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "file.txt")

	changed, err := writeIfChanged(path, []byte("hello\n"))
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = writeIfChanged(path, []byte("hello\n"))
	require.NoError(t, err)
	assert.False(t, changed, "identical content must be a no-op")

	changed, err = writeIfChanged(path, []byte("goodbye\n"))
	require.NoError(t, err)
	assert.True(t, changed)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "goodbye\n", string(data))
}

func TestRunIsIdempotent(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	w := NewWriter(dir)
	slugMap := map[string]places.Entry{
		"malta": {WikidataID: "Q233", Geometry: square(t, 3)},
	}

	first, err := w.Run(slugMap)
	require.NoError(t, err)
	second, err := w.Run(slugMap)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestRunHonoursCustomBudgets(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	w := NewWriter(dir)
	w.Targets = map[string]int{"tiny": 8}
	slugMap := map[string]places.Entry{
		"square": {WikidataID: "Q1", Geometry: square(t, 1)},
	}

	_, err := w.Run(slugMap)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "square.tiny.geojson"))
	require.NoError(t, err)
	g, err := geojson.UnmarshalGeometry(data)
	require.NoError(t, err)
	poly, ok := g.Geometry().(orb.Polygon)
	require.True(t, ok)
	assert.LessOrEqual(t, len(poly[0]), 8)
}
