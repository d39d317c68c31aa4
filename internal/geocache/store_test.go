package geocache

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/cyberattack-map/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestOpen_MissingFile(t *testing.T) {
	s := Open(filepath.Join(t.TempDir(), "geo_cache.json"), discardLogger())
	assert.Equal(t, 0, s.Len())
}

func TestOpen_CorruptFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "geo_cache.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	s := Open(path, discardLogger())
	assert.Equal(t, 0, s.Len())
}

func TestOpen_CorruptFileMovedAside(t *testing.T) {
	path := filepath.Join(t.TempDir(), "geo_cache.json")
	edited := []byte(`{"rotterdam": {"lat": 51.92, "lon": 4.46},}`)
	require.NoError(t, os.WriteFile(path, edited, 0o600))

	s := Open(path, discardLogger())
	assert.Equal(t, 0, s.Len())
	assert.NoFileExists(t, path)

	backup, err := os.ReadFile(path + CorruptSuffix)
	require.NoError(t, err)
	assert.Equal(t, edited, backup)

	// Saving the fresh cache leaves the hand-edited copy intact.
	s.Put("utrecht", &domain.Coordinates{Lat: 52.09, Lon: 5.12})
	require.NoError(t, s.Save())
	backup, err = os.ReadFile(path + CorruptSuffix)
	require.NoError(t, err)
	assert.Equal(t, edited, backup)
	assert.FileExists(t, path)
}

func TestOpen_EmptyFileNotMovedAside(t *testing.T) {
	path := filepath.Join(t.TempDir(), "geo_cache.json")
	require.NoError(t, os.WriteFile(path, []byte("  \n"), 0o600))

	assert.Equal(t, 0, Open(path, discardLogger()).Len())
	assert.FileExists(t, path)
	assert.NoFileExists(t, path+CorruptSuffix)
}

func TestOpen_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "geo_cache.json")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	assert.Equal(t, 0, Open(path, discardLogger()).Len())
}

func TestOpen_ReadsMarkers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "geo_cache.json")
	content := `{
  "rotterdam": {"lat": 51.9225, "lon": 4.47917},
  "atlantis": null
}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	s := Open(path, discardLogger())
	require.Equal(t, 2, s.Len())

	coords, ok := s.Get("rotterdam")
	require.True(t, ok)
	assert.Equal(t, &domain.Coordinates{Lat: 51.9225, Lon: 4.47917}, coords)

	coords, ok = s.Get("atlantis")
	assert.True(t, ok)
	assert.Nil(t, coords)

	_, ok = s.Get("utrecht")
	assert.False(t, ok)
}

func TestSave_JSONFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "geo_cache.json")
	s := Open(path, discardLogger())
	s.Put("utrecht", &domain.Coordinates{Lat: 52.0907, Lon: 5.1214})
	s.Put("den bosch", nil)
	s.Put("zoetermeer & co", nil)
	require.NoError(t, s.Save())

	got, err := os.ReadFile(path)
	require.NoError(t, err)

	want := `{
  "den bosch": null,
  "utrecht": {
    "lat": 52.0907,
    "lon": 5.1214
  },
  "zoetermeer & co": null
}
`
	assert.Equal(t, want, string(got))
}

func TestSave_NonASCIIUnescaped(t *testing.T) {
	path := filepath.Join(t.TempDir(), "geo_cache.json")
	s := Open(path, discardLogger())
	s.Put("’s-hertogenbosch", &domain.Coordinates{Lat: 51.69, Lon: 5.30})
	require.NoError(t, s.Save())

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(got), `"’s-hertogenbosch"`)
}

func TestSave_RoundTripYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "geo_cache.yaml")
	s := Open(path, discardLogger())
	s.Put("rotterdam", &domain.Coordinates{Lat: 51.9225, Lon: 4.47917})
	s.Put("nowhere", nil)
	require.NoError(t, s.Save())

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(got), "nowhere: null")

	reopened := Open(path, discardLogger())
	assert.Equal(t, []string{"nowhere", "rotterdam"}, reopened.Keys())
	coords, ok := reopened.Get("nowhere")
	assert.True(t, ok)
	assert.Nil(t, coords)
	coords, ok = reopened.Get("rotterdam")
	require.True(t, ok)
	assert.InDelta(t, 51.9225, coords.Lat, 1e-9)
}

func TestSave_UnwritableDirectory(t *testing.T) {
	s := Open(filepath.Join(t.TempDir(), "missing", "geo_cache.json"), discardLogger())
	s.Put("utrecht", nil)
	err := s.Save()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "save geocode cache")
}

func TestStore_GetReturnsCopy(t *testing.T) {
	s := Open(filepath.Join(t.TempDir(), "c.json"), discardLogger())
	s.Put("utrecht", &domain.Coordinates{Lat: 1, Lon: 2})

	c, _ := s.Get("utrecht")
	c.Lat = 99

	again, _ := s.Get("utrecht")
	assert.InDelta(t, 1, again.Lat, 0)
}

func TestStore_DeleteAndKeys(t *testing.T) {
	s := Open(filepath.Join(t.TempDir(), "c.json"), discardLogger())
	s.Put("b", nil)
	s.Put("a", &domain.Coordinates{})

	assert.Equal(t, []string{"a", "b"}, s.Keys())
	assert.True(t, s.Delete("b"))
	assert.False(t, s.Delete("b"))
	assert.Equal(t, []string{"a"}, s.Keys())
}
