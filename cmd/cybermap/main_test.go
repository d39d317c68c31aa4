package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/cyberattack-map/internal/domain"
)

const testCSV = `date,place,company,company_domain,attack_type,consequence,perpetrator,Addcom_related,state_related
Jan 17,Rotterdam,Port of Rotterdam,portofrotterdam.com,DDoS,Website offline,NoName057(16),no,yes
"March 5, 2024",Den Haag,AddComm,addcomm.nl,Ransomware,Systems down,LockBit,yes,no
sometime,rotterdam,Acme BV,acme.nl,Phishing,,,,
`

// isolateEnv clears variables that would otherwise leak into config.Load.
func isolateEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"CYBERMAP_INPUT", "CYBERMAP_OUTPUT", "CYBERMAP_CACHE", "CYBERMAP_DEFAULT_YEAR",
		"CYBERMAP_TITLE", "GEOCODER_PROVIDER", "MAPBOX_TOKEN", "NOMINATIM_URL",
		"KAFKA_BROKERS", "PUSHGATEWAY_URL",
	} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
	t.Setenv("LOG_LEVEL", "error")
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := newRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func readCache(t *testing.T, path string) map[string]*domain.Coordinates {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var entries map[string]*domain.Coordinates
	require.NoError(t, json.Unmarshal(data, &entries))
	return entries
}

func TestRootCommand_Subcommands(t *testing.T) {
	cmd := newRootCommand()

	names := make(map[string]bool)
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	assert.True(t, names["generate"], "should have generate command")
	assert.True(t, names["validate"], "should have validate command")
	assert.True(t, names["cache"], "should have cache command")

	cacheCmd, _, err := cmd.Find([]string{"cache"})
	require.NoError(t, err)
	sub := make(map[string]bool)
	for _, c := range cacheCmd.Commands() {
		sub[c.Name()] = true
	}
	assert.True(t, sub["list"])
	assert.True(t, sub["forget"])
	assert.True(t, sub["prune"])
}

func TestGenerate_Offline(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	input := writeFile(t, dir, "incidents.csv", testCSV)
	output := filepath.Join(dir, "map.html")
	cache := filepath.Join(dir, "geo_cache.json")

	out, err := execute(t, "--offline", "--input", input, "--output", output, "--cache", cache)
	require.NoError(t, err)

	assert.Contains(t, out, "Done, HTML file generated: "+output)
	assert.Contains(t, out, "3 incidents, 2 places (0 looked up, 0 from cache), 3 at the fallback location.")
	assert.Contains(t, out, "Check "+cache+" for stored coordinates")

	html, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Contains(t, string(html), "Distribution of Cyberattacks in the Netherlands in 2024")
	assert.Contains(t, string(html), "Port of Rotterdam")

	// Offline misses are not recorded.
	assert.NoFileExists(t, cache)
}

func TestGenerate_NominatimThenCache(t *testing.T) {
	isolateEnv(t)
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.Header().Set("Content-Type", "application/json")
		if strings.HasPrefix(r.URL.Query().Get("q"), "Rotterdam") {
			_, _ = w.Write([]byte(`[{"lat":"51.9228958","lon":"4.4631727","display_name":"Rotterdam"}]`))
			return
		}
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	t.Setenv("GEOCODER_PROVIDER", "nominatim")
	t.Setenv("NOMINATIM_URL", srv.URL)
	t.Setenv("GEOCODER_MIN_INTERVAL", "0s")
	t.Setenv("GEOCODER_ERROR_WAIT", "0s")

	dir := t.TempDir()
	input := writeFile(t, dir, "incidents.csv", testCSV)
	output := filepath.Join(dir, "map.html")
	cache := filepath.Join(dir, "geo_cache.json")
	args := []string{"generate", "--input", input, "--output", output, "--cache", cache}

	out, err := execute(t, args...)
	require.NoError(t, err)
	assert.Contains(t, out, "3 incidents, 2 places (2 looked up, 0 from cache), 1 at the fallback location.")
	assert.Equal(t, int32(2), requests.Load())

	entries := readCache(t, cache)
	require.Contains(t, entries, "rotterdam")
	require.NotNil(t, entries["rotterdam"])
	assert.InDelta(t, 51.9228958, entries["rotterdam"].Lat, 1e-9)
	require.Contains(t, entries, "den haag")
	assert.Nil(t, entries["den haag"])

	// Second run is served entirely from the cache, markers included.
	out, err = execute(t, args...)
	require.NoError(t, err)
	assert.Contains(t, out, "(0 looked up, 2 from cache)")
	assert.Equal(t, int32(2), requests.Load())
}

func TestGenerate_InvalidYearFlag(t *testing.T) {
	isolateEnv(t)
	_, err := execute(t, "--offline", "--year", "24")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CYBERMAP_DEFAULT_YEAR")
}

func TestGenerate_MissingInput(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	_, err := execute(t, "--offline",
		"--input", filepath.Join(dir, "missing.csv"),
		"--output", filepath.Join(dir, "map.html"),
		"--cache", filepath.Join(dir, "geo_cache.json"),
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "extract")
	assert.NoFileExists(t, filepath.Join(dir, "map.html"))
}

func TestValidate(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	input := writeFile(t, dir, "incidents.csv", `date,place,company
Jan 17,Rotterdam,Acme
whenever,,Acme
Feb 2,Utrecht,Acme
`)
	cache := writeFile(t, dir, "geo_cache.json", `{"rotterdam": {"lat": 51.92, "lon": 4.46}, "utrecht": null}`)

	out, err := execute(t, "validate", "--input", input, "--cache", cache)
	require.NoError(t, err)

	assert.Contains(t, out, "Records: 3")
	assert.Contains(t, out, `missing column "company_domain"`)
	assert.Contains(t, out, `row 2: unparseable date "whenever"`)
	assert.Contains(t, out, "row 2: empty place")
	assert.Contains(t, out, "Utrecht: marked unresolvable")
	assert.NotContains(t, out, "Rotterdam:")
	assert.Contains(t, out, "Validation found issues.")

	_, err = execute(t, "validate", "--strict", "--input", input, "--cache", cache)
	require.ErrorIs(t, err, errValidationFailed)
}

func TestValidate_CachedPlaces(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	input := writeFile(t, dir, "incidents.csv", testCSV)
	cache := writeFile(t, dir, "geo_cache.json",
		`{"rotterdam": {"lat": 51.92, "lon": 4.46}, "den haag": {"lat": 52.07, "lon": 4.3}}`)

	// "sometime" cannot be parsed, so only the date phase fails.
	out, err := execute(t, "validate", "--input", input, "--cache", cache)
	require.NoError(t, err)
	assert.Contains(t, out, "Geocode cache")
	assert.Contains(t, out, `row 3: unparseable date "sometime"`)
	assert.NotContains(t, out, "--- Geocode cache ---")
	assert.NotContains(t, out, "--- Input columns ---")
}

func TestCacheCommands(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	cache := writeFile(t, dir, "geo_cache.json",
		`{"rotterdam": {"lat": 51.9228958, "lon": 4.4631727}, "atlantis": null, "utrecht": {"lat": 52.09, "lon": 5.12}}`)

	out, err := execute(t, "cache", "list", "--cache", cache)
	require.NoError(t, err)
	assert.Equal(t, "atlantis\tunresolvable\n"+
		"rotterdam\t51.922896,4.463173\n"+
		"utrecht\t52.090000,5.120000\n"+
		"3 entries in "+cache+"\n", out)

	out, err = execute(t, "cache", "prune", "--cache", cache)
	require.NoError(t, err)
	assert.Equal(t, "removed 1 unresolvable entries\n", out)
	assert.NotContains(t, readCache(t, cache), "atlantis")

	out, err = execute(t, "cache", "forget", "--cache", cache, " Utrecht ", "Atlantis")
	require.NoError(t, err)
	assert.Contains(t, out, "forgot utrecht")
	assert.Contains(t, out, "not cached: Atlantis")

	entries := readCache(t, cache)
	assert.Len(t, entries, 1)
	assert.Contains(t, entries, "rotterdam")
}

func TestCacheForget_RequiresPlace(t *testing.T) {
	isolateEnv(t)
	_, err := execute(t, "cache", "forget")
	require.Error(t, err)
}
