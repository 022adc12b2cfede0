package configutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

type testPortal struct {
	BaseUrl string `json:"base_url"`
	Term    string `json:"term"`
}

type testConfig struct {
	Portal testPortal `json:"portal"`
	Weeks  int        `json:"weeks"`
}

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
}

func TestReadConfig(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "config.json5")

	_, err := ReadConfig[testConfig](name)
	require.ErrorIs(t, err, os.ErrNotExist)

	writeFile(t, name, `{
		// comments are allowed
		portal: { base_url: "https://jw.example.edu", term: "2025-2026-1" },
		weeks: 21,
	}`)
	writeFile(t, filepath.Join(dir, "config.local.json5"), `{ portal: { term: "2025-2026-2" } }`)

	config, err := ReadConfig[testConfig](name)
	require.NoError(t, err)

	expected := testConfig{
		Portal: testPortal{BaseUrl: "https://jw.example.edu", Term: "2025-2026-2"},
		Weeks:  21,
	}
	if diff := cmp.Diff(expected, config); diff != "" {
		t.Fatal(diff)
	}
}

func TestReadWithDefaults(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "config.json5")
	defaults := testConfig{
		Portal: testPortal{BaseUrl: "https://default.example.edu", Term: "2025-2026-1"},
		Weeks:  21,
	}

	config, err := ReadWithDefaults(name, defaults)
	require.NoError(t, err)
	require.Equal(t, defaults, config)

	writeFile(t, name, `{ weeks: 18 }`)
	config, err = ReadWithDefaults(name, defaults)
	require.NoError(t, err)
	require.Equal(t, 18, config.Weeks)
	require.Equal(t, defaults.Portal, config.Portal)

	writeFile(t, name, `{ weeks: `)
	_, err = ReadWithDefaults(name, defaults)
	require.Error(t, err)
}

func TestReadRecursively(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0755))
	writeFile(t, filepath.Join(dir, "telemetry.json5"), `{ weeks: 3 }`)

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(nested))
	t.Cleanup(func() { os.Chdir(wd) })

	config, err := ReadRecursively[testConfig]("telemetry.json5")
	require.NoError(t, err)
	require.Equal(t, 3, config.Weeks)
}

func TestReadRecursivelyWithDefaults(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "a")
	require.NoError(t, os.MkdirAll(nested, 0755))
	writeFile(t, filepath.Join(dir, "jw.json5"), `{ portal: { term: "2025-2026-2" } }`)

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(nested))
	t.Cleanup(func() { os.Chdir(wd) })

	defaults := testConfig{
		Portal: testPortal{BaseUrl: "https://default.example.edu", Term: "2025-2026-1"},
		Weeks:  21,
	}
	config, err := ReadRecursivelyWithDefaults("jw.json5", defaults)
	require.NoError(t, err)

	expected := testConfig{
		Portal: testPortal{BaseUrl: "https://default.example.edu", Term: "2025-2026-2"},
		Weeks:  21,
	}
	if diff := cmp.Diff(expected, config); diff != "" {
		t.Fatal(diff)
	}

	config, err = ReadRecursivelyWithDefaults("missing.json5", defaults)
	require.NoError(t, err)
	require.Equal(t, defaults, config)
}
