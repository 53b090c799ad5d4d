package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// newTestApp приложение над файлом SQLite во временной папке со схемой
func newTestApp(t *testing.T) *app {
	t.Helper()
	t.Setenv("SKLAD_CONFIG", "")
	a := &app{
		logger:      zap.NewNop(),
		databaseURL: "sqlite://" + filepath.Join(t.TempDir(), "sklad.db"),
	}
	out, err := execute(a, "migrate", "auto")
	require.NoError(t, err, out)
	return a
}

func execute(a *app, args ...string) (string, error) {
	root := a.rootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestSeedZarizeniIsIdempotent(t *testing.T) {
	a := newTestApp(t)

	out, err := execute(a, "seed", "zarizeni")
	require.NoError(t, err, out)
	assert.NotContains(t, out, "inserted 0 of")

	out, err = execute(a, "seed", "zarizeni")
	require.NoError(t, err, out)
	assert.Contains(t, out, "inserted 0 of")
}

func TestSeedZarizeniFromFile(t *testing.T) {
	a := newTestApp(t)
	path := filepath.Join(t.TempDir(), "zarizeni.yaml")
	catalog := `zarizeni:
  - kod: LIS-01
    nazev: Lis
    umisteni: Hala A
    typ: Lis
`
	require.NoError(t, os.WriteFile(path, []byte(catalog), 0o644))

	out, err := execute(a, "seed", "zarizeni", "--catalog", path)
	require.NoError(t, err, out)
	assert.Equal(t, "inserted 1 of 1\n", out)
}

func TestUserCreate(t *testing.T) {
	a := newTestApp(t)
	t.Setenv("SKLAD_USER_PASSWORD", "")

	_, err := execute(a, "user", "create", "novak", "--email", "novak@hpm.cz")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "password is required")

	out, err := execute(a, "user", "create", "novak", "--email", "novak@hpm.cz", "--password", "tajneheslo123", "--skupina", "skladnik")
	require.NoError(t, err, out)
	assert.True(t, strings.HasPrefix(out, "created novak"))

	_, err = execute(a, "user", "create", "novak", "--email", "novak@hpm.cz", "--password", "tajneheslo123")
	require.Error(t, err)

	_, err = execute(a, "user", "create", "svoboda", "--email", "svoboda@hpm.cz", "--password", "tajneheslo123", "--skupina", "neexistuje")
	require.Error(t, err)
}

func TestImportThenExport(t *testing.T) {
	a := newTestApp(t)
	dir := t.TempDir()
	src := filepath.Join(dir, "dily.csv")
	require.NoError(t, os.WriteFile(src, []byte("Název dílu;Jednotky;Minimum\nKlínový řemen;ks;2\n;ks;1\n"), 0o644))

	out, err := execute(a, "import", src)
	require.NoError(t, err, out)
	assert.Equal(t, "created 1, errors 1\n", out)

	out, err = execute(a, "export", "sklad")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "\ufeffEvidenční číslo;"))
	assert.Contains(t, out, "Klínový řemen")

	xlsx := filepath.Join(dir, "sklad.xlsx")
	_, err = execute(a, "export", "sklad", "--format", "xlsx", "--out", xlsx)
	require.NoError(t, err)
	data, err := os.ReadFile(xlsx)
	require.NoError(t, err)
	assert.Equal(t, "PK", string(data[:2]))
}

func TestExportUnknownFormatLeavesNoFile(t *testing.T) {
	a := newTestApp(t)
	path := filepath.Join(t.TempDir(), "sklad.ods")

	_, err := execute(a, "export", "sklad", "--format", "ods", "--out", path)
	require.Error(t, err)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestReports(t *testing.T) {
	a := newTestApp(t)

	out, err := execute(a, "report", "spotreba", "--format", "html")
	require.NoError(t, err)
	assert.Contains(t, out, "echarts")

	out, err = execute(a, "report", "udrzba")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "%PDF"))

	_, err = execute(a, "export", "audit", "--month", "3")
	require.Error(t, err)
}

func TestSQLMigrationsRequirePostgres(t *testing.T) {
	a := newTestApp(t)
	_, err := execute(a, "migrate", "up")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "migrate auto")
}
