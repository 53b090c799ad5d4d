package database

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaskURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"postgres://user:secret@db:5432/sklad", "postgres://user:***@db:5432/sklad"},
		{"postgres://user@db/sklad", "postgres://user@db/sklad"},
		{"redis://localhost:6379/0", "redis://localhost:6379/0"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MaskURL(tt.in))
	}
}

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	ups, err := fs.Glob(migrationsFS, "migrations/*.up.sql")
	require.NoError(t, err)
	downs, err := fs.Glob(migrationsFS, "migrations/*.down.sql")
	require.NoError(t, err)

	require.NotEmpty(t, ups)
	assert.Equal(t, len(ups), len(downs))
}

func TestOpenSQLite(t *testing.T) {
	db, err := OpenSQLite("file::memory:")
	require.NoError(t, err)
	defer ClosePostgres(db)

	assert.False(t, IsPostgres(db))
	assert.False(t, IsPostgres(nil))
}
