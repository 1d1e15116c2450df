package migrations_test

import (
	"io/fs"
	"strings"
	"testing"

	"flowboard/internal/migrations"

	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrationsParse(t *testing.T) {
	src, err := iofs.New(migrations.Files(), "sql")
	require.NoError(t, err)
	defer src.Close()

	first, err := src.First()
	require.NoError(t, err)
	assert.Equal(t, uint(1), first)

	up, _, err := src.ReadUp(first)
	require.NoError(t, err)
	up.Close()
	down, _, err := src.ReadDown(first)
	require.NoError(t, err)
	down.Close()
}

func TestSchemaQuotesOrderColumns(t *testing.T) {
	raw, err := fs.ReadFile(migrations.Files(), "sql/000001_init.up.sql")
	require.NoError(t, err)
	schema := string(raw)

	assert.Equal(t, 3, strings.Count(schema, `"order"     INTEGER`))
	assert.Equal(t, 4, strings.Count(schema, "ON DELETE CASCADE"))
}
