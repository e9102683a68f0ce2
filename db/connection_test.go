package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenCreatesDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	conn, err := Open(path, nil)
	require.NoError(t, err)
	defer conn.Close()

	var mode string
	require.NoError(t, conn.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)

	var fk int
	require.NoError(t, conn.QueryRow("PRAGMA foreign_keys").Scan(&fk))
	assert.Equal(t, 1, fk)
}

func TestEnsureSchemaIdempotent(t *testing.T) {
	conn, err := Open(filepath.Join(t.TempDir(), "test.db"), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, EnsureSchema(conn))
	require.NoError(t, EnsureSchema(conn))

	for _, table := range []string{"generation_jobs", "documents", "audit_log"} {
		var name string
		err := conn.QueryRow(
			"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table,
		).Scan(&name)
		require.NoError(t, err, table)
		assert.Equal(t, table, name)
	}
}

func TestForeignKeysEnforced(t *testing.T) {
	conn, err := Open(filepath.Join(t.TempDir(), "test.db"), nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, EnsureSchema(conn))

	_, err = conn.Exec(`
		INSERT INTO documents (id, job_id, company_profile_id, framework, template_id,
			title, category, provider_used, status, created_at, updated_at)
		VALUES ('d1', 'no-such-job', 'acme', 'SOC2', 'soc2-infosec-policy',
			'Policy', 'policy', 'anthropic', 'generated', datetime('now'), datetime('now'))`)

	assert.Error(t, err)
}
