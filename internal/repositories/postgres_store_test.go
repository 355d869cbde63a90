package repositories

import (
	"database/sql"
	"fmt"
	"os"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/evn/grubana/db"
)

// Runs only against a disposable database: TEST_DATABASE_DSN=postgres://... go test ./...
func TestPostgresStore_Contract(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN not set")
	}

	conn, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, db.Migrate(conn))

	runStoreContract(t, NewPostgresStore(conn), fmt.Sprintf("pgtest-%d-", time.Now().UnixNano()))
}
