package repositories

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/stretchr/testify/require"
)

// The firestore client talks to the emulator when FIRESTORE_EMULATOR_HOST is set.
func TestFirestoreStore_Contract(t *testing.T) {
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}

	client, err := firestore.NewClient(context.Background(), "grubana-test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	runStoreContract(t, NewFirestoreStore(client), fmt.Sprintf("fstest-%d-", time.Now().UnixNano()))
}
