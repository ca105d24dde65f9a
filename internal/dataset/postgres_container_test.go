//go:build integration

package dataset

import (
	"testing"

	"github.com/mbd888/sellerrisk/internal/testutil"
)

func TestPostgresStore_Container(t *testing.T) {
	db, cleanup := testutil.PGContainer(t)
	defer cleanup()
	exercisePostgresStore(t, db)
}
