//go:build integration || all

package user_test

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	mongo_ "github.com/mkrupp/taskapp/internal/repo/mongo"

	. "github.com/mkrupp/taskapp/internal/repo/user"
)

func TestMongoUserRepository(t *testing.T) {
	uri := os.Getenv("TASKAPP_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("TASKAPP_TEST_MONGO_URI not set")
	}

	ctx := context.Background()

	db, err := mongo_.Connect(ctx, mongo_.Config{
		URI:      uri,
		Database: "taskapp-test-" + uuid.NewString(),
		Timeout:  10,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = db.Drop(context.Background())
		_ = db.Close()
	})

	testUserRepository(t, NewMongoUserRepository(db))
}
