package sqlstore

import (
	"context"
	"testing"

	"github.com/ChromeUniverse/luccachat/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

var testStore *SQLStore

func SetupTestDB(t *testing.T) {
	var err error
	testStore, err = New("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
}

func TeardownTestDB() {
	testStore.db.Close()
}

func createTestUser(t *testing.T, id, handle string) *models.User {
	t.Helper()
	u := createTestUserValue(id, handle)
	if err := testStore.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("Failed to create user %s: %v", handle, err)
	}
	return u
}

func createTestGroup(t *testing.T, id, creatorID string) *models.Chat {
	t.Helper()
	c := &models.Chat{ID: id, Name: "Group " + id, CreatorID: creatorID, InviteCode: "code-" + id}
	if err := testStore.CreateGroup(context.Background(), c); err != nil {
		t.Fatalf("Failed to create group %s: %v", id, err)
	}
	return c
}

func createTestUserValue(id, handle string) *models.User {
	return &models.User{ID: id, Name: handle, Handle: handle}
}
