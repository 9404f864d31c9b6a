package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/acampos/colegio/internal/db"
	"github.com/acampos/colegio/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return New(db.NewTestDB(t))
}

func TestLoadMissingKey(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	var books []model.Book
	found, err := st.Load(ctx, KeyBooks, &books)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if found {
		t.Error("expected missing key to report not found")
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	in := []model.Book{
		{ID: "1", Title: "Cien años de soledad", Author: "Gabriel García Márquez", Quantity: 5},
		{ID: "2", Title: "El principito", Author: "Antoine de Saint-Exupéry", Quantity: 10},
	}
	if err := st.Save(ctx, KeyBooks, in); err != nil {
		t.Fatalf("Save: %v", err)
	}

	var out []model.Book
	found, err := st.Load(ctx, KeyBooks, &out)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !found {
		t.Fatal("expected saved key to be found")
	}
	if len(out) != 2 || out[0].Title != "Cien años de soledad" {
		t.Errorf("unexpected collection contents: %+v", out)
	}
}

func TestSaveOverwritesWholeCollection(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	st.Save(ctx, KeyBooks, []model.Book{{ID: "1"}, {ID: "2"}})
	st.Save(ctx, KeyBooks, []model.Book{{ID: "3"}})

	var out []model.Book
	st.Load(ctx, KeyBooks, &out)
	if len(out) != 1 || out[0].ID != "3" {
		t.Errorf("expected last save to win, got %+v", out)
	}
}

func TestLoadCorruptedValue(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	// Write a blob that is not a user snapshot.
	if err := st.Save(ctx, KeySession, "not-an-object"); err != nil {
		t.Fatalf("Save: %v", err)
	}

	var u model.User
	found, err := st.Load(ctx, KeySession, &u)
	if !found {
		t.Error("expected corrupted key to report found")
	}
	if !errors.Is(err, ErrCorrupted) {
		t.Errorf("expected ErrCorrupted, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	st.Save(ctx, KeySession, model.User{Username: "ana"})
	if err := st.Delete(ctx, KeySession); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	var u model.User
	found, _ := st.Load(ctx, KeySession, &u)
	if found {
		t.Error("expected deleted key to be gone")
	}

	// Deleting again is fine.
	if err := st.Delete(ctx, KeySession); err != nil {
		t.Errorf("Delete on missing key: %v", err)
	}
}

func TestTokenRevocation(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	revoked, err := st.TokenRevoked(ctx, "jti-1")
	if err != nil {
		t.Fatalf("TokenRevoked: %v", err)
	}
	if revoked {
		t.Error("expected unknown jti to not be revoked")
	}

	if err := st.RevokeToken(ctx, "jti-1", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("RevokeToken: %v", err)
	}

	revoked, _ = st.TokenRevoked(ctx, "jti-1")
	if !revoked {
		t.Error("expected jti to be revoked")
	}
}

func TestJWTSecretStable(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	first, err := st.JWTSecret(ctx)
	if err != nil {
		t.Fatalf("JWTSecret: %v", err)
	}
	second, err := st.JWTSecret(ctx)
	if err != nil {
		t.Fatalf("JWTSecret: %v", err)
	}
	if first == "" || first != second {
		t.Errorf("expected stable secret, got %q then %q", first, second)
	}
}

func TestAssetImages(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	data, mime, err := st.AssetImage(ctx, "a1")
	if err != nil {
		t.Fatalf("AssetImage: %v", err)
	}
	if data != nil || mime != "" {
		t.Error("expected no image for unknown asset")
	}

	if err := st.SetAssetImage(ctx, "a1", []byte("fake image data"), "image/jpeg"); err != nil {
		t.Fatalf("SetAssetImage: %v", err)
	}

	data, mime, _ = st.AssetImage(ctx, "a1")
	if string(data) != "fake image data" || mime != "image/jpeg" {
		t.Errorf("unexpected image round trip: %q %q", data, mime)
	}

	if err := st.DeleteAssetImage(ctx, "a1"); err != nil {
		t.Fatalf("DeleteAssetImage: %v", err)
	}
	data, _, _ = st.AssetImage(ctx, "a1")
	if data != nil {
		t.Error("expected image to be deleted")
	}
}
