package middleware_test

import (
	"context"
	"crypto/rand"
	"io"
	"testing"

	"github.com/aretw0/fable/pkg/adapters/memory"
	"github.com/aretw0/fable/pkg/domain"
	"github.com/aretw0/fable/pkg/persistence/middleware"
	"github.com/aretw0/fable/pkg/ports"
)

func generateKey(t *testing.T) []byte {
	k := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, k); err != nil {
		t.Fatal(err)
	}
	return k
}

func TestEncryptionMiddleware_Contract(t *testing.T) {
	mw := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	ports.RunSessionStoreContract(t, mw(memory.NewStore()))
}

func TestEncryptionMiddleware_Roundtrip(t *testing.T) {
	underlyingStore := memory.NewStore()
	mw := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	secureStore := mw(underlyingStore)

	ctx := context.Background()
	sessionID := "test-session"
	original := domain.NewSession(sessionID)
	original.Turn = 4
	original.State["secret"] = domain.Str("my-secret-sauce")

	if err := secureStore.Save(ctx, sessionID, original); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	stored, err := underlyingStore.Load(ctx, sessionID)
	if err != nil {
		t.Fatalf("Underlying load failed: %v", err)
	}
	if val, ok := stored.State["secret"]; ok {
		t.Fatalf("Expected secret to be hidden, found: %v", val)
	}
	if _, ok := stored.State["__encrypted__"]; !ok {
		t.Fatal("Expected __encrypted__ field in state")
	}
	if stored.Turn != 4 {
		t.Errorf("Expected envelope to expose turn 4, got %d", stored.Turn)
	}

	loaded, err := secureStore.Load(ctx, sessionID)
	if err != nil {
		t.Fatalf("Load via middleware failed: %v", err)
	}
	if got := loaded.State["secret"].String(); got != "my-secret-sauce" {
		t.Errorf("Expected 'my-secret-sauce', got %v", got)
	}
}

func TestEncryptionMiddleware_KeyRotation(t *testing.T) {
	underlyingStore := memory.NewStore()
	oldKey := generateKey(t)
	newKey := generateKey(t)

	secureStoreOld := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: oldKey})(underlyingStore)

	ctx := context.Background()
	sessionID := "rotation-session"
	original := domain.NewSession(sessionID)
	original.State["data"] = domain.Str("encrypted-with-old-key")

	if err := secureStoreOld.Save(ctx, sessionID, original); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	secureStoreNew := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey:    newKey,
		FallbackKeys: [][]byte{oldKey},
	})(underlyingStore)

	loaded, err := secureStoreNew.Load(ctx, sessionID)
	if err != nil {
		t.Fatalf("Load with rotated key failed: %v", err)
	}
	if loaded.State["data"].String() != "encrypted-with-old-key" {
		t.Errorf("Decryption with fallback key failed")
	}

	loaded.State["data"] = domain.Str("encrypted-with-new-key")
	if err := secureStoreNew.Save(ctx, sessionID, loaded); err != nil {
		t.Fatalf("Save with new key failed: %v", err)
	}

	if _, err = secureStoreOld.Load(ctx, sessionID); err == nil {
		t.Error("Expected failure when loading new-key encryption with old-key middleware")
	}
}

func TestEncryptionMiddleware_RejectsPlainSession(t *testing.T) {
	underlyingStore := memory.NewStore()
	_ = underlyingStore.Save(context.Background(), "plain", domain.NewSession("plain"))

	secureStore := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})(underlyingStore)
	if _, err := secureStore.Load(context.Background(), "plain"); err == nil {
		t.Error("Expected plain session to be rejected")
	}
}

func TestEncryptionMiddleware_InvalidKey(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Errorf("Expected panic for invalid key size")
		}
	}()
	middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: []byte("short-key")})
}

func TestEncryptionMiddleware_BoundToSessionID(t *testing.T) {
	underlyingStore := memory.NewStore()
	secureStore := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})(underlyingStore)
	ctx := context.Background()

	if err := secureStore.Save(ctx, "alice", domain.NewSession("alice")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	envelope, err := underlyingStore.Load(ctx, "alice")
	if err != nil {
		t.Fatalf("Underlying load failed: %v", err)
	}
	if err := underlyingStore.Save(ctx, "mallory", envelope); err != nil {
		t.Fatalf("Copy failed: %v", err)
	}

	if _, err := secureStore.Load(ctx, "mallory"); err == nil {
		t.Error("Expected envelope copied under another id to be rejected")
	}
}
