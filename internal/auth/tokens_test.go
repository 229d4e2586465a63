package auth

import (
	"context"
	"path/filepath"
	"testing"
)

func TestTokenStores(t *testing.T) {
	stores := map[string]TokenStore{
		"memory": &MemoryTokenStore{},
		"file":   NewFileTokenStore(filepath.Join(t.TempDir(), "nested", "token")),
	}

	ctx := context.Background()
	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			if token, err := store.Token(ctx); err != nil || token != "" {
				t.Fatalf("empty store: token = %q, err = %v", token, err)
			}
			if err := store.SetToken(ctx, "abc"); err != nil {
				t.Fatalf("SetToken failed: %v", err)
			}
			if token, _ := store.Token(ctx); token != "abc" {
				t.Errorf("token = %q, want abc", token)
			}
			if err := store.Clear(ctx); err != nil {
				t.Fatalf("Clear failed: %v", err)
			}
			if token, _ := store.Token(ctx); token != "" {
				t.Errorf("token after Clear = %q, want empty", token)
			}
		})
	}
}
