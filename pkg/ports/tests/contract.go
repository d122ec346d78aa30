package tests

import (
	"context"
	"testing"

	"github.com/nearwallets/selector/pkg/domain"
	"github.com/nearwallets/selector/pkg/ports"
)

// RunStorageContract is a reusable suite verifying an adapter complies with
// ports.Storage semantics: last-writer-wins, absence equals removal.
func RunStorageContract(t *testing.T, storage ports.Storage) {
	t.Helper()
	ctx := context.Background()

	t.Run("GetMissing", func(t *testing.T) {
		_, err := storage.Get(ctx, "missing")
		if !ports.IsNotFound(err) {
			t.Fatalf("expected ErrKeyNotFound, got %v", err)
		}
	})

	t.Run("SetGet", func(t *testing.T) {
		if err := storage.Set(ctx, "selectedWalletId", "test-wallet"); err != nil {
			t.Fatalf("set: %v", err)
		}
		got, err := storage.Get(ctx, "selectedWalletId")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got != "test-wallet" {
			t.Errorf("got %q, want %q", got, "test-wallet")
		}
	})

	t.Run("Overwrite", func(t *testing.T) {
		if err := storage.Set(ctx, "k", "v1"); err != nil {
			t.Fatalf("set: %v", err)
		}
		if err := storage.Set(ctx, "k", "v2"); err != nil {
			t.Fatalf("set: %v", err)
		}
		got, err := storage.Get(ctx, "k")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got != "v2" {
			t.Errorf("got %q, want %q", got, "v2")
		}
	})

	t.Run("Remove", func(t *testing.T) {
		if err := storage.Set(ctx, "gone", "x"); err != nil {
			t.Fatalf("set: %v", err)
		}
		if err := storage.Remove(ctx, "gone"); err != nil {
			t.Fatalf("remove: %v", err)
		}
		_, err := storage.Get(ctx, "gone")
		if !ports.IsNotFound(err) {
			t.Fatalf("expected ErrKeyNotFound after remove, got %v", err)
		}
		// Removing an absent key is not an error.
		if err := storage.Remove(ctx, "gone"); err != nil {
			t.Fatalf("remove absent: %v", err)
		}
	})

	t.Run("JSONHelpers", func(t *testing.T) {
		account := domain.Account{AccountID: "alice.near", PublicKey: "ed25519:abc"}
		if err := ports.SetJSON(ctx, storage, "account", account); err != nil {
			t.Fatalf("set json: %v", err)
		}
		got, err := ports.GetJSON[domain.Account](ctx, storage, "account")
		if err != nil {
			t.Fatalf("get json: %v", err)
		}
		if got != account {
			t.Errorf("got %+v, want %+v", got, account)
		}
	})
}
