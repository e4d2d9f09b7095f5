package secrets

import (
	"context"
	"testing"

	"signal-trading-bot/config"
)

func TestDisabledStoreIsCacheOnly(t *testing.T) {
	s, err := NewStore(config.VaultConfig{Enabled: false})
	if err != nil {
		t.Fatalf("disabled store must construct: %v", err)
	}
	ctx := context.Background()

	if err := s.Health(ctx); err != nil {
		t.Errorf("disabled store is always healthy, got %v", err)
	}

	if _, err := s.Get(ctx, "binance"); err == nil {
		t.Error("missing credentials must error")
	}

	creds := Credentials{APIKey: "key", SecretKey: "secret", Exchange: "binance"}
	if err := s.Put(ctx, creds); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	got, err := s.Get(ctx, "binance")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got != creds {
		t.Errorf("got %+v, want %+v", got, creds)
	}

	if err := s.Delete(ctx, "binance"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := s.Get(ctx, "binance"); err == nil {
		t.Error("deleted credentials must be gone")
	}
}
