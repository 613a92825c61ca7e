package embedding

import (
	"context"
	"path/filepath"
	"testing"
)

func TestCache_RoundTrip(t *testing.T) {
	cache, err := OpenCache(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer cache.Close()

	vec := []float32{0.5, -1.25, 3}
	if err := cache.Put("model-a", "some text", vec); err != nil {
		t.Fatal(err)
	}

	got, ok := cache.Get("model-a", "some text")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if len(got) != 3 || got[0] != 0.5 || got[1] != -1.25 || got[2] != 3 {
		t.Errorf("Get = %v, want %v", got, vec)
	}

	// Different model or text must miss.
	if _, ok := cache.Get("model-b", "some text"); ok {
		t.Error("hit for wrong model")
	}
	if _, ok := cache.Get("model-a", "other text"); ok {
		t.Error("hit for wrong text")
	}
}

func TestCachingProvider_SkipsRemoteOnHit(t *testing.T) {
	cache, err := OpenCache(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer cache.Close()

	fake := &fakeProvider{dims: 2}
	p := NewCachingProvider(fake, cache, "model-a")

	ctx := context.Background()
	first, err := p.EmbedBatch(ctx, []string{"alpha", "beta"})
	if err != nil {
		t.Fatal(err)
	}
	if len(fake.calls) != 1 {
		t.Fatalf("remote calls = %d, want 1", len(fake.calls))
	}

	// Second pass: both texts cached, one new text added.
	second, err := p.EmbedBatch(ctx, []string{"alpha", "gamma", "beta"})
	if err != nil {
		t.Fatal(err)
	}
	if len(fake.calls) != 2 {
		t.Fatalf("remote calls = %d, want 2", len(fake.calls))
	}
	if got := fake.calls[1]; len(got) != 1 || got[0] != "gamma" {
		t.Errorf("second remote call = %v, want only the miss", got)
	}

	if second[0][0] != first[0][0] || second[2][0] != first[1][0] {
		t.Errorf("cached vectors differ from originals")
	}
}
