package tests

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/domaindetect/pkg/domain"
	"github.com/aretw0/domaindetect/pkg/ports"
)

// LibraryLoaderContractTest is a reusable test suite that verifies if an adapter complies with ports.LibraryLoader.
// expected lists the domains the loader's backing source holds.
func LibraryLoaderContractTest(t *testing.T, loader ports.LibraryLoader, expected []domain.LibraryDomain) {
	t.Helper()
	ctx := context.Background()

	t.Run("Load_Success", func(t *testing.T) {
		lib, err := loader.Load(ctx)
		if err != nil {
			t.Fatalf("unexpected error loading library: %v", err)
		}
		if lib.Len() != len(expected) {
			t.Errorf("expected %d domains, got %d", len(expected), lib.Len())
		}
		for _, want := range expected {
			got, ok := lib.Domain(want.ID)
			if !ok {
				t.Errorf("domain %s missing from library", want.ID)
				continue
			}
			if got.CanonicalLength() != want.CanonicalLength() {
				t.Errorf("length mismatch for %s. got %d, want %d", want.ID, got.CanonicalLength(), want.CanonicalLength())
			}
		}
	})

	t.Run("Load_Canceled", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := loader.Load(cctx)
		if err == nil {
			t.Fatal("expected error for canceled context, got nil")
		}
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}
