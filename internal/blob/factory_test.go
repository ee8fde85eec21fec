package blob

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/spf13/afero"
)

func TestOpenDrivers(t *testing.T) {
	ctx := context.Background()
	fsStore, err := Open(ctx, Config{FSRoot: t.TempDir()})
	if err != nil || fsStore.Driver() != DriverFilesystem {
		t.Fatalf("default driver: %v %v", fsStore, err)
	}
	mem, err := Open(ctx, Config{Driver: DriverMemory})
	if err != nil || mem.Driver() != DriverMemory {
		t.Fatalf("memory driver: %v", err)
	}
	if _, err := Open(ctx, Config{Driver: DriverS3}); err == nil {
		t.Fatalf("expected missing bucket error")
	}
	if _, err := Open(ctx, Config{Driver: "ftp"}); err == nil {
		t.Fatalf("expected unknown driver error")
	}
}

func TestStoresShareContract(t *testing.T) {
	fsStore, err := NewFilesystem(afero.NewMemMapFs(), "/blobs", "/files/")
	if err != nil {
		t.Fatalf("NewFilesystem: %v", err)
	}
	for _, s := range []Store{fsStore, NewMemory(), NewMockS3()} {
		ctx := context.Background()
		if _, err := s.Put(ctx, "k.txt", bytes.NewReader([]byte("v")), PutOptions{ContentType: "text/plain"}); err != nil {
			t.Fatalf("%s put: %v", s.Driver(), err)
		}
		if _, err := s.Put(ctx, "k.txt", bytes.NewReader([]byte("v")), PutOptions{}); !errors.Is(err, ErrExists) {
			t.Fatalf("%s duplicate put: %v", s.Driver(), err)
		}
		if _, err := s.Head(ctx, "missing.txt"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("%s head missing: %v", s.Driver(), err)
		}
	}
}
