package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"ecoresiduos/internal/blob/core"
)

func TestMockStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewMock()
	if s.Driver() != core.DriverS3 {
		t.Fatalf("driver = %s", s.Driver())
	}
	info, err := s.Put(ctx, "reports/r.doc", strings.NewReader("<html></html>"), core.PutOptions{
		ContentType: "application/msword",
		Metadata:    map[string]string{"filename": "reporte.doc"},
	})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Size != 13 || info.ContentType != "application/msword" {
		t.Fatalf("unexpected info %+v", info)
	}
	if _, err := s.Put(ctx, "reports/r.doc", bytes.NewReader([]byte("x")), core.PutOptions{}); !errors.Is(err, core.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
	got, rc, err := s.Get(ctx, "reports/r.doc")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(body) != "<html></html>" || got.Metadata["filename"] != "reporte.doc" {
		t.Fatalf("unexpected get %q %+v", body, got)
	}
	if _, err := s.Put(ctx, "charts/c.png", bytes.NewReader([]byte("png")), core.PutOptions{}); err != nil {
		t.Fatalf("put chart: %v", err)
	}
	list, err := s.List(ctx, "reports/")
	if err != nil || len(list) != 1 || list[0].Key != "reports/r.doc" {
		t.Fatalf("list: %+v %v", list, err)
	}
	ok, err := s.Delete(ctx, "reports/r.doc")
	if err != nil || !ok {
		t.Fatalf("delete: %v %v", ok, err)
	}
	if ok, err := s.Delete(ctx, "reports/r.doc"); err != nil || ok {
		t.Fatalf("second delete: %v %v", ok, err)
	}
	if _, _, err := s.Get(ctx, "reports/r.doc"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.Head(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound from head, got %v", err)
	}
}

func TestPresign(t *testing.T) {
	s := NewMock()
	url, err := s.PresignURL(context.Background(), "reports/r.pdf", core.SignedURLOptions{})
	if err != nil || !strings.Contains(url, "mock-bucket/reports/r.pdf") || !strings.Contains(url, "X-Amz-Expires=900") {
		t.Fatalf("presign: %q %v", url, err)
	}
	if _, err := s.PresignURL(context.Background(), "k", core.SignedURLOptions{Method: "PUT"}); !errors.Is(err, core.ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}

func TestNewRequiresBucket(t *testing.T) {
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Fatalf("expected bucket error")
	}
}

func TestPrefixNamespacesKeys(t *testing.T) {
	base := NewMock()
	s := newStore(base.client, "mock-bucket", "tenant")
	if _, err := s.Put(context.Background(), "a.json", strings.NewReader("{}"), core.PutOptions{}); err != nil {
		t.Fatalf("put: %v", err)
	}
	list, err := base.List(context.Background(), "tenant/")
	if err != nil || len(list) != 1 || list[0].Key != "tenant/a.json" {
		t.Fatalf("raw list: %+v %v", list, err)
	}
	list, err = s.List(context.Background(), "")
	if err != nil || len(list) != 1 || list[0].Key != "a.json" {
		t.Fatalf("prefixed list: %+v %v", list, err)
	}
}
