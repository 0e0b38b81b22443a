package media

import (
	"errors"
	"strings"
	"testing"
	"time"
)

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 32)...)

func TestResolvePrefersLocalFile(t *testing.T) {
	cache := NewPreviewCache("/api/admin/previews/file")
	file := &LocalFile{Name: "hero.png", Data: pngBytes}

	preview, err := Resolve(cache, file, "https://cdn.test/old.png")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if preview.Source != SourceLocal || preview.Ref == "" {
		t.Fatalf("expected local preview, got %+v", preview)
	}
	if !strings.HasPrefix(preview.Ref, "preview_") {
		t.Fatalf("unexpected ref %q", preview.Ref)
	}
	if preview.URL != "/api/admin/previews/file/"+preview.Ref {
		t.Fatalf("unexpected url %q", preview.URL)
	}
	if cache.Len() != 1 {
		t.Fatalf("expected one live reference, got %d", cache.Len())
	}
}

func TestResolveFallsBackToRemote(t *testing.T) {
	cache := NewPreviewCache("/p")
	preview, err := Resolve(cache, nil, "https://cdn.test/banner.jpg")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if preview.Source != SourceRemote || preview.URL != "https://cdn.test/banner.jpg" || preview.Ref != "" {
		t.Fatalf("unexpected preview %+v", preview)
	}
	if cache.Len() != 0 {
		t.Fatalf("remote previews must not allocate references")
	}
}

func TestResolveWithNothing(t *testing.T) {
	_, err := Resolve(NewPreviewCache("/p"), &LocalFile{}, "  ")
	if !errors.Is(err, ErrNoPreview) {
		t.Fatalf("expected ErrNoPreview, got %v", err)
	}
}

func TestCacheOpenAndRelease(t *testing.T) {
	cache := NewPreviewCache("/p")
	data := []byte("abc")
	ref := cache.Create(LocalFile{Name: "a", Data: data})
	data[0] = 'z'

	file, ok := cache.Open(ref)
	if !ok || string(file.Data) != "abc" {
		t.Fatalf("expected stored copy, got %q ok=%v", file.Data, ok)
	}

	cache.Release(ref)
	cache.Release(ref)
	if _, ok := cache.Open(ref); ok {
		t.Fatalf("released ref should be gone")
	}
}

func TestSlotReleasesPreviousReference(t *testing.T) {
	cache := NewPreviewCache("/p")
	slot := NewSlot(cache)

	first, err := slot.Select(&LocalFile{Data: pngBytes}, "")
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	second, err := slot.Select(&LocalFile{Data: pngBytes}, "")
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if first.Ref == second.Ref {
		t.Fatalf("expected a fresh reference per selection")
	}
	if _, ok := cache.Open(first.Ref); ok {
		t.Fatalf("previous reference should be released")
	}
	if cache.Len() != 1 {
		t.Fatalf("expected exactly one live reference, got %d", cache.Len())
	}

	if _, err := slot.Select(nil, "https://cdn.test/x.png"); err != nil {
		t.Fatalf("select remote: %v", err)
	}
	if cache.Len() != 0 {
		t.Fatalf("switching to remote should release the local reference")
	}
}

func TestSlotCloseReleases(t *testing.T) {
	cache := NewPreviewCache("/p")
	slots := NewSlots(cache)

	if _, err := slots.ForOwner("admin-1", "banner:1").Select(&LocalFile{Data: pngBytes}, ""); err != nil {
		t.Fatalf("select: %v", err)
	}
	if _, err := slots.ForOwner("admin-1", "product:2").Select(&LocalFile{Data: pngBytes}, ""); err != nil {
		t.Fatalf("select: %v", err)
	}
	if _, err := slots.ForOwner("admin-2", "banner:1").Select(&LocalFile{Data: pngBytes}, ""); err != nil {
		t.Fatalf("select: %v", err)
	}

	slots.Close("admin-1", "banner:1")
	slots.Close("admin-1", "banner:1")
	if cache.Len() != 2 {
		t.Fatalf("expected 2 live references, got %d", cache.Len())
	}
	if n := slots.CloseOwner("admin-1"); n != 1 {
		t.Fatalf("expected 1 slot closed, got %d", n)
	}
	if cache.Len() != 1 {
		t.Fatalf("expected other owner's reference to survive, got %d", cache.Len())
	}
}

func TestSlotsSweepReleasesIdleOwners(t *testing.T) {
	cache := NewPreviewCache("/p")
	slots := NewSlots(cache)
	clock := time.Unix(1_700_000_000, 0)
	slots.now = func() time.Time { return clock }

	if _, err := slots.ForOwner("idle", "banner:1").Select(&LocalFile{Data: pngBytes}, ""); err != nil {
		t.Fatalf("select: %v", err)
	}
	clock = clock.Add(20 * time.Minute)
	if _, err := slots.ForOwner("busy", "banner:1").Select(&LocalFile{Data: pngBytes}, ""); err != nil {
		t.Fatalf("select: %v", err)
	}
	if slots.Len() != 2 {
		t.Fatalf("expected 2 owners, got %d", slots.Len())
	}

	if n := slots.Sweep(10 * time.Minute); n != 1 {
		t.Fatalf("expected 1 owner swept, got %d", n)
	}
	if slots.Len() != 1 || cache.Len() != 1 {
		t.Fatalf("expected busy owner to survive, owners=%d refs=%d", slots.Len(), cache.Len())
	}

	clock = clock.Add(time.Hour)
	slots.Sweep(10 * time.Minute)
	if slots.Len() != 0 || cache.Len() != 0 {
		t.Fatalf("expected everything released, owners=%d refs=%d", slots.Len(), cache.Len())
	}
}
