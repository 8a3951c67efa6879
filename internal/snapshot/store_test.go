package snapshot

import (
	"os"
	"testing"
	"time"
)

func TestSaveStampsAndRoundTrips(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() failed: %v", err)
	}

	meta, err := store.Save(CaptureMeta{
		SessionID:    "main",
		Ticker:       "AAPL",
		ChartList:    "Swing Trades",
		TimeframeBox: 4,
		Phase:        "batch",
	}, []byte("fake-png-bytes"))
	if err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	if err := store.validateID(meta.ID); err != nil {
		t.Fatalf("Save() generated id %q: %v", meta.ID, err)
	}
	if meta.Format != "png" || meta.SizeBytes != len("fake-png-bytes") || meta.CreatedAt.IsZero() {
		t.Fatalf("Save() stamped meta = %+v", meta)
	}

	got, err := store.Get(meta.ID)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if got.Ticker != "AAPL" || got.ChartList != "Swing Trades" || got.TimeframeBox != 4 {
		t.Fatalf("Get() = %+v, want saved fields back", got)
	}

	img, format, err := store.ReadImage(meta.ID)
	if err != nil {
		t.Fatalf("ReadImage() failed: %v", err)
	}
	if string(img) != "fake-png-bytes" || format != "png" {
		t.Fatalf("ReadImage() = %q/%s", img, format)
	}
}

func TestListNewestFirst(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() failed: %v", err)
	}

	old, err := store.Save(CaptureMeta{SessionID: "main", CreatedAt: time.Now().Add(-time.Hour)}, []byte("a"))
	if err != nil {
		t.Fatal(err)
	}
	recent, err := store.Save(CaptureMeta{SessionID: "main"}, []byte("b"))
	if err != nil {
		t.Fatal(err)
	}

	metas, err := store.List()
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if len(metas) != 2 {
		t.Fatalf("List() = %d entries, want 2", len(metas))
	}
	if metas[0].ID != recent.ID || metas[1].ID != old.ID {
		t.Fatalf("List() order = [%s %s], want newest first", metas[0].ID, metas[1].ID)
	}
}

func TestDeleteRemovesBothFiles(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() failed: %v", err)
	}

	meta, err := store.Save(CaptureMeta{SessionID: "main"}, []byte("x"))
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Delete(meta.ID); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	if _, err := store.Get(meta.ID); err == nil {
		t.Fatal("Get() succeeded after Delete()")
	}
	if _, err := os.Stat(store.ImagePath(meta)); !os.IsNotExist(err) {
		t.Fatal("image file survived Delete()")
	}
}

func TestInvalidIDRejected(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() failed: %v", err)
	}
	if _, err := store.Save(CaptureMeta{ID: "../escape"}, []byte("x")); err == nil {
		t.Fatal("Save() accepted a non-uuid id")
	}
	if _, err := store.Get("not-a-uuid"); err == nil {
		t.Fatal("Get() accepted a non-uuid id")
	}
}
