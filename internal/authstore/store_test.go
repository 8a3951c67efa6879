package authstore

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chromedp/cdproto/network"
)

func sampleState(id string) *AuthState {
	return &AuthState{
		SessionID: id,
		Username:  "trader1",
		Cookies: []*network.Cookie{
			{Name: "SCSESSID", Value: "abc123", Domain: ".stockcharts.com", Path: "/", Secure: true, HTTPOnly: true, Expires: 1.9e9},
			{Name: "prefs", Value: "dark", Domain: ".stockcharts.com", Path: "/"},
		},
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store := New(t.TempDir())

	if err := store.Save(sampleState("main")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got := store.Load("main")
	if got == nil {
		t.Fatal("Load() = nil, want stored state")
	}
	if got.SessionID != "main" || len(got.Cookies) != 2 {
		t.Fatalf("Load() = %+v, want session main with 2 cookies", got)
	}
	if got.Cookies[0].Name != "SCSESSID" || got.Cookies[0].Value != "abc123" {
		t.Fatalf("cookie[0] = %+v, want SCSESSID=abc123", got.Cookies[0])
	}
	if got.SavedAt.IsZero() {
		t.Fatal("SavedAt not stamped on save")
	}
}

func TestLoadAbsentReturnsNil(t *testing.T) {
	store := New(t.TempDir())
	if got := store.Load("never-saved"); got != nil {
		t.Fatalf("Load() = %+v, want nil for absent state", got)
	}
}

func TestLoadCorruptDiscards(t *testing.T) {
	dir := t.TempDir()
	store := New(dir)

	if err := store.Save(sampleState("main")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	path := store.path("main")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}

	if got := store.Load("main"); got != nil {
		t.Fatalf("Load() = %+v, want nil for corrupt state", got)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("corrupt state file not removed")
	}
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store := New(dir)

	if err := store.Save(sampleState("main")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Fatalf("temp file %s left behind", e.Name())
		}
	}
}

func TestPathSanitizesSessionID(t *testing.T) {
	dir := t.TempDir()
	store := New(dir)

	if err := store.Save(sampleState("../evil/session")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries in store dir, want 1", len(entries))
	}
	if got := filepath.Dir(store.path("../evil/session")); got != dir {
		t.Fatalf("path escapes store dir: %s", got)
	}
}

func TestCookieParamsConversion(t *testing.T) {
	state := sampleState("main")
	params := state.CookieParams()
	if len(params) != 2 {
		t.Fatalf("CookieParams() = %d entries, want 2", len(params))
	}
	if params[0].Name != "SCSESSID" || !params[0].Secure || !params[0].HTTPOnly {
		t.Fatalf("params[0] = %+v, want secure http-only SCSESSID", params[0])
	}
	if params[0].Expires == nil {
		t.Fatal("params[0].Expires = nil, want converted expiry")
	}
	if params[1].Expires != nil {
		t.Fatal("params[1].Expires set for session cookie, want nil")
	}
}
