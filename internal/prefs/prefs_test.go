package prefs

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestKey(t *testing.T) {
	tests := []struct{ name, want string }{
		{"model-3", "3d-viewer-model-3"},
		{"Model 3", "3d-viewer-model-3"},
		{"  Desk \t Lamp  XL ", "3d-viewer-desk-lamp-xl"},
		{"ÆRO Stuhl", "3d-viewer-æro-stuhl"},
		{"", "3d-viewer-sensitivity"},
		{"   ", "3d-viewer-sensitivity"},
	}
	for _, tt := range tests {
		if got := Key(tt.name); got != tt.want {
			t.Errorf("Key(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestStore_RoundTrip(t *testing.T) {
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	key := Key("model-3")
	if _, ok := s.Get(key); ok {
		t.Fatal("empty store should report absent")
	}

	want := Sensitivity{Rotation: 0.7, Zoom: 0.4}
	if err := s.Put(key, want); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok := s.Get(key)
	if !ok || got != want {
		t.Errorf("Get = %+v, %v; want %+v", got, ok, want)
	}

	// Whole-value overwrite.
	want = Sensitivity{Rotation: 1, Zoom: 1}
	if err := s.Put(key, want); err != nil {
		t.Fatal(err)
	}
	if got, _ := s.Get(key); got != want {
		t.Errorf("after overwrite Get = %+v", got)
	}
}

func TestStore_Malformed(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir)
	if err != nil {
		t.Fatal(err)
	}

	records := map[string]string{
		"3d-viewer-garbage":  "{not json",
		"3d-viewer-zero":     `{"rotation":0,"zoom":0.5}`,
		"3d-viewer-negative": `{"rotation":-1,"zoom":0.5}`,
		"3d-viewer-missing":  `{"rotation":0.5}`,
	}
	for key, body := range records {
		if err := os.WriteFile(filepath.Join(dir, key+".json"), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, ok := s.Get(key); ok {
			t.Errorf("%s: malformed record should be absent", key)
		}
	}
}

func TestStore_PutAsyncLastWins(t *testing.T) {
	for trial := 0; trial < 50; trial++ {
		s, err := NewStore(t.TempDir())
		if err != nil {
			t.Fatal(err)
		}
		key := Key("lamp")
		for i := 1; i <= 10; i++ {
			s.PutAsync(key, Sensitivity{Rotation: float64(i) / 10, Zoom: 0.5})
			if got, ok := s.Get(key); !ok || got.Rotation != float64(i)/10 {
				t.Fatalf("trial %d: Get after write %d = %+v, %v", trial, i, got, ok)
			}
		}
		s.Wait()

		// A fresh store reads from disk only.
		fresh, err := NewStore(s.Dir())
		if err != nil {
			t.Fatal(err)
		}
		got, ok := fresh.Get(key)
		if !ok || got.Rotation != 1.0 {
			t.Fatalf("trial %d: stored %+v, %v; want rotation 1.0", trial, got, ok)
		}
	}
}

func TestStore_PutSupersedesQueued(t *testing.T) {
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	key := Key("desk lamp")
	s.PutAsync(key, Sensitivity{Rotation: 0.3, Zoom: 0.3})
	if err := s.Put(key, Sensitivity{Rotation: 1.5, Zoom: 1.5}); err != nil {
		t.Fatal(err)
	}
	s.Wait()

	fresh, err := NewStore(s.Dir())
	if err != nil {
		t.Fatal(err)
	}
	if got, _ := fresh.Get(key); got.Rotation != 1.5 {
		t.Errorf("stored rotation = %v, want 1.5", got.Rotation)
	}
}

func TestStore_PutAsyncRejectsInvalid(t *testing.T) {
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	s.PutAsync(Key("x"), Sensitivity{Rotation: math.NaN(), Zoom: 1})
	s.PutAsync(Key("x"), Sensitivity{Rotation: 1, Zoom: 0})
	s.Wait()
	if _, ok := s.Get(Key("x")); ok {
		t.Error("invalid values should not be stored")
	}
}

func TestStore_KeySanitized(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	key := Key("a/b")
	if err := s.Put(key, Sensitivity{Rotation: 1, Zoom: 1}); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, "3d-viewer-a_b.json")); err != nil {
		t.Errorf("expected sanitized file name: %v", err)
	}
}
