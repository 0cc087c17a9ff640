package recorder

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestBagWriter_WritesMetadataAndData(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "bag")

	w, err := NewBagWriter(dir, nil)
	if err != nil {
		t.Fatalf("NewBagWriter: %v", err)
	}

	base := time.Now().UnixNano()
	for i := 0; i < 5; i++ {
		w.Record("robot/counter", []byte{byte(i)}, base+int64(i))
	}
	w.Record("robot/other", []byte("x"), base+100)

	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	// Idempotent.
	if err := w.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	metaPath := filepath.Join(dir, "metadata.yaml")
	data, err := os.ReadFile(metaPath)
	if err != nil {
		t.Fatalf("read metadata.yaml: %v", err)
	}

	var meta bagMetadata
	if err := yaml.Unmarshal(data, &meta); err != nil {
		t.Fatalf("parse metadata.yaml: %v", err)
	}
	if meta.Info.Version != bagSchemaVersion {
		t.Errorf("Version = %d, want %d", meta.Info.Version, bagSchemaVersion)
	}
	if meta.Info.MessageCount != 6 {
		t.Errorf("MessageCount = %d, want 6", meta.Info.MessageCount)
	}
	if len(meta.Info.RelativeFilePaths) != 1 {
		t.Fatalf("RelativeFilePaths = %v, want 1 entry", meta.Info.RelativeFilePaths)
	}

	db, err := sql.Open("sqlite", filepath.Join(dir, meta.Info.RelativeFilePaths[0]))
	if err != nil {
		t.Fatalf("open data file: %v", err)
	}
	defer db.Close()

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM messages`).Scan(&count); err != nil {
		t.Fatalf("count messages: %v", err)
	}
	if count != 6 {
		t.Errorf("messages row count = %d, want 6", count)
	}
}

func TestBagWriter_ClearsPreexistingContents(t *testing.T) {
	dir := t.TempDir()
	stale := filepath.Join(dir, "stale.txt")
	if err := os.WriteFile(stale, []byte("old"), 0o644); err != nil {
		t.Fatalf("write stale file: %v", err)
	}

	w, err := NewBagWriter(dir, nil)
	if err != nil {
		t.Fatalf("NewBagWriter: %v", err)
	}
	defer w.Close()

	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Errorf("stale file still present after NewBagWriter, err = %v", err)
	}
}

func TestBagWriter_DropsZeroLengthPayloads(t *testing.T) {
	dir := t.TempDir()
	w, err := NewBagWriter(dir, nil)
	if err != nil {
		t.Fatalf("NewBagWriter: %v", err)
	}

	w.Record("robot/empty", nil, time.Now().UnixNano())
	w.Record("robot/nonempty", []byte("a"), time.Now().UnixNano())

	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "metadata.yaml"))
	if err != nil {
		t.Fatalf("read metadata.yaml: %v", err)
	}
	var meta bagMetadata
	if err := yaml.Unmarshal(data, &meta); err != nil {
		t.Fatalf("parse metadata.yaml: %v", err)
	}
	if meta.Info.MessageCount != 1 {
		t.Errorf("MessageCount = %d, want 1 (zero-length payload should be dropped)", meta.Info.MessageCount)
	}
}

func TestActiveRecorder_SetAndGet(t *testing.T) {
	SetActive(nil)
	if Active() != nil {
		t.Fatal("Active() should be nil before SetActive")
	}

	dir := t.TempDir()
	w, err := NewBagWriter(dir, nil)
	if err != nil {
		t.Fatalf("NewBagWriter: %v", err)
	}
	defer w.Close()

	SetActive(w)
	if Active() != Recorder(w) {
		t.Error("Active() did not return the installed recorder")
	}
	SetActive(nil)
}

func TestConvertPayload(t *testing.T) {
	cases := []struct {
		name  string
		value any
		want  string
	}{
		{"bytes pass through", []byte{0x01, 0x02}, "\x01\x02"},
		{"string becomes utf8", "hello", "hello"},
		{"map becomes json", map[string]int{"x": 1}, `{"x":1}`},
		{"number becomes json", 42, "42"},
		{"unencodable falls back to text", func() {}, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ConvertPayload(tc.value)
			if tc.want == "" {
				if len(got) == 0 {
					t.Error("fallback representation should not be empty")
				}
				return
			}
			if string(got) != tc.want {
				t.Errorf("ConvertPayload(%v) = %q, want %q", tc.value, got, tc.want)
			}
		})
	}
}
