package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	errs "socialfetch/pkg/errors"
)

func TestWriteJSONCreatesParents(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "deeper", "out.json")

	payload := map[string]interface{}{
		"user":  "jack",
		"title": "Café <b>&</b> ümlaut",
		"count": 2,
	}
	if err := WriteJSON(path, payload); err != nil {
		t.Fatalf("WriteJSON failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read output: %v", err)
	}

	text := string(data)
	if !strings.Contains(text, "Café <b>&</b> ümlaut") {
		t.Errorf("Expected unescaped text in output, got %s", text)
	}
	if !strings.Contains(text, "\n  \"count\": 2") {
		t.Errorf("Expected two-space indentation, got %s", text)
	}

	var back map[string]interface{}
	if err := ReadJSON(path, &back); err != nil {
		t.Fatalf("ReadJSON failed: %v", err)
	}
	if back["user"] != "jack" {
		t.Errorf("Expected user jack, got %v", back["user"])
	}
}

func TestWriteJSONLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.json")

	for i := 0; i < 3; i++ {
		if err := WriteJSON(path, []int{i}); err != nil {
			t.Fatalf("WriteJSON %d failed: %v", i, err)
		}
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("Expected only the target file, found %d entries", len(entries))
	}

	var got []int
	_ = ReadJSON(path, &got)
	if len(got) != 1 || got[0] != 2 {
		t.Errorf("Expected last write to win, got %v", got)
	}
}

func TestWriteJSONFilesystemError(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	err := WriteJSON(filepath.Join(blocker, "out.json"), 1)
	if !errs.Is(err, errs.ErrorTypeFilesystem) {
		t.Errorf("Expected filesystem error, got %v", err)
	}
}

func TestEncodeJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := EncodeJSON(&buf, map[string]string{"url": "https://a.b/?x=1&y=2"}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "https://a.b/?x=1&y=2") {
		t.Errorf("Expected raw ampersand, got %s", buf.String())
	}

	if err := EncodeJSON(&buf, func() {}); !errs.Is(err, errs.ErrorTypeParsing) {
		t.Errorf("Expected parsing error for unsupported value, got %v", err)
	}
}

func TestArtifactStore(t *testing.T) {
	tempDir := t.TempDir()
	store, err := NewArtifactStore(filepath.Join(tempDir, "pdfs"), false)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	if store.Exists("0001_2401.00001.pdf") {
		t.Error("Expected Exists to return false for a missing file")
	}

	testData := []byte("%PDF-1.4 test")
	n, err := store.Save("0001_2401.00001.pdf", bytes.NewReader(testData))
	if err != nil {
		t.Fatalf("Failed to save artifact: %v", err)
	}
	if n != int64(len(testData)) {
		t.Errorf("Expected %d bytes written, got %d", len(testData), n)
	}

	content, err := os.ReadFile(store.Path("0001_2401.00001.pdf"))
	if err != nil {
		t.Fatalf("Failed to read saved file: %v", err)
	}
	if !bytes.Equal(content, testData) {
		t.Error("File content does not match expected data")
	}

	if !store.Exists("0001_2401.00001.pdf") {
		t.Error("Expected Exists to return true after Save")
	}
	if !store.ShouldSkip("0001_2401.00001.pdf") {
		t.Error("Expected existing file to be skipped without overwrite")
	}
	if store.SavedCount() != 1 {
		t.Errorf("Expected 1 saved artifact, got %d", store.SavedCount())
	}
}

func TestArtifactStoreOverwrite(t *testing.T) {
	store, err := NewArtifactStore(t.TempDir(), true)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := store.SaveBytes("page.html", []byte("old")); err != nil {
		t.Fatal(err)
	}
	if store.ShouldSkip("page.html") {
		t.Error("Expected overwrite mode never to skip")
	}
	if _, err := store.SaveBytes("page.html", []byte("new")); err != nil {
		t.Fatal(err)
	}

	content, _ := os.ReadFile(store.Path("page.html"))
	if string(content) != "new" {
		t.Errorf("Expected overwritten content, got %q", content)
	}
}

type failingReader struct{}

func (failingReader) Read(p []byte) (int, error) { return 0, errors.New("connection reset") }

func TestArtifactStoreSaveFailureCleansUp(t *testing.T) {
	store, err := NewArtifactStore(t.TempDir(), false)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := store.Save("broken.pdf", failingReader{}); !errs.Is(err, errs.ErrorTypeNetwork) {
		t.Errorf("Expected network error from a failing body, got %v", err)
	}

	entries, _ := os.ReadDir(store.Dir())
	if len(entries) != 0 {
		t.Errorf("Expected no leftover files, found %d", len(entries))
	}
}

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		in     string
		maxLen int
		want   string
	}{
		{"http://arxiv.org/abs/2401.00001v2", 0, "http_arxiv.org_abs_2401.00001v2"},
		{"  golang generics  ", 0, "golang_generics"},
		{"a/b\\c:d", 0, "a_b_c_d"},
		{"!!!", 0, "untitled"},
		{"abcdefghij", 4, "abcd"},
		{"ab cd", 3, "ab"},
	}

	for _, tt := range tests {
		if got := SanitizeName(tt.in, tt.maxLen); got != tt.want {
			t.Errorf("SanitizeName(%q, %d) = %q, want %q", tt.in, tt.maxLen, got, tt.want)
		}
	}
}

func TestJSONRoundTripKeepsOrderOfSlices(t *testing.T) {
	path := filepath.Join(t.TempDir(), "r.json")
	if err := WriteJSON(path, []string{"c", "a", "b"}); err != nil {
		t.Fatal(err)
	}
	raw, _ := os.ReadFile(path)
	var got []string
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatal(err)
	}
	if strings.Join(got, "") != "cab" {
		t.Errorf("Expected order preserved, got %v", got)
	}
}
