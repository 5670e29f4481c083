package utils

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestHasExtension(t *testing.T) {
	exts := []string{"jpg", ".png"}
	cases := map[string]bool{
		"a.JPG":      true,
		"b/c.png":    true,
		"d.webp":     false,
		"noext":      false,
		"archive.jp": false,
	}
	for name, want := range cases {
		if got := HasExtension(name, exts); got != want {
			t.Errorf("HasExtension(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestGenerateOutputFilename(t *testing.T) {
	got := GenerateOutputFilename("/in/me.jpeg", "/out", "id_", "_sheet", "pdf")
	if got != filepath.Join("/out", "id_me_sheet.pdf") {
		t.Errorf("Unexpected name %q", got)
	}
	got = GenerateOutputFilename("/in/me.png", "out", "", "", "")
	if got != filepath.Join("out", "me.png") {
		t.Errorf("Expected input extension reused, got %q", got)
	}
}

func TestBatchOutputFilenames(t *testing.T) {
	in := filepath.Join("/in")
	files := []string{
		filepath.Join(in, "alice", "photo.jpg"),
		filepath.Join(in, "bob", "photo.jpg"),
		filepath.Join(in, "x.jpg"),
		filepath.Join(in, "x.png"),
		filepath.Join(in, "solo.png"),
	}
	got := BatchOutputFilenames(in, files, "/out", "", "_passport", "pdf")
	want := []string{
		filepath.Join("/out", "alice", "photo_passport.pdf"),
		filepath.Join("/out", "bob", "photo_passport.pdf"),
		filepath.Join("/out", "x_jpg_passport.pdf"),
		filepath.Join("/out", "x_png_passport.pdf"),
		filepath.Join("/out", "solo_passport.pdf"),
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("BatchOutputFilenames() = %v, want %v", got, want)
	}

	// the extension-qualified name may already be taken by a real input
	files = []string{
		filepath.Join(in, "x.jpg"),
		filepath.Join(in, "x.png"),
		filepath.Join(in, "x_jpg.png"),
	}
	got = BatchOutputFilenames(in, files, "/out", "", "", "pdf")
	seen := map[string]bool{}
	for _, out := range got {
		if seen[out] {
			t.Errorf("Duplicate output %s in %v", out, got)
		}
		seen[out] = true
	}
}

func TestListImageFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.jpg", "a.png", "notes.txt", "sub/c.JPG"} {
		p := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	files, err := ListImageFiles(dir, []string{"jpg", "png"})
	if err != nil {
		t.Fatalf("ListImageFiles failed: %v", err)
	}
	want := []string{
		filepath.Join(dir, "a.png"),
		filepath.Join(dir, "b.jpg"),
		filepath.Join(dir, "sub", "c.JPG"),
	}
	if !reflect.DeepEqual(files, want) {
		t.Errorf("Expected %v, got %v", want, files)
	}
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "out.txt")

	err := WriteFileAtomic(path, func(w io.Writer) error {
		_, err := w.Write([]byte("hello"))
		return err
	})
	if err != nil {
		t.Fatalf("WriteFileAtomic failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "hello" {
		t.Errorf("Expected hello, got %q (%v)", data, err)
	}

	boom := errors.New("encode failed")
	err = WriteFileAtomic(filepath.Join(dir, "fail.txt"), func(w io.Writer) error {
		w.Write([]byte("partial"))
		return boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("Expected encode error, got %v", err)
	}
	if FileExists(filepath.Join(dir, "fail.txt")) {
		t.Error("Expected no output after failure")
	}
	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".tmp" {
			t.Errorf("Temp file %s left behind", e.Name())
		}
	}
}

func TestExists(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "f")
	os.WriteFile(file, nil, 0644)

	if !FileExists(file) || FileExists(dir) || FileExists(filepath.Join(dir, "missing")) {
		t.Error("FileExists misreported")
	}
	if !DirExists(dir) || DirExists(file) {
		t.Error("DirExists misreported")
	}
}

func TestFormatFileSize(t *testing.T) {
	cases := map[int64]string{
		512:             "512 B",
		2048:            "2.0 KB",
		5 * 1024 * 1024: "5.0 MB",
	}
	for size, want := range cases {
		if got := FormatFileSize(size); got != want {
			t.Errorf("FormatFileSize(%d) = %q, want %q", size, got, want)
		}
	}
}
