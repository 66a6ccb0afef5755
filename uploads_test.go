package deptsite

import (
	"bytes"
	"errors"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// pngHeader is enough of a PNG for content sniffing.
var pngHeader = []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a, 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func fileHeader(t *testing.T, filename string, data []byte) *multipart.FileHeader {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", "placeholder")
	if err != nil {
		t.Fatal(err)
	}
	part.Write(data)
	w.Close()

	form, err := multipart.NewReader(&body, w.Boundary()).ReadForm(1 << 20)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { form.RemoveAll() })
	fh := form.File["file"][0]
	// The multipart reader strips directories from names; set the raw value.
	fh.Filename = filename
	return fh
}

func TestSecureFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"photo.jpg", "photo.jpg"},
		{"../../etc/passwd", "etc_passwd"},
		{`..\..\windows\system32.dll`, "windows_system32.dll"},
		{"my vacation photo.png", "my_vacation_photo.png"},
		{"café déjà vu.jpg", "cafe_deja_vu.jpg"},
		{".hidden", "hidden"},
		{"weird$name!.gif", "weirdname.gif"},
		{"日本語", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := SecureFilename(tt.in); got != tt.want {
				t.Errorf("SecureFilename(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestUploaderStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads")
	u := &Uploader{newPrefix: func() string { return "abc123def456" }}

	name, err := u.Store(fileHeader(t, "report.pdf", []byte("%PDF-1.4 test")), dir)
	if err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if name != "abc123def456-report.pdf" {
		t.Errorf("name = %q", name)
	}
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("stored file missing: %v", err)
	}
	if string(data) != "%PDF-1.4 test" {
		t.Errorf("stored content = %q", data)
	}
}

func TestUploaderStoreStaysInsideDir(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "static", "uploads")
	u := &Uploader{newPrefix: func() string { return "p" }}

	name, err := u.Store(fileHeader(t, "../../etc/passwd", []byte("x")), dir)
	if err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if name != "p-etc_passwd" {
		t.Errorf("name = %q, want p-etc_passwd", name)
	}
	if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
		t.Errorf("file not written inside upload dir: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "etc")); !os.IsNotExist(err) {
		t.Errorf("upload escaped its directory")
	}
}

func TestUploaderStoreSniffsMissingExtension(t *testing.T) {
	dir := t.TempDir()
	u := &Uploader{newPrefix: func() string { return "p" }}

	name, err := u.Store(fileHeader(t, "screenshot", pngHeader), dir)
	if err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if name != "p-screenshot.png" {
		t.Errorf("name = %q, want p-screenshot.png", name)
	}

	name, err = u.Store(fileHeader(t, "notes", []byte("plain words")), dir)
	if err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if name != "p-notes" {
		t.Errorf("unrecognised content got name %q, want p-notes", name)
	}
}

func TestUploaderStoreEmptySanitizedName(t *testing.T) {
	dir := t.TempDir()
	u := &Uploader{newPrefix: func() string { return "p" }}

	name, err := u.Store(fileHeader(t, "日本語", []byte("x")), dir)
	if err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if name != "p-upload" {
		t.Errorf("name = %q, want p-upload", name)
	}
}

func TestUploaderStoreNoFile(t *testing.T) {
	u := NewUploader()
	if _, err := u.Store(nil, t.TempDir()); !errors.Is(err, ErrNoFile) {
		t.Errorf("nil header: expected ErrNoFile, got %v", err)
	}
	if _, err := u.Store(&multipart.FileHeader{}, t.TempDir()); !errors.Is(err, ErrNoFile) {
		t.Errorf("empty filename: expected ErrNoFile, got %v", err)
	}
}

func TestUploaderSameNameDoesNotOverwrite(t *testing.T) {
	dir := t.TempDir()
	u := NewUploader()

	a, err := u.Store(fileHeader(t, "photo.jpg", []byte("one")), dir)
	if err != nil {
		t.Fatal(err)
	}
	b, err := u.Store(fileHeader(t, "photo.jpg", []byte("two")), dir)
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Fatalf("both uploads stored as %q", a)
	}
	for _, name := range []string{a, b} {
		if !strings.HasSuffix(name, "-photo.jpg") {
			t.Errorf("name %q should keep the sanitized client name", name)
		}
		if len(strings.SplitN(name, "-", 2)[0]) != 12 {
			t.Errorf("name %q should start with a 12 character prefix", name)
		}
	}
	first, _ := os.ReadFile(filepath.Join(dir, a))
	if string(first) != "one" {
		t.Errorf("first upload content = %q", first)
	}
}

func TestSecureFilenameCapsLength(t *testing.T) {
	long := strings.Repeat("a", 300) + ".jpg"
	got := SecureFilename(long)
	if len(got) != maxNameLen {
		t.Errorf("len = %d, want %d", len(got), maxNameLen)
	}
	if !strings.HasSuffix(got, ".jpg") {
		t.Errorf("extension lost: %q", got[len(got)-10:])
	}

	oddExt := "a." + strings.Repeat("b", 300)
	if got := SecureFilename(oddExt); len(got) > maxNameLen {
		t.Errorf("len = %d, want at most %d", len(got), maxNameLen)
	}
}

func TestUploaderStoreLongName(t *testing.T) {
	dir := t.TempDir()
	name, err := NewUploader().Store(fileHeader(t, strings.Repeat("x", 400)+".png", pngHeader), dir)
	if err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if len(name) > 255 {
		t.Errorf("stored name is %d bytes", len(name))
	}
	if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
		t.Errorf("stored file missing: %v", err)
	}
}
