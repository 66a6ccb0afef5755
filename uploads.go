package deptsite

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
	"github.com/labstack/echo/v4"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	uploadsSubdir = "uploads"
	hodsSubdir    = "uploads/hods"
	videosSubdir  = "uploads/videos"

	// sniffLen is how many leading bytes filetype needs to recognise a format.
	sniffLen = 261

	// maxNameLen bounds the sanitized name so prefix plus name stays under
	// the usual 255-byte filesystem limit.
	maxNameLen = 200
	maxExtLen  = 16
)

// ErrNoFile is returned when an upload is required but no file was sent.
var ErrNoFile = errors.New("no file")

// Uploader writes uploaded files into a target directory.
type Uploader struct {
	newPrefix func() string
}

// NewUploader returns an Uploader that prefixes every stored name with a
// random token so uploads never overwrite each other.
func NewUploader() *Uploader {
	return &Uploader{newPrefix: randomPrefix}
}

func randomPrefix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// Store copies the uploaded file into dir and returns the stored filename.
// The name is "<prefix>-<sanitized client name>"; a missing extension is
// filled in from the file's content when it can be recognised.
func (u *Uploader) Store(fh *multipart.FileHeader, dir string) (string, error) {
	if fh == nil || fh.Filename == "" {
		return "", ErrNoFile
	}
	src, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	name := SecureFilename(fh.Filename)
	if name == "" {
		name = "upload"
	}
	if filepath.Ext(name) == "" {
		if ext := sniffExtension(src); ext != "" {
			name += "." + ext
		}
	}
	name = u.newPrefix() + "-" + name

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	dst, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return "", fmt.Errorf("create upload: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return "", fmt.Errorf("write upload: %w", err)
	}
	if err := dst.Close(); err != nil {
		return "", fmt.Errorf("write upload: %w", err)
	}
	return name, nil
}

func sniffExtension(src multipart.File) string {
	head := make([]byte, sniffLen)
	n, err := src.ReadAt(head, 0)
	if err != nil && err != io.EOF {
		return ""
	}
	kind, err := filetype.Match(head[:n])
	if err != nil || kind == types.Unknown {
		return ""
	}
	return kind.Extension
}

// SecureFilename reduces a client-supplied filename to a flat, ASCII-only
// name. Accents are folded, path separators become underscores and leading
// dots are dropped, so "../../etc/passwd" becomes "etc_passwd". Names longer
// than maxNameLen bytes are cut down, keeping the extension.
func SecureFilename(name string) string {
	if folded, _, err := transform.String(foldAccents(), name); err == nil {
		name = folded
	}
	name = strings.NewReplacer("/", " ", "\\", " ").Replace(name)
	name = strings.Join(strings.Fields(name), "_")
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '_', r == '.', r == '-':
			b.WriteRune(r)
		}
	}
	return truncateName(strings.Trim(b.String(), "._"))
}

// truncateName shortens an ASCII name to maxNameLen bytes, keeping a short
// extension intact.
func truncateName(name string) string {
	if len(name) <= maxNameLen {
		return name
	}
	ext := filepath.Ext(name)
	if len(ext) > maxExtLen {
		ext = ""
	}
	return strings.TrimRight(name[:maxNameLen-len(ext)], "._") + ext
}

func foldAccents() transform.Transformer {
	return transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}

// formFile returns the uploaded file for field, or nil when the request
// carries none. Requests that are not multipart simply have no files.
func formFile(c echo.Context, field string) (*multipart.FileHeader, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, err
	}
	if fh.Filename == "" {
		return nil, nil
	}
	return fh, nil
}

// storeOptional saves field's upload into dir. It returns "" when no file was sent.
func (a *App) storeOptional(c echo.Context, field, dir string) (string, error) {
	fh, err := formFile(c, field)
	if err != nil || fh == nil {
		return "", err
	}
	return a.Uploads.Store(fh, dir)
}

// discardUploads removes files stored earlier in a request whose record
// could not be saved. Empty names are skipped.
func (a *App) discardUploads(c echo.Context, dir string, names ...string) {
	for _, name := range names {
		if name == "" {
			continue
		}
		if err := os.Remove(filepath.Join(dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
			c.Logger().Warnf("remove orphaned upload %s: %v", name, err)
		}
	}
}

func (a *App) postUploadDir() string {
	return filepath.Join(a.Config.StaticDir, uploadsSubdir)
}

func (a *App) hodUploadDir() string {
	return filepath.Join(a.Config.StaticDir, hodsSubdir)
}

func (a *App) ensureUploadDirs() error {
	for _, sub := range []string{uploadsSubdir, hodsSubdir, videosSubdir} {
		if err := os.MkdirAll(filepath.Join(a.Config.StaticDir, sub), 0o755); err != nil {
			return fmt.Errorf("create %s: %w", sub, err)
		}
	}
	return nil
}
