package deptsite

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a requested post does not exist.
var ErrNotFound = sql.ErrNoRows

const postColumns = `id, COALESCE(type, ''), COALESCE(title, ''), COALESCE(excerpt, ''),
	COALESCE(category, ''), COALESCE(date, ''), COALESCE(image, ''), COALESCE(video_file, ''),
	COALESCE(video_url, ''), COALESCE(content, ''), created_at`

// Store wraps the relational database holding the posts table.
type Store struct {
	db     *sql.DB
	driver string
	now    func() time.Time
}

// NewStore opens the database described by databaseURL (see ParseDatabaseURL)
// and ensures the posts schema exists. sqlitePath is used when databaseURL is empty.
func NewStore(databaseURL, sqlitePath string) (*Store, error) {
	driver, dsn, err := ParseDatabaseURL(databaseURL, sqlitePath)
	if err != nil {
		return nil, err
	}
	if driver == driverSQLite {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	if driver == driverSQLite {
		// WAL plus a busy timeout lets concurrent requests read while one writes.
		if _, err := db.Exec(`
			PRAGMA journal_mode=WAL;
			PRAGMA busy_timeout=5000;
			PRAGMA synchronous=NORMAL;
		`); err != nil {
			db.Close()
			return nil, err
		}
		db.SetMaxOpenConns(4)
		db.SetMaxIdleConns(4)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(time.Hour)
	}
	s := &Store{db: db, driver: driver, now: time.Now}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Driver returns the database/sql driver name in use.
func (s *Store) Driver() string {
	return s.driver
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS posts (
    id VARCHAR PRIMARY KEY,
    type VARCHAR(20),
    title TEXT,
    excerpt TEXT,
    category VARCHAR(100),
    date VARCHAR(20),
    image VARCHAR(255),
    video_file VARCHAR(255),
    video_url TEXT,
    content TEXT,
    created_at BIGINT NOT NULL DEFAULT 0
)`)
	if err != nil {
		return err
	}
	// Tables created before created_at existed get the column added here.
	if _, err := s.db.Exec(`ALTER TABLE posts ADD COLUMN created_at BIGINT NOT NULL DEFAULT 0`); err != nil {
		if isDuplicateColumn(err) {
			return nil
		}
		return err
	}
	return nil
}

func (s *Store) q(query string) string {
	return rebind(s.driver, query)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (Post, error) {
	var p Post
	var created int64
	if err := row.Scan(&p.ID, &p.Type, &p.Title, &p.Excerpt, &p.Category, &p.Date,
		&p.Image, &p.VideoFile, &p.VideoURL, &p.Content, &created); err != nil {
		return Post{}, err
	}
	p.Link = "/blog/" + p.ID
	if created > 0 {
		p.CreatedAt = time.Unix(0, created).UTC()
	}
	return p, nil
}

func (s *Store) queryPosts(ctx context.Context, query string, args ...any) ([]Post, error) {
	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// ListPosts returns every post, newest first.
func (s *Store) ListPosts(ctx context.Context) ([]Post, error) {
	return s.queryPosts(ctx, `SELECT `+postColumns+` FROM posts ORDER BY created_at DESC, id DESC`)
}

// ListRelated returns up to limit posts other than excludeID, in ListPosts order.
func (s *Store) ListRelated(ctx context.Context, excludeID string, limit int) ([]Post, error) {
	return s.queryPosts(ctx, `SELECT `+postColumns+` FROM posts WHERE id <> ? ORDER BY created_at DESC, id DESC LIMIT ?`,
		excludeID, limit)
}

// GetPost returns a single post by id, or ErrNotFound.
func (s *Store) GetPost(ctx context.Context, id string) (Post, error) {
	row := s.db.QueryRowContext(ctx, s.q(`SELECT `+postColumns+` FROM posts WHERE id = ?`), id)
	return scanPost(row)
}

// CreatePost inserts p under a freshly generated id. The stored type is
// derived from the post's video fields.
func (s *Store) CreatePost(ctx context.Context, p Post) (Post, error) {
	id, err := newPostID()
	if err != nil {
		return Post{}, err
	}
	p.ID = id
	p.Type = resolvePostType(p)
	p.CreatedAt = s.now().UTC()
	p.Link = "/blog/" + id
	_, err = s.db.ExecContext(ctx, s.q(`INSERT INTO posts (id, type, title, excerpt, category, date, image, video_file, video_url, content, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		p.ID, p.Type, p.Title, p.Excerpt, p.Category, p.Date, p.Image, p.VideoFile, p.VideoURL, p.Content, p.CreatedAt.UnixNano())
	if err != nil {
		return Post{}, fmt.Errorf("insert post: %w", err)
	}
	return p, nil
}

// UpdatePost overwrites every mutable field of the post with the given id.
// It returns ErrNotFound when no such post exists.
func (s *Store) UpdatePost(ctx context.Context, id string, p Post) (Post, error) {
	p.ID = id
	p.Type = resolvePostType(p)
	res, err := s.db.ExecContext(ctx, s.q(`UPDATE posts SET type = ?, title = ?, excerpt = ?, category = ?, date = ?,
		image = ?, video_file = ?, video_url = ?, content = ? WHERE id = ?`),
		p.Type, p.Title, p.Excerpt, p.Category, p.Date, p.Image, p.VideoFile, p.VideoURL, p.Content, id)
	if err != nil {
		return Post{}, fmt.Errorf("update post: %w", err)
	}
	if err := requireAffected(res); err != nil {
		return Post{}, err
	}
	return s.GetPost(ctx, id)
}

// DeletePost removes a post by id. It returns ErrNotFound when no such post exists.
func (s *Store) DeletePost(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.q(`DELETE FROM posts WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	return requireAffected(res)
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// newPostID returns 16 random hex characters.
func newPostID() (string, error) {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate post id: %w", err)
	}
	return hex.EncodeToString(b), nil
}
