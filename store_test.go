package deptsite

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"regexp"
	"testing"
	"time"
)

func setupTestStore(t *testing.T) (*Store, func()) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test_site.db")

	s, err := NewStore("", path)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	// Each insert gets a later timestamp so ordering is deterministic.
	base := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	tick := 0
	s.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	cleanup := func() {
		s.Close()
	}
	return s, cleanup
}

func TestNewStore(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	if s.db == nil {
		t.Fatal("db should not be nil")
	}
	if s.Driver() != driverSQLite {
		t.Errorf("Driver = %q, want %q", s.Driver(), driverSQLite)
	}
}

func TestCreateAndGetPost(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	created, err := s.CreatePost(ctx, Post{
		Title:    "Hello",
		Excerpt:  "Short",
		Category: DefaultCategory,
		Date:     "2024-01-15",
		Image:    DefaultPostImage,
		Content:  "<p>Body</p>",
	})
	if err != nil {
		t.Fatalf("CreatePost failed: %v", err)
	}
	if !regexp.MustCompile(`^[0-9a-f]{16}$`).MatchString(created.ID) {
		t.Errorf("ID = %q, want 16 hex characters", created.ID)
	}

	got, err := s.GetPost(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetPost failed: %v", err)
	}
	if got.Title != "Hello" {
		t.Errorf("Title = %q, want %q", got.Title, "Hello")
	}
	if got.Image != DefaultPostImage {
		t.Errorf("Image = %q, want %q", got.Image, DefaultPostImage)
	}
	if got.Type != PostTypeArticle {
		t.Errorf("Type = %q, want %q", got.Type, PostTypeArticle)
	}
	if got.Content != "<p>Body</p>" {
		t.Errorf("Content = %q", got.Content)
	}
	if got.Link != "/blog/"+created.ID {
		t.Errorf("Link = %q, want %q", got.Link, "/blog/"+created.ID)
	}
	if got.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}
}

func TestCreatePostTypeFollowsVideo(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	tests := []struct {
		name      string
		submitted string
		videoFile string
		videoURL  string
		want      string
	}{
		{"plain article", PostTypeArticle, "", "", PostTypeArticle},
		{"video type without video", PostTypeVideo, "", "", PostTypeArticle},
		{"uploaded video", PostTypeArticle, "clip.mp4", "", PostTypeVideo},
		{"external video", PostTypeArticle, "", "https://youtu.be/x", PostTypeVideo},
		{"both", "", "clip.mp4", "https://youtu.be/x", PostTypeVideo},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := s.CreatePost(ctx, Post{Type: tt.submitted, VideoFile: tt.videoFile, VideoURL: tt.videoURL})
			if err != nil {
				t.Fatalf("CreatePost failed: %v", err)
			}
			got, err := s.GetPost(ctx, p.ID)
			if err != nil {
				t.Fatalf("GetPost failed: %v", err)
			}
			if got.Type != tt.want {
				t.Errorf("Type = %q, want %q", got.Type, tt.want)
			}
		})
	}
}

func TestUpdatePost(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	p, err := s.CreatePost(ctx, Post{Title: "Hello", Category: DefaultCategory, Image: DefaultPostImage})
	if err != nil {
		t.Fatalf("CreatePost failed: %v", err)
	}

	p.VideoURL = "http://x"
	p.Excerpt = ""
	updated, err := s.UpdatePost(ctx, p.ID, p)
	if err != nil {
		t.Fatalf("UpdatePost failed: %v", err)
	}
	if updated.Type != PostTypeVideo {
		t.Errorf("Type = %q, want %q", updated.Type, PostTypeVideo)
	}
	if updated.Image != DefaultPostImage {
		t.Errorf("Image = %q, want %q", updated.Image, DefaultPostImage)
	}
	if !updated.CreatedAt.Equal(p.CreatedAt) {
		t.Errorf("CreatedAt changed from %v to %v", p.CreatedAt, updated.CreatedAt)
	}

	updated.VideoURL = ""
	again, err := s.UpdatePost(ctx, p.ID, updated)
	if err != nil {
		t.Fatalf("UpdatePost failed: %v", err)
	}
	if again.Type != PostTypeArticle {
		t.Errorf("Type after removing video = %q, want %q", again.Type, PostTypeArticle)
	}
}

func TestUpdatePostNotFound(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	_, err := s.UpdatePost(context.Background(), "nonexistent", Post{Title: "x"})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestGetPostNotFound(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	_, err := s.GetPost(context.Background(), "nonexistent")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDeletePost(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	p, err := s.CreatePost(ctx, Post{Title: "To Delete"})
	if err != nil {
		t.Fatalf("CreatePost failed: %v", err)
	}
	if err := s.DeletePost(ctx, p.ID); err != nil {
		t.Fatalf("DeletePost failed: %v", err)
	}
	if _, err := s.GetPost(ctx, p.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Post should not exist after delete, got err: %v", err)
	}
}

func TestDeleteNonexistentPost(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	if err := s.DeletePost(context.Background(), "nonexistent"); !errors.Is(err, ErrNotFound) {
		t.Errorf("DeletePost on nonexistent should return ErrNotFound, got: %v", err)
	}
}

func TestListPostsNewestFirst(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	var ids []string
	for _, title := range []string{"first", "second", "third"} {
		p, err := s.CreatePost(ctx, Post{Title: title})
		if err != nil {
			t.Fatalf("CreatePost failed: %v", err)
		}
		ids = append(ids, p.ID)
	}

	got, err := s.ListPosts(ctx)
	if err != nil {
		t.Fatalf("ListPosts failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("ListPosts count = %d, want 3", len(got))
	}
	for i, want := range []string{ids[2], ids[1], ids[0]} {
		if got[i].ID != want {
			t.Errorf("ListPosts[%d] = %s (%s), want %s", i, got[i].ID, got[i].Title, want)
		}
	}
}

func TestListPostsEmpty(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	got, err := s.ListPosts(context.Background())
	if err != nil {
		t.Fatalf("ListPosts failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("ListPosts count = %d, want 0", len(got))
	}
}

func TestListRelated(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	var ids []string
	for i := 0; i < 5; i++ {
		p, err := s.CreatePost(ctx, Post{Title: "post"})
		if err != nil {
			t.Fatalf("CreatePost failed: %v", err)
		}
		ids = append(ids, p.ID)
	}

	current := ids[4]
	related, err := s.ListRelated(ctx, current, 3)
	if err != nil {
		t.Fatalf("ListRelated failed: %v", err)
	}
	if len(related) != 3 {
		t.Fatalf("ListRelated count = %d, want 3", len(related))
	}
	for i, want := range []string{ids[3], ids[2], ids[1]} {
		if related[i].ID == current {
			t.Errorf("ListRelated returned the excluded post")
		}
		if related[i].ID != want {
			t.Errorf("ListRelated[%d] = %s, want %s", i, related[i].ID, want)
		}
	}

	few, err := s.ListRelated(ctx, ids[0], 10)
	if err != nil {
		t.Fatalf("ListRelated failed: %v", err)
	}
	if len(few) != 4 {
		t.Errorf("ListRelated with large limit = %d posts, want 4", len(few))
	}
}

// A posts table written by an earlier deployment has nullable columns and
// no created_at; NewStore must migrate it and read the NULLs as empty strings.
func TestNewStoreMigratesLegacyTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := db.Exec(`CREATE TABLE posts (
		id VARCHAR PRIMARY KEY, type VARCHAR(20), title TEXT, excerpt TEXT, category VARCHAR(100),
		date VARCHAR(20), image VARCHAR(255), video_file VARCHAR(255), video_url TEXT, content TEXT)`); err != nil {
		t.Fatalf("create legacy table: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO posts (id, title) VALUES ('abcdef0123456789', 'Old post')`); err != nil {
		t.Fatalf("insert legacy row: %v", err)
	}
	db.Close()

	s, err := NewStore("sqlite://"+path, "")
	if err != nil {
		t.Fatalf("NewStore on legacy db failed: %v", err)
	}
	defer s.Close()

	got, err := s.GetPost(context.Background(), "abcdef0123456789")
	if err != nil {
		t.Fatalf("GetPost failed: %v", err)
	}
	if got.Title != "Old post" || got.Excerpt != "" || got.VideoFile != "" {
		t.Errorf("unexpected legacy post: %+v", got)
	}
	if !got.CreatedAt.IsZero() {
		t.Errorf("legacy CreatedAt = %v, want zero", got.CreatedAt)
	}

	// Reopening must not fail on the already-added column.
	s.Close()
	s2, err := NewStore("sqlite://"+path, "")
	if err != nil {
		t.Fatalf("second NewStore failed: %v", err)
	}
	s2.Close()
}

func TestNewPostIDUnique(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		id, err := newPostID()
		if err != nil {
			t.Fatalf("newPostID failed: %v", err)
		}
		if len(id) != 16 {
			t.Fatalf("len(id) = %d, want 16", len(id))
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = struct{}{}
	}
}
