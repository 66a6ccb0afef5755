package deptsite

import "time"

const (
	PostTypeArticle = "article"
	PostTypeVideo   = "video"

	DefaultCategory  = "General"
	DefaultPostImage = "default.jpg"
)

// Post is a blog entry stored in the posts table and rendered by templates.
type Post struct {
	ID        string
	Type      string
	Title     string
	Excerpt   string
	Category  string
	Date      string
	Image     string
	VideoFile string
	VideoURL  string
	Content   string
	Link      string
	CreatedAt time.Time
}

// IsVideo reports whether the post carries an uploaded video or an external video URL.
func (p Post) IsVideo() bool {
	return p.VideoFile != "" || p.VideoURL != ""
}

// resolvePostType derives the stored type from the post's final video state.
func resolvePostType(p Post) string {
	if p.IsVideo() {
		return PostTypeVideo
	}
	return PostTypeArticle
}

// StaffEntry is a head-of-department record in the staff directory JSON file.
type StaffEntry struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	Role       string `json:"role"`
	Department string `json:"department"`
	Bio        string `json:"bio"`
	Photo      string `json:"photo"`
	Active     bool   `json:"active"`
}

// PageMeta carries per-page title and description into the layout template.
type PageMeta struct {
	Title       string
	Description string
	URL         string
}
