package domain

import (
	"crypto/sha1" //nolint:gosec // not used for security, only for stable ids
	"encoding/hex"
	"time"
)

// Post is a normalized content item. Posts are created by the normalizer on
// each aggregation run and never mutated; a re-crawl of the same item produces
// a post with the same derived ID which supersedes the previous one.
type Post struct {
	ID        string    `json:"id"`
	SourceID  string    `json:"source"`
	Title     string    `json:"title"`
	Preview   string    `json:"preview,omitempty"`
	Author    string    `json:"author"`
	Views     int       `json:"views"`
	Likes     int       `json:"likes"`
	Comments  int       `json:"comments"`
	Published time.Time `json:"publishedAt"`
	URL       string    `json:"url"`
	Synthetic bool      `json:"synthetic,omitempty"`
}

// RawFragment is a candidate post as extracted from a source document,
// before normalization. Optional fields stay empty when the site doesn't
// expose them.
type RawFragment struct {
	Title     string
	URL       string
	Author    string
	Preview   string
	ViewsText string
	TimeText  string
	Published time.Time // set when the source exposes a parseable timestamp
}

// SegmentKind classifies one rendered block of a post body.
type SegmentKind string

// segment kinds recognized by the content extractor
const (
	SegmentText  SegmentKind = "text"
	SegmentImage SegmentKind = "image"
	SegmentVideo SegmentKind = "video"
)

// Segment is one block of a fetched post body. Media references are kept as
// structured segments so rendering can treat them differently from prose.
type Segment struct {
	Kind SegmentKind `json:"type"`
	Text string      `json:"text,omitempty"`
	URL  string      `json:"url,omitempty"`
}

// PostContent is the full body of a single post fetched on demand.
type PostContent struct {
	Content  string    `json:"content"`
	Segments []Segment `json:"segments,omitempty"`
}

// PostID derives a deterministic post id from source id, normalized title and
// publish time, so re-crawls of the same item are idempotent.
func PostID(sourceID, title string, published time.Time) string {
	h := sha1.Sum([]byte(sourceID + "\x00" + title + "\x00" + published.UTC().Format(time.RFC3339))) //nolint:gosec // stable id, not security
	return sourceID + "_" + hex.EncodeToString(h[:8])
}
