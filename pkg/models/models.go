package models

import (
	"encoding/json"
	"time"
)

// Article represents a news article record used across the service.
// SourceName is serialized under both "source" and "sourceName" so that
// readers using either field name keep working.
type Article struct {
	ID          string `db:"id" json:"id"`
	Title       string `db:"title" json:"title"`
	Summary     string `db:"summary" json:"summary"`
	Content     string `db:"content" json:"content"`
	URL         string `db:"url" json:"url"`
	SourceID    string `db:"source_id" json:"sourceId"`
	SourceName  string `db:"source_name" json:"-"`
	PublishedAt string `db:"published_at" json:"publishedAt"`
	Category    string `db:"category" json:"category"`
}

type articleJSON struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Summary     string `json:"summary"`
	Content     string `json:"content"`
	URL         string `json:"url"`
	SourceID    string `json:"sourceId"`
	Source      string `json:"source"`
	SourceName  string `json:"sourceName"`
	PublishedAt string `json:"publishedAt"`
	Category    string `json:"category"`
}

func (a Article) MarshalJSON() ([]byte, error) {
	return json.Marshal(articleJSON{
		ID:          a.ID,
		Title:       a.Title,
		Summary:     a.Summary,
		Content:     a.Content,
		URL:         a.URL,
		SourceID:    a.SourceID,
		Source:      a.SourceName,
		SourceName:  a.SourceName,
		PublishedAt: a.PublishedAt,
		Category:    a.Category,
	})
}

// UnmarshalJSON prefers "sourceName" and falls back to the older "source".
func (a *Article) UnmarshalJSON(b []byte) error {
	var aj articleJSON
	if err := json.Unmarshal(b, &aj); err != nil {
		return err
	}
	name := aj.SourceName
	if name == "" {
		name = aj.Source
	}
	*a = Article{
		ID:          aj.ID,
		Title:       aj.Title,
		Summary:     aj.Summary,
		Content:     aj.Content,
		URL:         aj.URL,
		SourceID:    aj.SourceID,
		SourceName:  name,
		PublishedAt: aj.PublishedAt,
		Category:    aj.Category,
	}
	return nil
}

// Source is a registered feed endpoint owned by end users.
type Source struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	URL       string    `db:"url" json:"url"`
	Category  string    `db:"category" json:"category"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// RawItem is one parsed feed entry. Empty strings mean the feed omitted the field.
type RawItem struct {
	Title          string `json:"title,omitempty"`
	Link           string `json:"link,omitempty"`
	IsoDate        string `json:"isoDate,omitempty"`
	Content        string `json:"content,omitempty"`
	ContentSnippet string `json:"contentSnippet,omitempty"`
}

// SourceResult is the outcome of one source within a sweep.
type SourceResult struct {
	SourceID   string `json:"sourceId"`
	SourceName string `json:"sourceName"`
	URL        string `json:"url"`
	Count      int    `json:"count"`
	Error      string `json:"error,omitempty"`
	DurationMs int64  `json:"durationMs"`
}

func (r SourceResult) OK() bool { return r.Error == "" }

// SweepReport summarizes one pass of the scheduler over all registered sources.
type SweepReport struct {
	ID         string         `json:"id"`
	StartedAt  time.Time      `json:"startedAt"`
	FinishedAt time.Time      `json:"finishedAt"`
	Attempted  int            `json:"attempted"`
	Succeeded  int            `json:"succeeded"`
	Failed     int            `json:"failed"`
	Articles   int            `json:"articles"`
	Error      string         `json:"error,omitempty"`
	Results    []SourceResult `json:"results"`
}
