package service

import (
	"encoding/base64"
	"time"

	"github.com/nitesh/news_service/pkg/models"
)

const (
	DefaultTitle              = "No Title"
	DefaultCategory           = "General"
	DefaultSourceName         = "Unknown Source"
	DefaultCallableSourceName = "Unknown"
)

// DeriveID returns the article id for a URL: the standard base64 encoding of
// its bytes. Equal URLs give equal ids and the encoding is injective. The empty
// URL maps to the empty id, so url-less items overwrite each other.
func DeriveID(url string) string {
	return base64.StdEncoding.EncodeToString([]byte(url))
}

// Normalize maps one feed entry to the stored article shape. now is used as
// the publish time when the feed gives none.
func Normalize(item models.RawItem, src models.Source, now time.Time) models.Article {
	title := item.Title
	if title == "" {
		title = DefaultTitle
	}

	summary := item.ContentSnippet
	if summary == "" {
		summary = item.Content
	}

	publishedAt := item.IsoDate
	if publishedAt == "" {
		publishedAt = now.UTC().Format(time.RFC3339)
	}

	return models.Article{
		Title:       title,
		Summary:     summary,
		Content:     item.Content,
		URL:         item.Link,
		SourceID:    src.ID,
		SourceName:  src.Name,
		PublishedAt: publishedAt,
		Category:    src.Category,
	}
}

// NormalizeAll normalizes every item and keys it by DeriveID.
func NormalizeAll(items []models.RawItem, src models.Source, now time.Time) []models.Article {
	out := make([]models.Article, len(items))
	for i, it := range items {
		a := Normalize(it, src, now)
		a.ID = DeriveID(a.URL)
		out[i] = a
	}
	return out
}
