package feed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nitesh/news_service/pkg/models"
)

const rssBody = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:content="http://purl.org/rss/1.0/modules/content/">
  <channel>
    <title>Tech Daily</title>
    <link>https://ex.test/</link>
    <description>daily</description>
    <item>
      <title>X</title>
      <link>https://ex.test/a1</link>
      <pubDate>Mon, 01 Jan 2024 00:00:00 +0000</pubDate>
    </item>
    <item>
      <title>With body</title>
      <link>https://ex.test/a2</link>
      <description><![CDATA[<p>Hello &amp; <b>world</b></p>]]></description>
    </item>
    <item>
      <description>only a description</description>
      <content:encoded><![CDATA[<div>Full   <i>text</i></div>]]></content:encoded>
    </item>
  </channel>
</rss>`

const atomBody = `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Atom Feed</title>
  <entry>
    <title>Atom entry</title>
    <link href="https://ex.test/atom1"/>
    <id>urn:1</id>
    <updated>2024-02-03T04:05:06+02:00</updated>
    <content type="html">&lt;p&gt;atom body&lt;/p&gt;</content>
  </entry>
</feed>`

func serve(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchRSS(t *testing.T) {
	srv := serve(t, http.StatusOK, rssBody)

	items, err := NewFetcher(5*time.Second, nil).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Len(t, items, 3)

	assert.Equal(t, models.RawItem{
		Title:   "X",
		Link:    "https://ex.test/a1",
		IsoDate: "2024-01-01T00:00:00Z",
	}, items[0])

	assert.Equal(t, "With body", items[1].Title)
	assert.Empty(t, items[1].IsoDate)
	assert.Equal(t, "<p>Hello &amp; <b>world</b></p>", items[1].Content)
	assert.Equal(t, "Hello & world", items[1].ContentSnippet)

	assert.Empty(t, items[2].Title)
	assert.Empty(t, items[2].Link)
	assert.Equal(t, "<div>Full   <i>text</i></div>", items[2].Content)
	assert.Equal(t, "Full text", items[2].ContentSnippet)
}

func TestFetchAtom(t *testing.T) {
	srv := serve(t, http.StatusOK, atomBody)

	items, err := NewFetcher(0, nil).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Atom entry", items[0].Title)
	assert.Equal(t, "https://ex.test/atom1", items[0].Link)
	assert.Equal(t, "2024-02-03T02:05:06Z", items[0].IsoDate)
	assert.Equal(t, "atom body", items[0].ContentSnippet)
}

func TestFetchErrors(t *testing.T) {
	notFound := serve(t, http.StatusNotFound, "nope")
	garbage := serve(t, http.StatusOK, "this is not a feed")

	tests := []struct {
		name    string
		url     string
		wantErr error
	}{
		{name: "http error status", url: notFound.URL},
		{name: "unparseable body", url: garbage.URL},
		{name: "relative url", url: "example.com/rss", wantErr: ErrInvalidURL},
		{name: "unsupported scheme", url: "ftp://example.com/rss", wantErr: ErrInvalidURL},
		{name: "empty url", url: "", wantErr: ErrInvalidURL},
	}

	f := NewFetcher(5*time.Second, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := f.Fetch(context.Background(), tt.url)
			require.Error(t, err)
			assert.Nil(t, items)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			}
		})
	}
}

func TestFetchTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		_, _ = w.Write([]byte(rssBody))
	}))
	t.Cleanup(srv.Close)

	_, err := NewFetcher(50*time.Millisecond, nil).Fetch(context.Background(), srv.URL)
	assert.Error(t, err)
}

func TestFetchUsesRateLimiter(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(rssBody))
	}))
	t.Cleanup(srv.Close)

	f := NewFetcher(5*time.Second, NewHostRateLimiter(time.Hour))
	_, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = f.Fetch(ctx, srv.URL)
	require.Error(t, err)
	assert.Equal(t, int32(1), hits.Load())
}

func TestConvertItemsSkipsNil(t *testing.T) {
	published := time.Date(2024, 5, 6, 7, 8, 9, 0, time.FixedZone("x", 3600))
	items := ConvertItems([]*gofeed.Item{
		nil,
		{Title: "t", Link: "l", PublishedParsed: &published, Description: "d"},
	})
	require.Len(t, items, 1)
	assert.Equal(t, "2024-05-06T06:08:09Z", items[0].IsoDate)
	assert.Equal(t, "d", items[0].Content)
	assert.Equal(t, "d", items[0].ContentSnippet)
}

func TestSnippet(t *testing.T) {
	tests := map[string]string{
		"":                               "",
		"plain":                          "plain",
		"<p>a</p>\n\n<p>b</p>":           "a b",
		"<script>x()</script>kept":       "kept",
		"Tom &amp; Jerry &lt;3":          "Tom & Jerry <3",
		"  <br/>  spaced   out  <br/> ": "spaced out",
	}
	for in, want := range tests {
		assert.Equal(t, want, Snippet(in), "input %q", in)
	}
}

func TestHostRateLimiter(t *testing.T) {
	assert.Nil(t, NewHostRateLimiter(0))

	l := NewHostRateLimiter(time.Hour)
	require.NoError(t, l.WaitForHost(context.Background(), "https://a.example/rss"))
	require.NoError(t, l.WaitForHost(context.Background(), "https://b.example/rss"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Error(t, l.WaitForHost(ctx, "https://a.example/other"))

	assert.Error(t, l.WaitForHost(context.Background(), "/no-host"))
}
