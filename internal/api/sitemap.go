package api

import (
	"encoding/xml"
	"log/slog"
	"net/http"
	"time"
)

// sitemapGenres are the genre slugs linked from the sitemap.
var sitemapGenres = []string{
	"action", "adventure", "comedy", "drama", "fantasy", "horror", "mystery",
	"romance", "sci-fi", "slice-of-life", "sports", "supernatural", "thriller",
}

type sitemapURL struct {
	Loc        string  `xml:"loc"`
	LastMod    string  `xml:"lastmod"`
	ChangeFreq string  `xml:"changefreq"`
	Priority   float64 `xml:"priority"`
}

type urlSet struct {
	XMLName xml.Name     `xml:"urlset"`
	Xmlns   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

// SitemapHandler serves GET /sitemap.xml.
type SitemapHandler struct {
	BaseURL string
	now     func() time.Time
}

// NewSitemapHandler creates a sitemap for the site rooted at baseURL.
func NewSitemapHandler(baseURL string) *SitemapHandler {
	return &SitemapHandler{BaseURL: baseURL, now: time.Now}
}

func (sh *SitemapHandler) build() urlSet {
	lastMod := sh.now().UTC().Format(time.RFC3339)
	set := urlSet{Xmlns: "http://www.sitemaps.org/schemas/sitemap/0.9"}

	for _, route := range []string{"", "/movies", "/tv-series", "/search"} {
		priority := 0.8
		if route == "" {
			priority = 1
		}
		set.URLs = append(set.URLs, sitemapURL{
			Loc:        sh.BaseURL + route,
			LastMod:    lastMod,
			ChangeFreq: "daily",
			Priority:   priority,
		})
	}
	for _, genre := range sitemapGenres {
		set.URLs = append(set.URLs, sitemapURL{
			Loc:        sh.BaseURL + "/genre/" + genre,
			LastMod:    lastMod,
			ChangeFreq: "weekly",
			Priority:   0.6,
		})
	}
	return set
}

func (sh *SitemapHandler) HandleSitemap(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(xml.Header)); err != nil {
		slog.Error("Error writing sitemap", "error", err)
		return
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(sh.build()); err != nil {
		slog.Error("Error encoding sitemap", "error", err)
	}
}
