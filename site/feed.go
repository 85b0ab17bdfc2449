package site

import (
	"encoding/xml"
	"net/http"
	"time"

	"github.com/adonese/folio/cms_fields"
	"github.com/adonese/folio/store"
	"github.com/gofiber/fiber/v2"
)

const (
	feedSize       = 20
	sitemapPage    = cms_fields.MaxPerPage
	sitemapXMLNS   = "http://www.sitemaps.org/schemas/sitemap/0.9"
	atomXMLNS      = "http://www.w3.org/2005/Atom"
	xmlContentType = "application/xml; charset=utf-8"
)

type rss struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Atom    string     `xml:"xmlns:atom,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title         string    `xml:"title"`
	Link          string    `xml:"link"`
	Description   string    `xml:"description"`
	Language      string    `xml:"language,omitempty"`
	LastBuildDate string    `xml:"lastBuildDate,omitempty"`
	AtomLink      atomLink  `xml:"atom:link"`
	Items         []rssItem `xml:"item"`
}

type atomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
	Type string `xml:"type,attr"`
}

type rssItem struct {
	Title       string  `xml:"title"`
	Link        string  `xml:"link"`
	GUID        rssGUID `xml:"guid"`
	PubDate     string  `xml:"pubDate"`
	Description string  `xml:"description"`
	Category    string  `xml:"category,omitempty"`
	Author      string  `xml:"author,omitempty"`
}

type rssGUID struct {
	Value       string `xml:",chardata"`
	IsPermaLink bool   `xml:"isPermaLink,attr"`
}

// Feed renders the latest published posts as RSS 2.0.
func (s *Service) Feed(c *fiber.Ctx) error {
	ctx := c.UserContext()
	settings := s.settings(ctx)
	base := s.baseURL(c)

	posts, _, err := s.Store.ListPosts(ctx, store.PostFilter{PublishedOnly: true}, cms_fields.Pagination{Page: 1, PerPage: feedSize})
	if err != nil {
		return s.dbError(err, "feed")
	}

	channel := rssChannel{
		Title:       settings.String(cms_fields.SettingSiteTitle, "folio"),
		Link:        base + "/",
		Description: settings.String(cms_fields.SettingSiteDescription, ""),
		AtomLink:    atomLink{Href: base + "/feed.xml", Rel: "self", Type: "application/rss+xml"},
		Items:       make([]rssItem, 0, len(posts)),
	}
	for i, p := range posts {
		published := p.PublishedAt.Time.UTC()
		if i == 0 {
			channel.LastBuildDate = published.Format(time.RFC1123Z)
		}
		link := base + postPath(p.Slug)
		item := rssItem{
			Title:       p.Title,
			Link:        link,
			GUID:        rssGUID{Value: link, IsPermaLink: true},
			PubDate:     published.Format(time.RFC1123Z),
			Description: p.Excerpt,
			Author:      p.AuthorName,
		}
		if p.Category != nil {
			item.Category = p.Category.Name
		}
		channel.Items = append(channel.Items, item)
	}
	return writeXML(c, rss{Version: "2.0", Atom: atomXMLNS, Channel: channel})
}

type urlSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

// Sitemap lists the static sections plus every published post and project.
func (s *Service) Sitemap(c *fiber.Ctx) error {
	ctx := c.UserContext()
	base := s.baseURL(c)
	set := urlSet{XMLNS: sitemapXMLNS, URLs: []sitemapURL{
		{Loc: base + "/"},
		{Loc: base + "/blog"},
		{Loc: base + "/projects"},
		{Loc: base + "/contact"},
	}}

	for page := 1; ; page++ {
		posts, total, err := s.Store.ListPosts(ctx, store.PostFilter{PublishedOnly: true}, cms_fields.Pagination{Page: page, PerPage: sitemapPage})
		if err != nil {
			return s.dbError(err, "sitemap posts")
		}
		for _, p := range posts {
			set.URLs = append(set.URLs, sitemapURL{Loc: base + postPath(p.Slug), LastMod: lastMod(p.UpdatedAt)})
		}
		if page*sitemapPage >= total || len(posts) == 0 {
			break
		}
	}

	projects, err := s.Store.ListProjects(ctx, store.ProjectFilter{PublishedOnly: true})
	if err != nil {
		return s.dbError(err, "sitemap projects")
	}
	for _, p := range projects {
		set.URLs = append(set.URLs, sitemapURL{Loc: base + "/projects/" + p.Slug, LastMod: lastMod(p.UpdatedAt)})
	}
	return writeXML(c, set)
}

func postPath(slug string) string {
	return "/blog/" + slug
}

func lastMod(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02")
}

func writeXML(c *fiber.Ctx, v any) error {
	out, err := xml.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, xmlContentType)
	return c.Status(http.StatusOK).Send(append([]byte(xml.Header), out...))
}
