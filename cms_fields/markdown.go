package cms_fields

import (
	"bytes"
	"html"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	goldhtml "github.com/yuin/goldmark/renderer/html"
)

var (
	markdownOnce sync.Once
	markdown     goldmark.Markdown
	ugcPolicy    *bluemonday.Policy
	stripPolicy  *bluemonday.Policy
)

func initMarkdown() {
	markdownOnce.Do(func() {
		markdown = goldmark.New(
			goldmark.WithExtensions(extension.GFM, extension.Typographer),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
			goldmark.WithRendererOptions(goldhtml.WithUnsafe()),
		)
		ugcPolicy = bluemonday.UGCPolicy()
		ugcPolicy.AllowAttrs("id").Matching(bluemonday.SpaceSeparatedTokens).OnElements("h1", "h2", "h3", "h4", "h5", "h6")
		ugcPolicy.AllowAttrs("class").Matching(bluemonday.SpaceSeparatedTokens).OnElements("code", "pre", "span")
		stripPolicy = bluemonday.StrictPolicy()
	})
}

// RenderMarkdown converts post content to HTML safe to embed in a page. Raw HTML in the
// source is allowed through goldmark and then sanitised.
func RenderMarkdown(src string) (string, error) {
	initMarkdown()
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	return ugcPolicy.Sanitize(buf.String()), nil
}

// PlainText renders markdown and strips every tag, collapsing whitespace.
func PlainText(src string) string {
	initMarkdown()
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		return strings.Join(strings.Fields(src), " ")
	}
	text := html.UnescapeString(stripPolicy.Sanitize(buf.String()))
	return strings.Join(strings.Fields(text), " ")
}

// Truncate cuts s to at most n runes at a word boundary and appends an ellipsis when cut.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	cut := string(runes[:n])
	if i := strings.LastIndexByte(cut, ' '); i > n/2 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,.;:-") + "…"
}

// ReadingMinutes estimates reading time at 200 words per minute, never below one.
func ReadingMinutes(src string) int {
	words := len(strings.Fields(PlainText(src)))
	m := (words + 199) / 200
	if m < 1 {
		return 1
	}
	return m
}
