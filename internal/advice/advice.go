// Package advice renders the static strategy page from embedded markdown.
package advice

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

//go:embed content.md
var content []byte

// Section is one collapsible block of the page.
type Section struct {
	Title string
	Body  template.HTML
}

// Page is the rendered advice content.
type Page struct {
	Intro    template.HTML
	Sections []Section
}

var md = goldmark.New(goldmark.WithExtensions(extension.GFM))

// Load renders the embedded content.
func Load() (*Page, error) {
	return Render(content)
}

// Render splits source at its level-2 headings and renders each part.
// Text before the first heading becomes the intro.
func Render(source []byte) (*Page, error) {
	root := md.Parser().Parse(text.NewReader(source))

	type cut struct {
		title string
		start int
	}
	var cuts []cut
	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		h, ok := n.(*ast.Heading)
		if !ok || h.Level != 2 || h.Lines().Len() == 0 {
			continue
		}
		line := h.Lines().At(0)
		cuts = append(cuts, cut{title: headingText(h, source), start: lineStart(source, line.Start)})
	}

	page := &Page{}
	introEnd := len(source)
	if len(cuts) > 0 {
		introEnd = cuts[0].start
	}
	intro, err := convert(source[:introEnd])
	if err != nil {
		return nil, err
	}
	page.Intro = intro

	for i, c := range cuts {
		end := len(source)
		if i+1 < len(cuts) {
			end = cuts[i+1].start
		}
		body := source[c.start:end]
		// Drop the heading line itself; the title is shown by the template.
		if nl := bytes.IndexByte(body, '\n'); nl >= 0 {
			body = body[nl+1:]
		} else {
			body = nil
		}
		html, err := convert(body)
		if err != nil {
			return nil, fmt.Errorf("render section %q: %w", c.title, err)
		}
		page.Sections = append(page.Sections, Section{Title: c.title, Body: html})
	}
	return page, nil
}

func convert(src []byte) (template.HTML, error) {
	var buf bytes.Buffer
	if err := md.Convert(src, &buf); err != nil {
		return "", err
	}
	// Goldmark escapes raw HTML by default, so the output is safe to embed.
	return template.HTML(buf.String()), nil
}

func headingText(h *ast.Heading, source []byte) string {
	var b strings.Builder
	for i := 0; i < h.Lines().Len(); i++ {
		seg := h.Lines().At(i)
		b.Write(seg.Value(source))
	}
	return strings.TrimSpace(b.String())
}

// lineStart moves offset back to the beginning of its line, so the "## "
// marker is included in the cut.
func lineStart(source []byte, offset int) int {
	if i := bytes.LastIndexByte(source[:offset], '\n'); i >= 0 {
		return i + 1
	}
	return 0
}
