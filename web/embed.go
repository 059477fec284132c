// Package web carries the dashboard's page templates and static files.
package web

import "embed"

// TemplatesFS holds the layout and one template per page.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS holds the stylesheet and the advice flowchart, served under /static/.
//
//go:embed static/*
var StaticFS embed.FS
