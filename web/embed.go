// Package web bundles the budget UI into the binary.
package web

import "embed"

// TemplatesFS holds the page and partial templates. Every file defines
// named templates; none is executed by file name.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS holds the stylesheet and page script.
//
//go:embed static/*
var StaticFS embed.FS
