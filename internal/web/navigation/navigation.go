// Package navigation provides utilities for managing navigation state and breadcrumbs.
package navigation

import (
	"net/url"
	"path/filepath"
	"strings"
)

// BreadcrumbItem represents a single breadcrumb link.
type BreadcrumbItem struct {
	Title  string
	URL    string
	Active bool
}

// Context represents the navigation context for a page.
type Context struct {
	ActiveSection string
	ActivePage    string
	Breadcrumbs   []BreadcrumbItem
	PageTitle     string
}

// NewContext creates a new navigation context.
func NewContext(pageTitle, activeSection, activePage string) *Context {
	return &Context{
		PageTitle:     pageTitle,
		ActiveSection: activeSection,
		ActivePage:    activePage,
		Breadcrumbs:   make([]BreadcrumbItem, 0),
	}
}

// AddBreadcrumb adds a breadcrumb item to the context.
func (c *Context) AddBreadcrumb(title, url string, active bool) *Context {
	c.Breadcrumbs = append(c.Breadcrumbs, BreadcrumbItem{
		Title:  title,
		URL:    url,
		Active: active,
	})

	return c
}

// AddPathBreadcrumbs adds one crumb per directory from root down to current.
// Each crumb links to baseURL with the directory in the "dir" query parameter.
// The last crumb is active.
func (c *Context) AddPathBreadcrumbs(root, current, baseURL string) *Context {
	root = filepath.Clean(root)
	current = filepath.Clean(current)

	rel, err := filepath.Rel(root, current)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return c.AddBreadcrumb(current, dirURL(baseURL, current), true)
	}

	c.AddBreadcrumb(baseName(root), dirURL(baseURL, root), rel == ".")

	if rel == "." {
		return c
	}

	dir := root
	parts := strings.Split(rel, string(filepath.Separator))

	for i, part := range parts {
		dir = filepath.Join(dir, part)
		c.AddBreadcrumb(part, dirURL(baseURL, dir), i == len(parts)-1)
	}

	return c
}

// IsActive checks if the given section and page match the current context.
func (c *Context) IsActive(section, page string) bool {
	return c.ActiveSection == section && c.ActivePage == page
}

// IsSectionActive checks if the given section is active.
func (c *Context) IsSectionActive(section string) bool {
	return c.ActiveSection == section
}

func dirURL(baseURL, dir string) string {
	return baseURL + "?dir=" + url.QueryEscape(dir)
}

func baseName(path string) string {
	if name := filepath.Base(path); name != string(filepath.Separator) && name != "." {
		return name
	}

	return path
}
