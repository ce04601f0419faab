// Package extract finds image references inside fetched album page text.
//
// The matching rules are inherently coupled to the page's current markup, so
// each rule lives behind the Extractor interface and can be swapped without
// touching the downloader.
package extract

import (
	"net/url"
	"path"
	"regexp"
	"strings"

	"mvdan.cc/xurls/v2"
)

// ImageRef is one image discovered on an album page: the identifier imgur
// names it by and the file extension the page reports for it.
type ImageRef struct {
	ID  string
	Ext string
}

// Extractor turns page text into an ordered, deduplicated list of image
// references. An empty result is valid: it means an empty album, or a page
// layout the rule no longer matches.
type Extractor interface {
	Extract(html string) []ImageRef
}

// hashExtPattern matches the image entries embedded in the album page's
// script data, e.g. {"hash":"fGWX0","ext":".jpg",...}. Other fields may sit
// between hash and ext, but never past the object boundary.
var hashExtPattern = regexp.MustCompile(`"hash":"([a-zA-Z0-9]+)"[^{}]*?"ext":"(\.[a-zA-Z0-9]+)`)

// EmbeddedDataExtractor scans the JSON blob the album page embeds for
// hash/ext pairs
type EmbeddedDataExtractor struct {
	// extensions restricts matches to the listed extensions; empty means all
	extensions map[string]bool
}

// NewEmbeddedDataExtractor creates the default extraction strategy. When
// extensions is non-empty, only images with those extensions are returned.
func NewEmbeddedDataExtractor(extensions []string) *EmbeddedDataExtractor {
	e := &EmbeddedDataExtractor{}
	if len(extensions) > 0 {
		e.extensions = make(map[string]bool, len(extensions))
		for _, ext := range extensions {
			e.extensions[strings.ToLower(ext)] = true
		}
	}
	return e
}

// Extract returns the hash/ext pairs found in the page text, deduplicated by
// identifier in first-seen order
func (e *EmbeddedDataExtractor) Extract(html string) []ImageRef {
	var refs []ImageRef
	seen := make(map[string]bool)

	for _, m := range hashExtPattern.FindAllStringSubmatch(html, -1) {
		id, ext := m[1], m[2]
		if seen[id] {
			continue
		}
		if e.extensions != nil && !e.extensions[strings.ToLower(ext)] {
			continue
		}
		seen[id] = true
		refs = append(refs, ImageRef{ID: id, Ext: ext})
	}

	return refs
}

// DirectLinkExtractor finds plain i.imgur.com links anywhere in the page
// text. A coarser strategy than the embedded data scan, but it survives
// markup changes that break the JSON blob.
type DirectLinkExtractor struct {
	host string
}

// NewDirectLinkExtractor creates a direct-link strategy for the default
// image host
func NewDirectLinkExtractor() *DirectLinkExtractor {
	return &DirectLinkExtractor{host: "i.imgur.com"}
}

// Extract returns references parsed from direct image links in the text
func (d *DirectLinkExtractor) Extract(html string) []ImageRef {
	var refs []ImageRef
	seen := make(map[string]bool)

	for _, raw := range xurls.Strict().FindAllString(html, -1) {
		u, err := url.Parse(raw)
		if err != nil || u.Host != d.host {
			continue
		}
		ext := path.Ext(u.Path)
		if ext == "" {
			continue
		}
		id := strings.TrimSuffix(path.Base(u.Path), ext)
		if id == "" || seen[id] {
			continue
		}
		// Thumbnail suffixes (fGWX0b, fGWX0s, ...) alias the same image id,
		// but stripping them risks mangling real ids, so links are taken
		// as-is.
		seen[id] = true
		refs = append(refs, ImageRef{ID: id, Ext: ext})
	}

	return refs
}

// Chain tries each strategy in order and returns the first non-empty result
type Chain []Extractor

// Extract runs the chained strategies in order
func (c Chain) Extract(html string) []ImageRef {
	for _, e := range c {
		if refs := e.Extract(html); len(refs) > 0 {
			return refs
		}
	}
	return nil
}
