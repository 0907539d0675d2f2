// Package cors decides which cross-origin headers an auth route answers with.
//
// Callers are classified by their Origin header. Extension, local development
// and trusted meeting-platform origins get a credentialed answer that echoes
// the exact origin; anything else gets the non-credentialed wildcard. Browsers
// reject a wildcard origin combined with credentials, so the two are never
// mixed.
package cors

import (
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

type Category string

const (
	CategoryExtension    Category = "extension"
	CategoryLocalDev     Category = "local-dev"
	CategoryTrustedEmbed Category = "trusted-embed"
	CategoryDefault      Category = "default"
)

func (c Category) AllowsCredentials() bool {
	return c != CategoryDefault
}

const (
	allowMethods = "GET, POST, DELETE, OPTIONS"
	allowHeaders = "Content-Type, Authorization"
	maxAge       = 86400
)

var (
	DefaultExtensionPrefixes = []string{"chrome-extension://", "moz-extension://", "safari-web-extension://"}
	DefaultLoopbackHosts     = []string{"localhost", "127.0.0.1", "::1"}
	DefaultTrustedEmbedHosts = []string{"meet.google.com", "zoom.us", "*.zoom.us", "teams.microsoft.com", "teams.live.com"}
)

type Policy struct {
	ExtensionPrefixes []string
	LoopbackHosts     []string
	TrustedEmbedHosts []string
}

func DefaultPolicy() Policy {
	return Policy{
		ExtensionPrefixes: DefaultExtensionPrefixes,
		LoopbackHosts:     DefaultLoopbackHosts,
		TrustedEmbedHosts: DefaultTrustedEmbedHosts,
	}
}

type Headers struct {
	AllowOrigin      string
	AllowMethods     string
	AllowHeaders     string
	AllowCredentials bool
	MaxAge           int
}

func (h Headers) Apply(header http.Header) {
	header.Set("Access-Control-Allow-Origin", h.AllowOrigin)
	header.Set("Access-Control-Allow-Methods", h.AllowMethods)
	header.Set("Access-Control-Allow-Headers", h.AllowHeaders)
	header.Set("Access-Control-Max-Age", strconv.Itoa(h.MaxAge))
	// The wildcard answer depends on Origin too.
	if !hasVaryOrigin(header) {
		header.Add("Vary", "Origin")
	}
	if h.AllowCredentials {
		header.Set("Access-Control-Allow-Credentials", "true")
	} else {
		header.Del("Access-Control-Allow-Credentials")
	}
}

func hasVaryOrigin(header http.Header) bool {
	for _, v := range header.Values("Vary") {
		for _, field := range strings.Split(v, ",") {
			if strings.EqualFold(strings.TrimSpace(field), "Origin") {
				return true
			}
		}
	}
	return false
}

func (p Policy) Classify(origin string) Category {
	origin = strings.TrimSpace(origin)
	if origin == "" || origin == "null" {
		return CategoryDefault
	}
	lower := strings.ToLower(origin)
	for _, prefix := range p.ExtensionPrefixes {
		prefix = strings.ToLower(prefix)
		if prefix != "" && strings.HasPrefix(lower, prefix) && len(lower) > len(prefix) {
			return CategoryExtension
		}
	}

	u, err := url.Parse(lower)
	if err != nil || u.Host == "" {
		return CategoryDefault
	}
	host := u.Hostname()
	if matchHost(host, p.LoopbackHosts) && (u.Scheme == "http" || u.Scheme == "https") {
		return CategoryLocalDev
	}
	if u.Scheme == "https" && matchHost(host, p.TrustedEmbedHosts) {
		return CategoryTrustedEmbed
	}
	return CategoryDefault
}

func (p Policy) ResolveHeaders(origin string) Headers {
	category := p.Classify(origin)
	h := Headers{
		AllowOrigin:  "*",
		AllowMethods: allowMethods,
		AllowHeaders: allowHeaders,
		MaxAge:       maxAge,
	}
	if category.AllowsCredentials() {
		h.AllowOrigin = strings.TrimSpace(origin)
		h.AllowCredentials = true
	}
	return h
}

// PreflightResponse answers OPTIONS with 200 and no body whatever the route
// would decide for the real request.
func (p Policy) PreflightResponse(w http.ResponseWriter, origin string) {
	p.ResolveHeaders(origin).Apply(w.Header())
	w.Header().Set("Content-Length", "0")
	w.WriteHeader(http.StatusOK)
}

func (p Policy) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if r.Method == http.MethodOptions {
			p.PreflightResponse(w, origin)
			return
		}
		p.ResolveHeaders(origin).Apply(w.Header())
		next.ServeHTTP(w, r)
	})
}

func matchHost(host string, patterns []string) bool {
	host = stripPort(strings.ToLower(host))
	if host == "" {
		return false
	}
	for _, p := range patterns {
		p = stripPort(strings.ToLower(strings.TrimSpace(p)))
		if p == host {
			return true
		}
		if strings.HasPrefix(p, "*.") {
			suffix := p[1:]
			if strings.HasSuffix(host, suffix) && host != suffix[1:] {
				return true
			}
		}
	}
	return false
}

func stripPort(host string) string {
	h, _, err := net.SplitHostPort(host)
	if err != nil {
		return strings.Trim(host, "[]")
	}
	return h
}
