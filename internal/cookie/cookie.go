// Package cookie carries the signed session credential in an HTTP cookie that
// a browser extension can attach to cross-site requests.
package cookie

import (
	"net/http"
	"strings"
	"time"
)

const DefaultName = "auth"

type Transport struct {
	Name   string
	Domain string
	MaxAge time.Duration
	// Secure is only turned off for plain-http local development; browsers
	// refuse SameSite=None without it.
	Secure bool
}

func New(name, domain string, maxAge time.Duration, secure bool) Transport {
	if name == "" {
		name = DefaultName
	}
	return Transport{Name: name, Domain: domain, MaxAge: maxAge, Secure: secure}
}

func (t Transport) SetAuthCookie(w http.ResponseWriter, token string) {
	t.write(w, &http.Cookie{
		Name:     t.Name,
		Value:    token,
		Path:     "/",
		Domain:   t.Domain,
		MaxAge:   int(t.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   t.Secure,
		SameSite: http.SameSiteNoneMode,
	})
}

func (t Transport) ClearAuthCookie(w http.ResponseWriter) {
	t.write(w, &http.Cookie{
		Name:     t.Name,
		Value:    "",
		Path:     "/",
		Domain:   t.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   t.Secure,
		SameSite: http.SameSiteNoneMode,
	})
}

func (t Transport) GetAuthCookieFromRequest(r *http.Request) (string, bool) {
	if r == nil {
		return "", false
	}
	c, err := r.Cookie(t.Name)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}

// write replaces any Set-Cookie already queued for the same name so repeated
// calls leave exactly one header.
func (t Transport) write(w http.ResponseWriter, c *http.Cookie) {
	header := w.Header()
	prefix := t.Name + "="
	var kept []string
	for _, v := range header.Values("Set-Cookie") {
		if !strings.HasPrefix(v, prefix) {
			kept = append(kept, v)
		}
	}
	header.Del("Set-Cookie")
	for _, v := range kept {
		header.Add("Set-Cookie", v)
	}
	if v := c.String(); v != "" {
		header.Add("Set-Cookie", v)
	}
}
