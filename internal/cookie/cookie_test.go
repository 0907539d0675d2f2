package cookie

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetAuthCookieAttributes(t *testing.T) {
	transport := New("", "classlog.app", 7*24*time.Hour, true)
	rec := httptest.NewRecorder()

	transport.SetAuthCookie(rec, "signed.token.value")

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	c := cookies[0]
	assert.Equal(t, "auth", c.Name)
	assert.Equal(t, "signed.token.value", c.Value)
	assert.Equal(t, "/", c.Path)
	assert.Equal(t, "classlog.app", c.Domain)
	assert.Equal(t, 604800, c.MaxAge)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteNoneMode, c.SameSite)
}

func TestSetAuthCookieOverwrites(t *testing.T) {
	transport := New("auth", "classlog.app", time.Hour, true)
	rec := httptest.NewRecorder()
	http.SetCookie(rec, &http.Cookie{Name: "other", Value: "keep"})

	transport.SetAuthCookie(rec, "first")
	transport.SetAuthCookie(rec, "second")

	values := map[string]string{}
	for _, c := range rec.Result().Cookies() {
		_, dup := values[c.Name]
		assert.False(t, dup, "duplicate cookie %s", c.Name)
		values[c.Name] = c.Value
	}
	assert.Equal(t, map[string]string{"other": "keep", "auth": "second"}, values)
}

func TestClearAuthCookie(t *testing.T) {
	transport := New("auth", "classlog.app", time.Hour, true)
	rec := httptest.NewRecorder()

	transport.SetAuthCookie(rec, "token")
	transport.ClearAuthCookie(rec)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "", cookies[0].Value)
	assert.Less(t, cookies[0].MaxAge, 0)
}

func TestGetAuthCookieFromRequest(t *testing.T) {
	transport := New("auth", "", time.Hour, true)

	req := httptest.NewRequest(http.MethodGet, "/extension/verify", nil)
	_, ok := transport.GetAuthCookieFromRequest(req)
	assert.False(t, ok)

	req.AddCookie(&http.Cookie{Name: "auth", Value: "abc"})
	value, ok := transport.GetAuthCookieFromRequest(req)
	assert.True(t, ok)
	assert.Equal(t, "abc", value)

	empty := httptest.NewRequest(http.MethodGet, "/extension/verify", nil)
	empty.Header.Set("Cookie", "auth=")
	_, ok = transport.GetAuthCookieFromRequest(empty)
	assert.False(t, ok)

	_, ok = transport.GetAuthCookieFromRequest(nil)
	assert.False(t, ok)
}
