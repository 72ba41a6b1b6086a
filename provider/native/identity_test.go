package native

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	assert_ "github.com/stretchr/testify/assert"
)

func TestIdentityByName(t *testing.T) {
	assert := assert_.New(t)

	for _, name := range []string{"web", "android", "ios"} {
		id, ok := IdentityByName(name)
		assert.True(ok, name)
		assert.Equal(name, id.Name)
		assert.NotEmpty(id.UserAgent)
	}
	_, ok := IdentityByName("gameboy")
	assert.False(ok)
}

func TestOrderFor(t *testing.T) {
	assert := assert_.New(t)

	identities := []Identity{IdentityAndroid, IdentityWeb, IdentityIOS}

	names := func(ids []Identity) []string {
		out := make([]string, len(ids))
		for i, id := range ids {
			out[i] = id.Name
		}
		return out
	}

	// Without cookies the configured order is preserved
	assert.Equal([]string{"android", "web", "ios"}, names(orderFor(identities, false)))
	// With cookies, identities that can use them are promoted; nothing is dropped
	assert.Equal([]string{"web", "android", "ios"}, names(orderFor(identities, true)))
	assert.Len(orderFor(identities, true), len(identities))
}

func TestIdentityTransport(t *testing.T) {
	assert := assert_.New(t)

	var gotUA, gotClientName, gotCookie string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotClientName = r.Header.Get("X-Youtube-Client-Name")
		gotCookie = r.Header.Get("Cookie")
	}))
	defer server.Close()

	client := &http.Client{Transport: &identityTransport{
		identity:     IdentityAndroid,
		cookieHeader: "SID=abc",
	}}
	resp, err := client.Get(server.URL)
	assert.Nil(err)
	resp.Body.Close()

	assert.Equal(IdentityAndroid.UserAgent, gotUA)
	assert.Equal("3", gotClientName)
	assert.Equal("SID=abc", gotCookie)
}

func TestCookieHeaderFromFile(t *testing.T) {
	assert := assert_.New(t)

	path := filepath.Join(t.TempDir(), "cookies.txt")
	content := "# Netscape HTTP Cookie File\n" +
		"\n" +
		".youtube.com\tTRUE\t/\tTRUE\t0\tSID\tabc123\n" +
		"malformed line without tabs\n" +
		".youtube.com\tTRUE\t/\tTRUE\t0\tHSID\txyz\n"
	assert.Nil(os.WriteFile(path, []byte(content), 0o600))

	assert.Equal("SID=abc123; HSID=xyz", cookieHeaderFromFile(path))
	assert.Equal("", cookieHeaderFromFile(""))
	assert.Equal("", cookieHeaderFromFile(filepath.Join(t.TempDir(), "missing.txt")))
}
