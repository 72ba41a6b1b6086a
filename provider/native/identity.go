package native

import (
	"bufio"
	"net/http"
	"os"
	"strings"
)

// An Identity is the simulated platform/application profile presented to the
// upstream service. Different identities may unlock different availability,
// so resolution iterates over them in order.
type Identity struct {
	Name      string
	UserAgent string
	// Headers are extra client hints sent with every request.
	Headers map[string]string
	// Authenticated marks identities able to make use of account cookies.
	Authenticated bool
}

var (
	IdentityWeb = Identity{
		Name:      "web",
		UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		Headers: map[string]string{
			"X-Youtube-Client-Name": "1",
		},
		Authenticated: true,
	}
	IdentityAndroid = Identity{
		Name:      "android",
		UserAgent: "com.google.android.youtube/19.09.37 (Linux; U; Android 14) gzip",
		Headers: map[string]string{
			"X-Youtube-Client-Name": "3",
		},
	}
	IdentityIOS = Identity{
		Name:      "ios",
		UserAgent: "com.google.ios.youtube/19.09.3 (iPhone14,3; U; CPU iOS 17_4 like Mac OS X)",
		Headers: map[string]string{
			"X-Youtube-Client-Name": "5",
		},
	}
)

// DefaultIdentities is the default client identity order: anonymous-friendly
// clients first.
func DefaultIdentities() []Identity {
	return []Identity{IdentityAndroid, IdentityWeb, IdentityIOS}
}

// IdentityByName looks up a built-in identity.
func IdentityByName(name string) (Identity, bool) {
	for _, id := range []Identity{IdentityWeb, IdentityAndroid, IdentityIOS} {
		if id.Name == name {
			return id, true
		}
	}
	return Identity{}, false
}

// orderFor reorders identities so that ones able to use account cookies come
// first when a cookie file is supplied. The relative order is otherwise
// preserved; no identity is added or removed.
func orderFor(identities []Identity, hasCookies bool) []Identity {
	if !hasCookies {
		return identities
	}
	ordered := make([]Identity, 0, len(identities))
	for _, id := range identities {
		if id.Authenticated {
			ordered = append(ordered, id)
		}
	}
	for _, id := range identities {
		if !id.Authenticated {
			ordered = append(ordered, id)
		}
	}
	return ordered
}

// identityTransport presents an Identity on every outgoing request, and
// attaches cookies loaded from a Netscape-format cookie file when present.
type identityTransport struct {
	identity     Identity
	cookieHeader string
	base         http.RoundTripper
}

func (t *identityTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	clone.Header.Set("User-Agent", t.identity.UserAgent)
	for k, v := range t.identity.Headers {
		clone.Header.Set(k, v)
	}
	if t.cookieHeader != "" {
		clone.Header.Set("Cookie", t.cookieHeader)
	}
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(clone)
}

// cookieHeaderFromFile flattens a Netscape-format cookie file into a single
// Cookie header value. Malformed lines are skipped rather than failing the
// whole identity.
func cookieHeaderFromFile(path string) string {
	if path == "" {
		return ""
	}
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()
	var pairs []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		// domain, include-subdomains, path, secure, expiry, name, value
		fields := strings.Split(line, "\t")
		if len(fields) < 7 {
			continue
		}
		name, value := fields[5], fields[6]
		if name == "" {
			continue
		}
		pairs = append(pairs, name+"="+value)
	}
	return strings.Join(pairs, "; ")
}
