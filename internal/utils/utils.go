package utils

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

var (
	ErrEmptyURL    = errors.New("empty url")
	ErrMissingHost = errors.New("missing host")
)

// Params is a decoded query string. Keys are unique; when a query repeats a
// key, the last occurrence wins.
type Params map[string]string

// Clone returns an independent copy of p.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Names returns the parameter names in sorted order.
func (p Params) Names() []string {
	names := make([]string, 0, len(p))
	for k := range p {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// TargetURL is the decomposed form of a URL under test.
type TargetURL struct {
	Scheme string
	// Host is the network location, host[:port].
	Host   string
	Path   string
	Params Params
	Raw    string
}

// ParseURL splits raw into its parts. Blank query values are preserved.
func ParseURL(raw string) (*TargetURL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrEmptyURL
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("couldn't parse url %s: %w", raw, err)
	}

	params := Params{}
	for _, pair := range strings.Split(u.RawQuery, "&") {
		if pair == "" {
			continue
		}
		k, v, _ := strings.Cut(pair, "=")
		key, err := url.QueryUnescape(k)
		if err != nil {
			key = k
		}
		val, err := url.QueryUnescape(v)
		if err != nil {
			val = v
		}
		params[key] = val
	}

	return &TargetURL{
		Scheme: strings.ToLower(u.Scheme),
		Host:   u.Host,
		Path:   u.Path,
		Params: params,
		Raw:    raw,
	}, nil
}

// Build rebuilds the URL with params as its query. Fragments are dropped.
func (t *TargetURL) Build(params Params) string {
	values := make(url.Values, len(params))
	for k, v := range params {
		values.Set(k, v)
	}
	return t.BuildValues(values)
}

// BuildValues is Build for multi-valued queries; every value of a key is kept.
func (t *TargetURL) BuildValues(values url.Values) string {
	u := url.URL{
		Scheme:   t.Scheme,
		Host:     t.Host,
		Path:     t.Path,
		RawQuery: values.Encode(),
	}
	return u.String()
}

// String returns the URL rebuilt from its own params.
func (t *TargetURL) String() string {
	return t.Build(t.Params)
}

// ValidateURL reports whether raw is an absolute http(s) URL with a host.
func ValidateURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return (scheme == "http" || scheme == "https") && u.Host != ""
}

// SameOrigin reports whether candidate is an http(s) URL on the same
// host[:port] as seed.
func SameOrigin(seed, candidate string) bool {
	s, err := url.Parse(seed)
	if err != nil {
		return false
	}
	c, err := url.Parse(candidate)
	if err != nil {
		return false
	}
	scheme := strings.ToLower(c.Scheme)
	if scheme != "http" && scheme != "https" {
		return false
	}
	return c.Host != "" && strings.EqualFold(c.Host, s.Host)
}

// StripFragment removes any #fragment from raw.
func StripFragment(raw string) string {
	if i := strings.IndexByte(raw, '#'); i >= 0 {
		return raw[:i]
	}
	return raw
}

// Resolve resolves ref against base.
//
// Examples:
//
//	Resolve("https://example.com/app/page", "users")    → "https://example.com/app/users"
//	Resolve("https://example.com/app/page", "../login") → "https://example.com/login"
//	Resolve("https://example.com/app/page", "")         → "https://example.com/app/page"
func Resolve(base, ref string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("couldn't parse base url %s: %w", base, err)
	}
	r, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return "", fmt.Errorf("couldn't parse reference %s: %w", ref, err)
	}
	return b.ResolveReference(r).String(), nil
}
