package authn

import (
	"net/http"
	"strings"

	"github.com/aussiebroadwan/apikeys/pkg/httpx"
)

const (
	DefaultHeader     = "X-API-Key"
	DefaultQueryParam = "api_key"
)

// Extractor pulls a candidate key out of a request.
type Extractor func(*http.Request) (string, bool)

// Config selects where keys are read from. The query parameter is the
// least safe channel (it ends up in access logs and browser history) and
// stays off unless AllowQuery is set.
type Config struct {
	Header     string
	AllowQuery bool
	QueryParam string
}

// Extractors returns the configured extractors in precedence order:
// header, bearer, then query.
func (c Config) Extractors() []Extractor {
	header := c.Header
	if header == "" {
		header = DefaultHeader
	}
	out := []Extractor{HeaderExtractor(header), BearerExtractor}
	if c.AllowQuery {
		param := c.QueryParam
		if param == "" {
			param = DefaultQueryParam
		}
		out = append(out, QueryExtractor(param))
	}
	return out
}

func HeaderExtractor(name string) Extractor {
	return func(r *http.Request) (string, bool) {
		v := strings.TrimSpace(r.Header.Get(name))
		return v, v != ""
	}
}

func BearerExtractor(r *http.Request) (string, bool) {
	return httpx.BearerToken(r)
}

func QueryExtractor(param string) Extractor {
	return func(r *http.Request) (string, bool) {
		v := strings.TrimSpace(r.URL.Query().Get(param))
		return v, v != ""
	}
}

// Extract returns the first candidate found by extractors.
func Extract(r *http.Request, extractors ...Extractor) (string, bool) {
	for _, ex := range extractors {
		if v, ok := ex(r); ok {
			return v, true
		}
	}
	return "", false
}
