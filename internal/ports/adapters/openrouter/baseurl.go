package openrouter

import (
	"fmt"
	"net/url"
	"strings"
)

const DefaultBaseURL = "https://openrouter.ai"

var defaultHosts = []string{"openrouter.ai", "api.openrouter.ai"}

func normalizeBaseURL(baseURL string) string {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return strings.TrimRight(baseURL, "/")
}

// CheckBaseURL accepts only https URLs on an allowed host, so the API key is
// never sent anywhere else. An empty allow list means the public hosts.
func CheckBaseURL(baseURL string, allowedHosts []string) error {
	baseURL = normalizeBaseURL(baseURL)
	u, err := url.Parse(baseURL)
	switch {
	case err != nil:
		return fmt.Errorf("narration base url: %w", err)
	case !u.IsAbs() || u.Hostname() == "":
		return fmt.Errorf("narration base url %q: absolute URL with host is required", baseURL)
	case u.User != nil:
		return fmt.Errorf("narration base url %q: userinfo is not allowed", baseURL)
	case u.RawQuery != "" || u.Fragment != "":
		return fmt.Errorf("narration base url %q: query and fragment are not allowed", baseURL)
	case !strings.EqualFold(u.Scheme, "https"):
		return fmt.Errorf("narration base url %q: https is required", baseURL)
	}
	host := strings.ToLower(u.Hostname())
	for _, h := range hostSet(allowedHosts) {
		if h == host {
			return nil
		}
	}
	return fmt.Errorf("narration base url %q: host %q is not allowed", baseURL, host)
}

// hostSet strips schemes, ports and slashes from configured hosts.
func hostSet(hosts []string) []string {
	var out []string
	for _, h := range hosts {
		v := strings.ToLower(strings.TrimSpace(h))
		v = strings.TrimPrefix(v, "http://")
		v = strings.TrimPrefix(v, "https://")
		v = strings.Trim(v, "/")
		if i := strings.IndexByte(v, ':'); i >= 0 {
			v = v[:i]
		}
		if v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return defaultHosts
	}
	return out
}
