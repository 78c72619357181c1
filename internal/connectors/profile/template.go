package profile

import (
	"net/url"
	"regexp"
	"strings"
)

var placeholderPattern = regexp.MustCompile(`\{([A-Za-z0-9_.]+)(?:\|(query|path))?\}`)

type vars map[string]string

func (v vars) with(extra map[string]string) vars {
	merged := make(vars, len(v)+len(extra))
	for key, value := range v {
		merged[key] = value
	}
	for key, value := range extra {
		merged[key] = value
	}
	return merged
}

// expand replaces {name} placeholders. {query} is always query-escaped;
// other names are inserted raw unless a |query or |path suffix asks otherwise.
func expand(template string, values vars) string {
	return placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		groups := placeholderPattern.FindStringSubmatch(match)
		name, escape := groups[1], groups[2]
		value := values[name]
		if name == "query" && escape == "" {
			escape = "query"
		}
		switch escape {
		case "query":
			return url.QueryEscape(value)
		case "path":
			return url.PathEscape(value)
		default:
			return value
		}
	})
}

// joinURL resolves a possibly relative path against base. Absolute paths keep
// any path prefix the base carries.
func joinURL(base string, path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return base
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if strings.HasPrefix(path, "//") {
		return "https:" + path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return strings.TrimRight(base, "/") + path
}

func appendQuery(rawURL string, values url.Values) string {
	if len(values) == 0 {
		return rawURL
	}
	separator := "?"
	if strings.Contains(rawURL, "?") {
		separator = "&"
	}
	return rawURL + separator + values.Encode()
}

// relativeTo strips base from an absolute URL on the same site so stored
// identifiers survive a mirror change.
func relativeTo(base string, value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	parsed, err := url.Parse(value)
	if err != nil || parsed.Host == "" {
		return value
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return value
	}
	if !sameSite(parsed.Hostname(), baseURL.Hostname()) {
		return value
	}
	relative := parsed.EscapedPath()
	if relative == "" {
		relative = "/"
	}
	if parsed.RawQuery != "" {
		relative += "?" + parsed.RawQuery
	}
	return relative
}

func sameSite(a, b string) bool {
	trim := func(host string) string {
		host = strings.ToLower(host)
		host = strings.TrimPrefix(host, "www.")
		return strings.TrimPrefix(host, "m.")
	}
	return trim(a) == trim(b)
}
