package attr

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Node is anything that exposes named attributes. *goquery.Selection and
// document.Object both satisfy it.
type Node interface {
	Attr(name string) (string, bool)
}

// Transform rewrites a raw attribute value. A false result rejects the value and
// the resolver moves on to the next candidate.
type Transform func(string) (string, bool)

type Candidate struct {
	Name       string
	Transforms []Transform
}

// ImageCandidates is the lookup order for lazily loaded images. Lazy-load
// attributes come before src because src often holds a placeholder.
var ImageCandidates = MustParseCandidates(
	"data-src",
	"data-lazy-src",
	"data-original",
	"data-cfsrc",
	"srcset|first-url",
	"src|no-placeholder",
)

// Resolve returns the first candidate that is present and non-empty after its
// transforms ran.
func Resolve(node Node, candidates []Candidate) (string, bool) {
	if node == nil {
		return "", false
	}
	for _, candidate := range candidates {
		raw, ok := node.Attr(candidate.Name)
		if !ok {
			continue
		}
		value, ok := apply(strings.TrimSpace(raw), candidate.Transforms)
		if !ok {
			continue
		}
		if value = strings.TrimSpace(value); value != "" {
			return value, true
		}
	}
	return "", false
}

func apply(value string, transforms []Transform) (string, bool) {
	if value == "" {
		return "", false
	}
	for _, transform := range transforms {
		next, ok := transform(value)
		if !ok {
			return "", false
		}
		value = next
	}
	return value, true
}

var transforms = map[string]Transform{
	"trim":           trimValue,
	"first-url":      firstURL,
	"base64":         decodeBase64,
	"hex":            decodeHex,
	"unescape-hex":   unescapeHex,
	"url-decode":     urlDecode,
	"no-placeholder": rejectPlaceholder,
}

// ParseCandidates reads candidate specs of the form "name|transform|transform".
func ParseCandidates(specs []string) ([]Candidate, error) {
	out := make([]Candidate, 0, len(specs))
	for _, spec := range specs {
		parts := strings.Split(spec, "|")
		name := strings.TrimSpace(parts[0])
		if name == "" {
			return nil, fmt.Errorf("empty attribute name in %q", spec)
		}
		candidate := Candidate{Name: name}
		for _, rawTransform := range parts[1:] {
			key := strings.ToLower(strings.TrimSpace(rawTransform))
			transform, ok := transforms[key]
			if !ok {
				return nil, fmt.Errorf("unknown transform %q in %q", key, spec)
			}
			candidate.Transforms = append(candidate.Transforms, transform)
		}
		out = append(out, candidate)
	}
	return out, nil
}

func MustParseCandidates(specs ...string) []Candidate {
	candidates, err := ParseCandidates(specs)
	if err != nil {
		panic(err)
	}
	return candidates
}

// TransformNames lists the accepted transform keys.
func TransformNames() []string {
	return []string{"trim", "first-url", "base64", "hex", "unescape-hex", "url-decode", "no-placeholder"}
}

func trimValue(value string) (string, bool) {
	return strings.TrimSpace(value), true
}

// firstURL keeps what precedes the first space, which handles both srcset lists
// ("a.jpg 1x, b.jpg 2x") and "url 320w" descriptors.
func firstURL(value string) (string, bool) {
	value = strings.TrimSpace(value)
	if comma := strings.Index(value, ","); comma >= 0 {
		value = value[:comma]
	}
	if space := strings.IndexAny(value, " \t\n"); space >= 0 {
		value = value[:space]
	}
	return value, value != ""
}

func decodeBase64(value string) (string, bool) {
	value = strings.TrimSpace(value)
	for _, encoding := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding, base64.URLEncoding, base64.RawURLEncoding} {
		if decoded, err := encoding.DecodeString(value); err == nil {
			return string(decoded), true
		}
	}
	return "", false
}

func decodeHex(value string) (string, bool) {
	decoded, err := hex.DecodeString(strings.TrimSpace(value))
	if err != nil {
		return "", false
	}
	return string(decoded), true
}

// unescapeHex turns "\x68\x74" sequences into bytes, leaving other text untouched.
func unescapeHex(value string) (string, bool) {
	if !strings.Contains(value, `\x`) {
		return value, true
	}
	var builder strings.Builder
	for i := 0; i < len(value); i++ {
		if value[i] == '\\' && i+4 <= len(value) && value[i+1] == 'x' {
			if b, err := strconv.ParseUint(value[i+2:i+4], 16, 8); err == nil {
				builder.WriteByte(byte(b))
				i += 3
				continue
			}
		}
		builder.WriteByte(value[i])
	}
	return builder.String(), true
}

func urlDecode(value string) (string, bool) {
	decoded, err := url.QueryUnescape(value)
	if err != nil {
		return "", false
	}
	return decoded, true
}

func rejectPlaceholder(value string) (string, bool) {
	lower := strings.ToLower(strings.TrimSpace(value))
	if strings.HasPrefix(lower, "data:") {
		return "", false
	}
	for _, marker := range []string{"loading.gif", "lazy.gif", "placeholder", "blank.gif", "lazyload"} {
		if strings.Contains(lower, marker) {
			return "", false
		}
	}
	return value, true
}
