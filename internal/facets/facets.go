package facets

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

type Kind string

const (
	KindSelect Kind = "select"
	KindToggle Kind = "toggle"
	// KindMulti picks any number of options. Options can only be included.
	KindMulti Kind = "multi"
	KindText  Kind = "text"
	// KindNote carries a message only, for example a hint that options are missing.
	KindNote Kind = "note"
)

type ToggleStyle string

const (
	// ToggleParams sends included values in one parameter and excluded in another.
	ToggleParams ToggleStyle = "params"
	// TogglePrefix sends both in the same parameter, excluded values prefixed.
	TogglePrefix ToggleStyle = "prefix"
	// ToggleStyleState sends param[value]=<include|exclude marker>.
	ToggleStyleState ToggleStyle = "state"
)

// ErrExclusionUnsupported is returned for an Excluded option on a facet that
// can only include.
var ErrExclusionUnsupported = errors.New("facet cannot exclude options")

type ToggleState int

const (
	Ignored ToggleState = iota
	Included
	Excluded
)

func (s ToggleState) String() string {
	switch s {
	case Included:
		return "included"
	case Excluded:
		return "excluded"
	default:
		return "ignored"
	}
}

type Option struct {
	Label string `json:"label" yaml:"label"`
	Value string `json:"value" yaml:"value"`
}

type ToggleEncoding struct {
	Style         ToggleStyle `json:"style,omitempty" yaml:"style"`
	IncludeParam  string      `json:"include_param,omitempty" yaml:"include_param"`
	ExcludeParam  string      `json:"exclude_param,omitempty" yaml:"exclude_param"`
	ExcludePrefix string      `json:"exclude_prefix,omitempty" yaml:"exclude_prefix"`
	IncludeValue  string      `json:"include_value,omitempty" yaml:"include_value"`
	ExcludeValue  string      `json:"exclude_value,omitempty" yaml:"exclude_value"`
	// Join collapses all values of one parameter into a single separated value.
	Join string `json:"join,omitempty" yaml:"join"`
}

type Facet struct {
	Key         string         `json:"key"`
	Label       string         `json:"label"`
	Kind        Kind           `json:"kind"`
	Param       string         `json:"param,omitempty"`
	Options     []Option       `json:"options,omitempty"`
	Default     string         `json:"default,omitempty"`
	Toggle      ToggleEncoding `json:"toggle,omitempty"`
	Unavailable bool           `json:"unavailable,omitempty"`
	Message     string         `json:"message,omitempty"`
}

// RetryMessage is shown in place of options that could not be fetched yet.
const RetryMessage = "Press 'Reset' to attempt to fetch the filters"

// Placeholder stands in for a facet whose options are only known remotely.
func Placeholder(key, label string) Facet {
	return Facet{
		Key:         key,
		Label:       label,
		Kind:        KindNote,
		Unavailable: true,
		Message:     RetryMessage,
	}
}

// Selection is the caller's choice for one facet. Only the field that matches
// the facet kind is read.
type Selection struct {
	Value   string                 `json:"value,omitempty"`
	Text    string                 `json:"text,omitempty"`
	Toggles map[string]ToggleState `json:"toggles,omitempty"`
}

// Selections is keyed by Facet.Key.
type Selections map[string]Selection

// Validate checks that a facet can be encoded.
func (f Facet) Validate() error {
	if strings.TrimSpace(f.Key) == "" {
		return fmt.Errorf("facet key is required")
	}
	switch f.Kind {
	case KindNote:
		return nil
	case KindSelect, KindText, KindMulti:
		if f.Param == "" {
			return fmt.Errorf("facet %q: param is required", f.Key)
		}
	case KindToggle:
		switch f.Toggle.Style {
		case ToggleParams:
			if f.includeParam() == "" || f.Toggle.ExcludeParam == "" {
				return fmt.Errorf("facet %q: params style needs include and exclude params (use kind multi for include-only)", f.Key)
			}
		case TogglePrefix, ToggleStyleState:
			if f.Param == "" {
				return fmt.Errorf("facet %q: param is required", f.Key)
			}
		default:
			return fmt.Errorf("facet %q: unknown toggle style %q", f.Key, f.Toggle.Style)
		}
	default:
		return fmt.Errorf("facet %q: unknown kind %q", f.Key, f.Kind)
	}
	return nil
}

func (f Facet) includeParam() string {
	if f.Toggle.IncludeParam != "" {
		return f.Toggle.IncludeParam
	}
	return f.Param
}

// Encode maps selections onto query parameters. Facets are visited in order and
// toggle options in option order, so equal input gives equal output. Ignored
// toggles, empty text and unavailable facets produce nothing.
func Encode(facets []Facet, selections Selections) url.Values {
	values := url.Values{}
	for _, facet := range facets {
		if facet.Unavailable {
			continue
		}
		selection := selections[facet.Key]
		switch facet.Kind {
		case KindSelect:
			value := selection.Value
			if value == "" {
				value = facet.Default
			}
			if value != "" {
				values.Set(facet.Param, value)
			}
		case KindText:
			if text := strings.TrimSpace(selection.Text); text != "" {
				values.Set(facet.Param, text)
			}
		case KindToggle:
			encodeToggle(values, facet, selection.Toggles)
		case KindMulti:
			var picked []string
			for _, option := range facet.Options {
				if selection.Toggles[option.Value] == Included {
					picked = append(picked, option.Value)
				}
			}
			addAll(values, facet.Param, picked, facet.Toggle.Join)
		}
	}
	return values
}

// CheckSelections rejects selections that Encode cannot represent: an Excluded
// option on a multi-select facet.
func CheckSelections(facets []Facet, selections Selections) error {
	for _, facet := range facets {
		if facet.Kind != KindMulti {
			continue
		}
		for value, state := range selections[facet.Key].Toggles {
			if state == Excluded {
				return fmt.Errorf("%w: %s=%s", ErrExclusionUnsupported, facet.Key, value)
			}
		}
	}
	return nil
}

func encodeToggle(values url.Values, facet Facet, toggles map[string]ToggleState) {
	if len(toggles) == 0 {
		return
	}

	var included, excluded []string
	for _, option := range facet.Options {
		switch toggles[option.Value] {
		case Included:
			included = append(included, option.Value)
		case Excluded:
			excluded = append(excluded, option.Value)
		}
	}

	encoding := facet.Toggle
	switch encoding.Style {
	case ToggleParams:
		addAll(values, facet.includeParam(), included, encoding.Join)
		addAll(values, encoding.ExcludeParam, excluded, encoding.Join)
	case TogglePrefix:
		prefix := encoding.ExcludePrefix
		if prefix == "" {
			prefix = "-"
		}
		merged := append([]string{}, included...)
		for _, value := range excluded {
			merged = append(merged, prefix+value)
		}
		addAll(values, facet.Param, merged, encoding.Join)
	case ToggleStyleState:
		include, exclude := encoding.IncludeValue, encoding.ExcludeValue
		if include == "" {
			include = "in"
		}
		if exclude == "" {
			exclude = "ex"
		}
		for _, value := range included {
			values.Set(facet.Param+"["+value+"]", include)
		}
		for _, value := range excluded {
			values.Set(facet.Param+"["+value+"]", exclude)
		}
	}
}

func addAll(values url.Values, param string, list []string, join string) {
	if len(list) == 0 || param == "" {
		return
	}
	if join != "" {
		values.Set(param, strings.Join(list, join))
		return
	}
	for _, value := range list {
		values.Add(param, value)
	}
}

// ParseSelections reads selections from query parameters named prefix+key.
// Toggle values are written "+value" to include and "-value" to exclude; a bare
// value includes.
func ParseSelections(facets []Facet, query url.Values, prefix string) Selections {
	selections := Selections{}
	for _, facet := range facets {
		raw := query[prefix+facet.Key]
		if len(raw) == 0 {
			continue
		}
		switch facet.Kind {
		case KindSelect:
			selections[facet.Key] = Selection{Value: strings.TrimSpace(raw[0])}
		case KindText:
			selections[facet.Key] = Selection{Text: strings.TrimSpace(raw[0])}
		case KindToggle, KindMulti:
			toggles := map[string]ToggleState{}
			for _, entry := range raw {
				for _, item := range strings.Split(entry, ",") {
					item = strings.TrimSpace(item)
					switch {
					case item == "":
					case strings.HasPrefix(item, "-"):
						toggles[strings.TrimPrefix(item, "-")] = Excluded
					case strings.HasPrefix(item, "+"):
						toggles[strings.TrimPrefix(item, "+")] = Included
					default:
						toggles[item] = Included
					}
				}
			}
			if len(toggles) > 0 {
				selections[facet.Key] = Selection{Toggles: toggles}
			}
		}
	}
	return selections
}
