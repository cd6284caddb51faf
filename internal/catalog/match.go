package catalog

import (
	"net/url"
	"strings"

	"intercept/internal/intent"
)

// Match reports whether f accepts in, following the platform's
// intent-filter rules for action, category and data tests.
func (f Filter) Match(in *intent.Intent) bool {
	return f.matchAction(in.Action) && f.matchCategories(in.Categories) && f.matchData(in)
}

func (f Filter) matchAction(action string) bool {
	if action == "" {
		return len(f.Actions) > 0
	}
	return contains(f.Actions, action, false)
}

// Every category on the intent must be declared by the filter.
func (f Filter) matchCategories(categories []string) bool {
	for _, c := range categories {
		if !contains(f.Categories, c, false) {
			return false
		}
	}
	return true
}

func (f Filter) matchData(in *intent.Intent) bool {
	scheme := strings.ToLower(in.DataScheme())
	hasData := in.Data != ""
	hasType := in.Type != ""

	if len(f.Schemes) == 0 && len(f.Types) == 0 {
		return !hasData && !hasType
	}

	if len(f.Types) == 0 {
		return hasData && !hasType && f.matchURI(in.Data, scheme)
	}

	if !hasType || !f.matchType(in.Type) {
		return false
	}
	if !hasData {
		return len(f.Schemes) == 0
	}
	if len(f.Schemes) == 0 {
		// Typed filters implicitly accept local content.
		return scheme == "content" || scheme == "file"
	}
	return f.matchURI(in.Data, scheme)
}

func (f Filter) matchURI(data, scheme string) bool {
	if !contains(f.Schemes, scheme, true) {
		return false
	}
	if len(f.Hosts) == 0 {
		return true
	}
	u, err := url.Parse(data)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, h := range f.Hosts {
		h = strings.ToLower(h)
		switch {
		case h == "*" || h == host:
			return true
		case strings.HasPrefix(h, "*.") && strings.HasSuffix(host, h[1:]):
			return true
		}
	}
	return false
}

func (f Filter) matchType(mime string) bool {
	major, minor, _ := strings.Cut(strings.ToLower(mime), "/")
	for _, t := range f.Types {
		fm, fn, _ := strings.Cut(strings.ToLower(t), "/")
		if fm == "*" && fn == "*" {
			return true
		}
		if fm != major {
			continue
		}
		if fn == "*" || minor == "*" || fn == minor {
			return true
		}
	}
	return false
}

func contains(list []string, s string, fold bool) bool {
	for _, v := range list {
		if v == s || (fold && strings.EqualFold(v, s)) {
			return true
		}
	}
	return false
}
