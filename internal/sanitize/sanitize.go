// Package sanitize cleans user input before it reaches the store.
package sanitize

import (
	"encoding/json"
	"html"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/unicode/norm"

	"github.com/mesh-intelligence/trackerhub/pkg/types"
)

var (
	// strict drops every tag. script and style content is skipped by
	// bluemonday's default policy setup.
	strict = bluemonday.StrictPolicy()

	rich = newRichPolicy()

	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

func newRichPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("b", "strong", "i", "em", "u", "s", "br", "p", "ul", "ol", "li")
	p.AllowAttrs("href").OnElements("a")
	p.AllowStandardURLs()
	p.RequireNoFollowOnLinks(true)
	p.RequireNoReferrerOnLinks(true)
	return p
}

// Text strips all markup from a string and returns NFC-normalized plain
// text. Any other input is returned unchanged.
func Text(input any) any {
	s, ok := input.(string)
	if !ok {
		return input
	}
	return plain(s)
}

// maxPasses bounds how many layers of entity encoding plain peels off.
const maxPasses = 8

// plain strips and unescapes until the text stops changing, so markup hidden
// behind entities (&lt;script&gt;) is stripped too and plain(plain(s)) ==
// plain(s). Input still changing after maxPasses is returned in its escaped
// form, which carries no live markup.
func plain(s string) string {
	for range maxPasses {
		next := norm.NFC.String(html.UnescapeString(strict.Sanitize(s)))
		if next == s {
			return s
		}
		s = next
	}
	return strict.Sanitize(s)
}

// RichText keeps a small set of inline formatting tags and links.
func RichText(input string) string {
	return norm.NFC.String(rich.Sanitize(input))
}

// Email trims and lower-cases input and checks it has the local@domain.tld
// shape. It returns "", false when the address is invalid.
func Email(input string) (string, bool) {
	email := strings.ToLower(strings.TrimSpace(input))
	if !emailPattern.MatchString(email) {
		return "", false
	}
	return email, true
}

// Number coerces input to a finite float64. Anything that does not parse,
// and NaN or infinities, become 0.
func Number(input any) float64 {
	var f float64
	switch v := input.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int32:
		f = float64(v)
	case int64:
		f = float64(v)
	case uint:
		f = float64(v)
	case uint32:
		f = float64(v)
	case uint64:
		f = float64(v)
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 0
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// Record returns a copy of rec with every string run through Text, including
// strings nested in objects and arrays. Top-level fields named in richFields
// get RichText instead. Other values are copied as is.
func Record(rec types.Record, richFields []string) types.Record {
	if rec == nil {
		return nil
	}
	richSet := make(map[string]bool, len(richFields))
	for _, f := range richFields {
		richSet[f] = true
	}

	out := make(types.Record, len(rec))
	for k, v := range rec {
		if s, ok := v.(string); ok && richSet[k] {
			out[k] = RichText(s)
			continue
		}
		out[k] = value(v)
	}
	return out
}

func value(v any) any {
	switch v := v.(type) {
	case string:
		return plain(v)
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, e := range v {
			out[k] = value(e)
		}
		return out
	case types.Record:
		return value(map[string]any(v))
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = value(e)
		}
		return out
	default:
		return v
	}
}
