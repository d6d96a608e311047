package validators

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	pkgerrors "github.com/petfinder-app/petfinder-backend/pkg/errors"
)

// ParseQueryInt reads ?key= as an int in [min, max]; empty yields defaultVal.
func ParseQueryInt(r *http.Request, key string, defaultVal, min, max int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return defaultVal, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, key+" must be a whole number").
			WithDetails(map[string]any{"field": key, "value": raw})
	}
	if value < min || value > max {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, key+" out of range").
			WithDetails(map[string]any{"field": key, "min": min, "max": max})
	}
	return value, nil
}

// QueryText returns a search or filter term from q: NFC-normalized, control
// characters dropped, inner whitespace collapsed and cut to maxRunes runes.
// Filters like ?city=Medellín reach SQL as valid UTF-8 whatever the length.
func QueryText(q url.Values, key string, maxRunes int) string {
	raw := norm.NFC.String(q.Get(key))
	var b strings.Builder
	b.Grow(len(raw))
	runes, space := 0, false
	for _, r := range raw {
		if r == unicode.ReplacementChar || (unicode.IsControl(r) && !unicode.IsSpace(r)) {
			continue
		}
		if unicode.IsSpace(r) {
			space = b.Len() > 0
			continue
		}
		if maxRunes > 0 && runes+btoi(space) >= maxRunes {
			break
		}
		if space {
			b.WriteByte(' ')
			runes++
			space = false
		}
		b.WriteRune(r)
		runes++
	}
	return b.String()
}

func btoi(v bool) int {
	if v {
		return 1
	}
	return 0
}
