package shots

import (
	"fmt"
	"strconv"
	"strings"

	"bitbucket.org/creachadair/stringset"

	"shotline/internal/services"
)

// MaxRangeSpan caps how many shot numbers one range token may expand to.
const MaxRangeSpan = 10000

// Filter restricts a run to explicit shot ids. The zero Filter matches every
// shot.
type Filter struct {
	ids stringset.Set
	raw string
}

// ParseFilter accepts a comma separated list of shot ids, shot numbers, and
// inclusive number ranges, e.g. "1-5,9,SHOT_012". Numbers map to SHOT_%03d;
// ids are taken verbatim since board keys are case sensitive.
func ParseFilter(expr string) (Filter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return Filter{}, nil
	}
	ids := stringset.New()
	for _, token := range strings.Split(expr, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		if lo, hi, ok := strings.Cut(token, "-"); ok {
			start, err1 := strconv.Atoi(strings.TrimSpace(lo))
			end, err2 := strconv.Atoi(strings.TrimSpace(hi))
			if err1 != nil || err2 != nil || start <= 0 || end < start {
				return Filter{}, invalidFilter(fmt.Sprintf("invalid shot range %q", token))
			}
			if end-start >= MaxRangeSpan {
				return Filter{}, invalidFilter(fmt.Sprintf("shot range %q spans more than %d shots", token, MaxRangeSpan))
			}
			for n := start; n <= end; n++ {
				ids.Add(IDForNumber(n))
			}
			continue
		}
		if n, err := strconv.Atoi(token); err == nil {
			if n <= 0 {
				return Filter{}, invalidFilter(fmt.Sprintf("invalid shot number %q", token))
			}
			ids.Add(IDForNumber(n))
			continue
		}
		ids.Add(token)
	}
	if ids.Len() == 0 {
		return Filter{}, invalidFilter(fmt.Sprintf("shot filter %q selects nothing", expr))
	}
	return Filter{ids: ids, raw: expr}, nil
}

func invalidFilter(msg string) error {
	return services.Wrap(services.ErrValidation, "", "filter", msg, nil)
}

// FilterIDs builds a filter from explicit ids.
func FilterIDs(ids ...string) Filter {
	set := stringset.New()
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			set.Add(id)
		}
	}
	if set.Len() == 0 {
		return Filter{}
	}
	return Filter{ids: set, raw: strings.Join(set.Elements(), ",")}
}

// Empty reports whether the filter matches everything.
func (f Filter) Empty() bool {
	return f.ids.Len() == 0
}

// Match reports whether id passes the filter.
func (f Filter) Match(id string) bool {
	if f.Empty() {
		return true
	}
	return f.ids.Contains(id)
}

// IDs lists the explicit ids in sorted order.
func (f Filter) IDs() []string {
	if f.Empty() {
		return nil
	}
	return f.ids.Elements()
}

// Missing returns explicit ids that are not on the board.
func (f Filter) Missing(board *Board) []string {
	var missing []string
	for _, id := range f.IDs() {
		if _, ok := board.Get(id); !ok {
			missing = append(missing, id)
		}
	}
	return missing
}

func (f Filter) String() string {
	if f.Empty() {
		return "all"
	}
	return f.raw
}
