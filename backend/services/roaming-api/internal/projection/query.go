package projection

import (
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/OpenChargingCloud/OpenChargingCloudAPI-sub000/backend/services/roaming-api/internal/apierr"
)

// TotalHeader reports the unpaginated collection size.
const TotalHeader = "X-ExpectedTotalNumberOfItems"

// Query holds the collection query parameters.
type Query struct {
	Skip        uint64
	Take        uint64
	HasTake     bool
	Match       string
	Since       time.Time
	HistorySize int
}

// ParseQuery reads skip, take, match, since and historysize.
func ParseQuery(values url.Values) (Query, *apierr.Error) {
	q := Query{HistorySize: 1}
	if v := values.Get("skip"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return Query{}, apierr.BadRequest("Invalid 'skip' parameter!")
		}
		q.Skip = n
	}
	if v := values.Get("take"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return Query{}, apierr.BadRequest("Invalid 'take' parameter!")
		}
		q.Take, q.HasTake = n, true
	}
	q.Match = strings.TrimSpace(values.Get("match"))
	if v := values.Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return Query{}, apierr.BadRequest("Invalid 'since' parameter!")
		}
		q.Since = t
	}
	if v := values.Get("historysize"); v != "" {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil || n == 0 {
			return Query{}, apierr.BadRequest("Invalid 'historysize' parameter!")
		}
		q.HistorySize = int(n)
	}
	return q, nil
}

// Historized reports whether status sub-resources render as a sequence.
func (q Query) Historized() bool { return q.HistorySize > 1 || !q.Since.IsZero() }

// Page is one page of a collection plus the size of the whole collection.
type Page[T any] struct {
	Items []T
	Total int
}

// Paginate orders items by id, filters them by match and since and applies
// skip and take. Total is the size of the unfiltered input. lastChange may be nil.
func Paginate[T any](items []T, id func(T) string, lastChange func(T) time.Time, q Query) Page[T] {
	sorted := make([]T, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool { return id(sorted[i]) < id(sorted[j]) })

	filtered := sorted[:0:0]
	match := strings.ToUpper(q.Match)
	for _, it := range sorted {
		if match != "" && !strings.Contains(strings.ToUpper(id(it)), match) {
			continue
		}
		if !q.Since.IsZero() && lastChange != nil && lastChange(it).Before(q.Since) {
			continue
		}
		filtered = append(filtered, it)
	}

	if q.Skip >= uint64(len(filtered)) {
		return Page[T]{Items: []T{}, Total: len(items)}
	}
	out := filtered[q.Skip:]
	if q.HasTake && q.Take < uint64(len(out)) {
		out = out[:q.Take]
	}
	return Page[T]{Items: out, Total: len(items)}
}
