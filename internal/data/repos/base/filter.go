package base

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/yungbote/tagledger-backend/internal/platform/apierr"
)

type FieldKind int

const (
	KindString FieldKind = iota
	KindInt
	KindBool
)

// FilterSpec whitelists the query parameters a collection accepts. Query keys
// map 1:1 onto column names.
type FilterSpec struct {
	Fields       map[string]FieldKind
	Orderable    []string
	DefaultOrder string
}

const orderingParam = "ordering"

// Parse builds a ListQuery from request query values. Unknown keys are
// ignored; values that do not parse for their kind are validation errors.
func (s FilterSpec) Parse(values url.Values) (ListQuery, error) {
	q := ListQuery{Filters: map[string]any{}}
	var details []apierr.Detail

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if key == orderingParam {
			continue
		}
		kind, ok := s.Fields[key]
		if !ok {
			continue
		}
		raw := strings.TrimSpace(values.Get(key))
		v, err := parseValue(kind, raw)
		if err != nil {
			details = append(details, apierr.Detail{Field: key, Message: err.Error()})
			continue
		}
		q.Filters[key] = v
	}

	ordering := strings.TrimSpace(values.Get(orderingParam))
	if ordering == "" {
		ordering = s.DefaultOrder
	}
	if ordering != "" {
		col := strings.TrimPrefix(ordering, "-")
		if !s.orderable(col) {
			details = append(details, apierr.Detail{Field: orderingParam, Message: fmt.Sprintf("cannot order by %q", col)})
		} else {
			q.OrderBy = col
			q.Desc = strings.HasPrefix(ordering, "-")
		}
	}

	if len(details) > 0 {
		return ListQuery{}, apierr.ValidationDetails("invalid query parameters", details)
	}
	return q, nil
}

func (s FilterSpec) orderable(col string) bool {
	if col == "id" || col == "created_at" {
		return true
	}
	for _, c := range s.Orderable {
		if c == col {
			return true
		}
	}
	return false
}

func parseValue(kind FieldKind, raw string) (any, error) {
	switch kind {
	case KindInt:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("expected integer, got %q", raw)
		}
		return n, nil
	case KindBool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("expected boolean, got %q", raw)
		}
		return b, nil
	default:
		return raw, nil
	}
}
