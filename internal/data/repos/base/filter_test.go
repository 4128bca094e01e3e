package base

import (
	"net/url"
	"testing"

	"github.com/yungbote/tagledger-backend/internal/platform/apierr"
)

var datasetSpec = FilterSpec{
	Fields: map[string]FieldKind{
		"status":    KindString,
		"tag_id":    KindInt,
		"is_active": KindBool,
	},
	Orderable: []string{"name", "status"},
}

func TestParseFiltersWhitelisted(t *testing.T) {
	q, err := datasetSpec.Parse(url.Values{
		"status":   {"validated"},
		"tag_id":   {"3"},
		"password": {"ignored"},
		"ordering": {"-name"},
	})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if q.Filters["status"] != "validated" {
		t.Fatalf("status: got=%v", q.Filters["status"])
	}
	if q.Filters["tag_id"] != int64(3) {
		t.Fatalf("tag_id: want=int64(3) got=%#v", q.Filters["tag_id"])
	}
	if _, ok := q.Filters["password"]; ok {
		t.Fatalf("unknown key leaked into filters")
	}
	if q.OrderBy != "name" || !q.Desc {
		t.Fatalf("ordering: want name desc got=%s desc=%v", q.OrderBy, q.Desc)
	}
}

func TestParseFiltersRejectsBadValues(t *testing.T) {
	_, err := datasetSpec.Parse(url.Values{"tag_id": {"abc"}, "is_active": {"maybe"}})
	ae := apierr.As(err)
	if ae == nil || ae.Code != apierr.CodeValidation {
		t.Fatalf("Parse: want validation error got=%v", err)
	}
	if len(ae.Details) != 2 {
		t.Fatalf("details: want=2 got=%d", len(ae.Details))
	}
}

func TestParseFiltersRejectsUnknownOrdering(t *testing.T) {
	if _, err := datasetSpec.Parse(url.Values{"ordering": {"secret_column"}}); err == nil {
		t.Fatalf("Parse: expected error for unknown ordering")
	}
	q, err := datasetSpec.Parse(url.Values{"ordering": {"created_at"}})
	if err != nil || q.OrderBy != "created_at" || q.Desc {
		t.Fatalf("Parse created_at: q=%+v err=%v", q, err)
	}
}
