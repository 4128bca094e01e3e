package services

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"gorm.io/datatypes"

	"github.com/yungbote/tagledger-backend/internal/data/db"
	"github.com/yungbote/tagledger-backend/internal/data/repos"
	types "github.com/yungbote/tagledger-backend/internal/domain"
	"github.com/yungbote/tagledger-backend/internal/platform/apierr"
	"github.com/yungbote/tagledger-backend/internal/platform/dbctx"
)

func nowUTC() time.Time { return time.Now().UTC() }

const settleTimeout = 30 * time.Second

// settleContext outlives the caller's cancellation so a claimed row always
// reaches a terminal status.
func settleContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), settleTimeout)
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

// rawJSON stores client JSON as-is; blank or null becomes def (nil when def is "").
func rawJSON(raw json.RawMessage, def string) (datatypes.JSON, error) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		if def == "" {
			return nil, nil
		}
		return datatypes.JSON(def), nil
	}
	if !json.Valid(raw) {
		return nil, apierr.Validation("invalid JSON")
	}
	return datatypes.JSON(s), nil
}

// objectJSON is rawJSON restricted to objects.
func objectJSON(field string, raw json.RawMessage) (datatypes.JSON, error) {
	out, err := rawJSON(raw, "{}")
	if err != nil {
		return nil, apierr.ValidationDetails("invalid input", []apierr.Detail{{Field: field, Message: "must be valid JSON"}})
	}
	var m map[string]any
	if json.Unmarshal(out, &m) != nil {
		return nil, apierr.ValidationDetails("invalid input", []apierr.Detail{{Field: field, Message: "must be a JSON object"}})
	}
	return out, nil
}

func marshalJSON(v any) datatypes.JSON {
	b, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON(`{}`)
	}
	return datatypes.JSON(b)
}

func requireTag(dbc dbctx.Context, tags repos.TagRepo, id int64) (*types.Tag, error) {
	tag, err := tags.GetByID(dbc, id)
	if err != nil {
		return nil, db.Classify("get tag", err)
	}
	if tag == nil {
		return nil, apierr.NotFound("tag %d not found", id)
	}
	return tag, nil
}

func requireDataset(dbc dbctx.Context, datasets repos.DatasetRepo, id int64) (*types.Dataset, error) {
	ds, err := datasets.GetByID(dbc, id)
	if err != nil {
		return nil, db.Classify("get dataset", err)
	}
	if ds == nil {
		return nil, apierr.NotFound("dataset %d not found", id)
	}
	return ds, nil
}

// refused reports a delete blocked by referencing rows.
func refused(kind string, id int64, n int64, by string) error {
	return apierr.Conflict("%s %d is referenced by %d %s", kind, id, n, by)
}
