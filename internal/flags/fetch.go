package flags

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/averline/splitkit/internal/domain"
)

// remoteKeyPrefix is stripped from item keys in the list-style payload,
// e.g. "feature.catalog.new_grid" -> "catalog.new_grid".
const remoteKeyPrefix = "feature."

// remotePayload covers both accepted response shapes:
//
//	{ "flags": { "<name>": true } }
//	{ "items": [ { "key": "feature.<name>", "value": "{\"enabled\":true,...}" } ] }
//
// Exactly one of the two fields is expected to be present.
type remotePayload struct {
	Flags map[string]bool `json:"flags"`
	Items []remoteItem    `json:"items"`
}

type remoteItem struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// remoteValue is the JSON string embedded in a list-style item value.
type remoteValue struct {
	Enabled   bool            `json:"enabled"`
	Variant   string          `json:"variant"`
	Targeting json.RawMessage `json:"targeting"`
}

// fetchRemote GETs the configured endpoint and normalizes the response into
// flag records. Any transport, status, or parse failure is returned as an
// error so the caller can keep the defaults-seeded state.
func (e *Engine) fetchRemote(ctx context.Context) ([]domain.FeatureFlag, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.cfg.Endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch remote config: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("remote config returned status %d", resp.StatusCode)
	}

	var payload remotePayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode remote config: %w", err)
	}

	return e.normalizeRemote(payload)
}

// normalizeRemote converts either payload shape into flag records, so the
// merge step never branches on the wire format.
func (e *Engine) normalizeRemote(payload remotePayload) ([]domain.FeatureFlag, error) {
	switch {
	case payload.Flags != nil:
		names := make([]string, 0, len(payload.Flags))
		for name := range payload.Flags {
			names = append(names, name)
		}
		sort.Strings(names)

		out := make([]domain.FeatureFlag, 0, len(names))
		for _, name := range names {
			out = append(out, domain.FeatureFlag{Name: name, Enabled: payload.Flags[name]})
		}
		return out, nil

	case payload.Items != nil:
		out := make([]domain.FeatureFlag, 0, len(payload.Items))
		for _, item := range payload.Items {
			name := strings.TrimPrefix(item.Key, remoteKeyPrefix)
			if name == "" {
				continue
			}
			var v remoteValue
			if err := json.Unmarshal([]byte(item.Value), &v); err != nil {
				e.logger.Warn("skipping malformed remote config item",
					"key", item.Key, "error", err)
				continue
			}
			out = append(out, domain.FeatureFlag{
				Name:      name,
				Enabled:   v.Enabled,
				Variant:   v.Variant,
				Targeting: v.Targeting,
			})
		}
		return out, nil

	default:
		return nil, fmt.Errorf("unrecognized remote config payload")
	}
}
