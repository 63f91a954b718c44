package middleware

import (
	"context"
	"encoding/json"
	"regexp"

	"github.com/stratadesk/strata/pkg/domain"
	"github.com/stratadesk/strata/pkg/ports"
)

type redactMiddleware struct {
	next     ports.MetaStore
	patterns []*regexp.Regexp
}

// NewRedactMiddleware creates a middleware that masks the values of JSON
// keys matching any of the patterns before persistence. Non-JSON blobs pass
// through untouched; the in-memory graph keeps the full metadata.
func NewRedactMiddleware(patternStrings []string) Middleware {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		patterns[i] = regexp.MustCompile(p)
	}
	return func(next ports.MetaStore) ports.MetaStore {
		return &redactMiddleware{next: next, patterns: patterns}
	}
}

func (m *redactMiddleware) Put(ctx context.Context, node domain.NodeID, meta []byte) error {
	var decoded map[string]any
	if err := json.Unmarshal(meta, &decoded); err != nil {
		return m.next.Put(ctx, node, meta)
	}

	maskMap(decoded, m.patterns)
	masked, err := json.Marshal(decoded)
	if err != nil {
		return m.next.Put(ctx, node, meta)
	}
	return m.next.Put(ctx, node, masked)
}

func (m *redactMiddleware) Get(ctx context.Context, node domain.NodeID) ([]byte, error) {
	return m.next.Get(ctx, node)
}

func (m *redactMiddleware) Delete(ctx context.Context, node domain.NodeID) error {
	return m.next.Delete(ctx, node)
}

func maskMap(m map[string]any, patterns []*regexp.Regexp) {
	for k, v := range m {
		for _, p := range patterns {
			if p.MatchString(k) {
				m[k] = "***"
				break
			}
		}
		if subMap, ok := v.(map[string]any); ok {
			maskMap(subMap, patterns)
		}
	}
}
