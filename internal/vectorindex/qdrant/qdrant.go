// Package qdrant is a vectorindex.Index backed by the Qdrant REST API.
// Each namespace maps to the collection "<prefix>_<namespace>", created on
// first upsert with cosine distance.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"knowledgebot/internal/vectorindex"
)

// recordIDKey holds the caller's record id in the point payload; Qdrant
// point ids must be integers or UUIDs.
const recordIDKey = "record_id"

var errNotFound = errors.New("qdrant: not found")

type Config struct {
	URL              string
	APIKey           string
	CollectionPrefix string
	Timeout          time.Duration
}

type Index struct {
	url    string
	apiKey string
	prefix string
	client *http.Client

	mu      sync.Mutex
	ensured map[string]bool
}

func New(cfg Config) *Index {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	prefix := cfg.CollectionPrefix
	if prefix == "" {
		prefix = "knowledgebot"
	}
	return &Index{
		url:     strings.TrimRight(cfg.URL, "/"),
		apiKey:  cfg.APIKey,
		prefix:  prefix,
		client:  &http.Client{Timeout: timeout},
		ensured: make(map[string]bool),
	}
}

// PointID maps a record id onto a stable UUID.
func PointID(recordID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(recordID)).String()
}

func (ix *Index) collectionName(namespace string) string {
	return ix.prefix + "_" + namespace
}

func (ix *Index) collectionURL(namespace string) string {
	return ix.url + "/collections/" + url.PathEscape(ix.collectionName(namespace))
}

func (ix *Index) ensureCollection(ctx context.Context, namespace string, dimension int) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.ensured[namespace] {
		return nil
	}

	err := ix.do(ctx, http.MethodGet, ix.collectionURL(namespace), nil, nil)
	if errors.Is(err, errNotFound) {
		body := map[string]any{
			"vectors": map[string]any{
				"size":     dimension,
				"distance": "Cosine",
			},
		}
		err = ix.do(ctx, http.MethodPut, ix.collectionURL(namespace), body, nil)
	}
	if err != nil {
		return fmt.Errorf("ensure collection %s failed: %w", ix.collectionName(namespace), err)
	}
	ix.ensured[namespace] = true
	return nil
}

func (ix *Index) Upsert(ctx context.Context, namespace string, records []vectorindex.Record) error {
	if len(records) == 0 {
		return nil
	}
	if err := ix.ensureCollection(ctx, namespace, len(records[0].Values)); err != nil {
		return err
	}

	points := make([]map[string]any, len(records))
	for i, r := range records {
		payload := make(map[string]any, len(r.Metadata)+1)
		for k, v := range r.Metadata {
			payload[k] = v
		}
		payload[recordIDKey] = r.ID
		points[i] = map[string]any{
			"id":      PointID(r.ID),
			"vector":  r.Values,
			"payload": payload,
		}
	}
	body := map[string]any{"points": points}
	if err := ix.do(ctx, http.MethodPut, ix.collectionURL(namespace)+"/points?wait=true", body, nil); err != nil {
		return fmt.Errorf("qdrant upsert failed: %w", err)
	}
	return nil
}

func (ix *Index) Query(ctx context.Context, namespace string, vector []float32, topK int, filter vectorindex.Filter) ([]vectorindex.Match, error) {
	if topK <= 0 {
		topK = 5
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        topK,
		"with_payload": true,
	}
	if len(filter) > 0 {
		req["filter"] = matchFilter(filter)
	}

	var resp struct {
		Result []struct {
			Score   float32        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	err := ix.do(ctx, http.MethodPost, ix.collectionURL(namespace)+"/points/search", req, &resp)
	if errors.Is(err, errNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("qdrant query failed: %w", err)
	}

	matches := make([]vectorindex.Match, 0, len(resp.Result))
	for _, r := range resp.Result {
		meta := make(map[string]string, len(r.Payload))
		id := ""
		for k, v := range r.Payload {
			s, ok := v.(string)
			if !ok {
				s = fmt.Sprint(v)
			}
			if k == recordIDKey {
				id = s
				continue
			}
			meta[k] = s
		}
		matches = append(matches, vectorindex.Match{ID: id, Score: r.Score, Metadata: meta})
	}
	return matches, nil
}

func (ix *Index) DeleteByFilter(ctx context.Context, namespace string, filter vectorindex.Filter) error {
	if len(filter) == 0 {
		return errors.New("delete by filter needs at least one condition")
	}
	return ix.deletePoints(ctx, namespace, map[string]any{"filter": matchFilter(filter)})
}

func (ix *Index) DeleteByIDs(ctx context.Context, namespace string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	points := make([]string, len(ids))
	for i, id := range ids {
		points[i] = PointID(id)
	}
	return ix.deletePoints(ctx, namespace, map[string]any{"points": points})
}

func (ix *Index) deletePoints(ctx context.Context, namespace string, body map[string]any) error {
	err := ix.do(ctx, http.MethodPost, ix.collectionURL(namespace)+"/points/delete?wait=true", body, nil)
	if errors.Is(err, errNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("qdrant delete failed: %w", err)
	}
	return nil
}

func (ix *Index) DescribeStats(ctx context.Context) (vectorindex.Stats, error) {
	var list struct {
		Result struct {
			Collections []struct {
				Name string `json:"name"`
			} `json:"collections"`
		} `json:"result"`
	}
	if err := ix.do(ctx, http.MethodGet, ix.url+"/collections", nil, &list); err != nil {
		return vectorindex.Stats{}, fmt.Errorf("qdrant list collections failed: %w", err)
	}

	stats := vectorindex.Stats{Namespaces: make(map[string]int)}
	for _, c := range list.Result.Collections {
		namespace, ok := strings.CutPrefix(c.Name, ix.prefix+"_")
		if !ok {
			continue
		}
		var info struct {
			Result struct {
				PointsCount int `json:"points_count"`
			} `json:"result"`
		}
		if err := ix.do(ctx, http.MethodGet, ix.collectionURL(namespace), nil, &info); err != nil {
			return vectorindex.Stats{}, fmt.Errorf("qdrant collection info failed: %w", err)
		}
		stats.Namespaces[namespace] = info.Result.PointsCount
		stats.TotalCount += info.Result.PointsCount
	}
	return stats, nil
}

func matchFilter(filter vectorindex.Filter) map[string]any {
	must := make([]map[string]any, 0, len(filter))
	for k, v := range filter {
		must = append(must, map[string]any{
			"key":   k,
			"match": map[string]any{"value": v},
		})
	}
	return map[string]any{"must": must}
}

func (ix *Index) do(ctx context.Context, method, target string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal qdrant request failed: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("build qdrant request failed: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if ix.apiKey != "" {
		req.Header.Set("api-key", ix.apiKey)
	}

	resp, err := ix.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return errNotFound
	}
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("qdrant %s %s failed: %s: %s", method, req.URL.Path, resp.Status, strings.TrimSpace(string(raw)))
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
