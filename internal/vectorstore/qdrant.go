package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"chansage/internal/metrics"

	"github.com/google/uuid"
)

// Qdrant is a minimal REST client to a Qdrant collection. It assumes cosine
// distance and creates the collection on startup if missing. Point identity is
// a UUIDv5 of namespace+record id, so re-upserting the same message replaces
// its point instead of duplicating it.
type Qdrant struct {
	baseURL    string
	apiKey     string
	collection string
	client     *http.Client
}

type QdrantConfig struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

func NewQdrant(cfg QdrantConfig) *Qdrant {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Qdrant{
		baseURL:    cfg.URL,
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		client:     &http.Client{Timeout: timeout},
	}
}

// EnsureCollection creates the collection if it does not exist. The dimension
// must match what the embedding client produces; Qdrant rejects mismatched
// vectors at upsert time.
func (q *Qdrant) EnsureCollection(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("invalid vector dimension: %d", dimension)
	}

	path := fmt.Sprintf("/collections/%s", url.PathEscape(q.collection))

	var status int
	if err := q.do(ctx, http.MethodGet, path, nil, nil, &status); err != nil {
		if status != http.StatusNotFound {
			return fmt.Errorf("failed to check collection: %w", err)
		}
	} else {
		return nil
	}

	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	if err := q.do(ctx, http.MethodPut, path, body, nil, nil); err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}
	return nil
}

func (q *Qdrant) Upsert(ctx context.Context, rec Record) error {
	point := map[string]any{
		"id":     PointID(rec.Namespace, rec.ID),
		"vector": rec.Vector,
		"payload": map[string]any{
			"message_id": rec.ID,
			"namespace":  rec.Namespace,
			"content":    rec.Content,
		},
	}

	body := map[string]any{"points": []map[string]any{point}}
	path := fmt.Sprintf("/collections/%s/points?wait=true", url.PathEscape(q.collection))

	if err := q.do(ctx, http.MethodPut, path, body, nil, nil); err != nil {
		metrics.VectorUpserts.WithLabelValues("error").Inc()
		return fmt.Errorf("failed to upsert vector %s: %w", rec.ID, err)
	}
	metrics.VectorUpserts.WithLabelValues("success").Inc()
	return nil
}

func (q *Qdrant) Query(ctx context.Context, namespace string, vector []float32, topK int) ([]Match, error) {
	if topK <= 0 {
		topK = 3
	}

	start := time.Now()
	body := map[string]any{
		"vector":       vector,
		"limit":        topK,
		"with_payload": true,
		"filter": map[string]any{
			"must": []map[string]any{
				{
					"key":   "namespace",
					"match": map[string]any{"value": namespace},
				},
			},
		},
	}

	var resp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}

	path := fmt.Sprintf("/collections/%s/points/search", url.PathEscape(q.collection))
	if err := q.do(ctx, http.MethodPost, path, body, &resp, nil); err != nil {
		metrics.VectorQueries.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to query vectors: %w", err)
	}
	metrics.VectorQueries.WithLabelValues("success").Inc()
	metrics.VectorQueryDuration.Observe(time.Since(start).Seconds())

	matches := make([]Match, 0, len(resp.Result))
	for _, r := range resp.Result {
		m := Match{Score: r.Score}
		if v, ok := r.Payload["message_id"].(string); ok {
			m.ID = v
		}
		if v, ok := r.Payload["content"].(string); ok {
			m.Content = v
		}
		matches = append(matches, m)
	}
	return matches, nil
}

func (q *Qdrant) do(ctx context.Context, method, path string, body any, out any, statusOut *int) error {
	var buf io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		buf = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, q.baseURL+path, buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if q.apiKey != "" {
		req.Header.Set("api-key", q.apiKey)
	}

	resp, err := q.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if statusOut != nil {
		*statusOut = resp.StatusCode
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant %s %s: http %d: %s", method, path, resp.StatusCode, string(payload))
	}

	if out != nil && len(payload) > 0 {
		return json.Unmarshal(payload, out)
	}
	return nil
}

// PointID derives the stable Qdrant point id for a namespaced record id.
// Callers persisting a message-to-point mapping must store this value, not
// the record id; Qdrant only accepts UUID or integer point ids.
func PointID(namespace, id string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(namespace+"/"+id)).String()
}
