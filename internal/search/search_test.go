package search

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/radiant_bloom/internal/models"
)

type fakeES struct {
	mu       sync.Mutex
	requests []string
	bodies   map[string]string
	hits     []string
}

func (f *fakeES) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	f.mu.Lock()
	f.requests = append(f.requests, r.Method+" "+r.URL.Path)
	f.bodies[r.Method+" "+r.URL.Path] = string(body)
	f.mu.Unlock()

	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")

	switch {
	case strings.HasSuffix(r.URL.Path, "/_search"):
		hits := make([]map[string]any, 0, len(f.hits))
		for _, id := range f.hits {
			hits = append(hits, map[string]any{"_id": id, "_score": 1.0})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"hits": map[string]any{"total": map[string]any{"value": len(f.hits)}, "hits": hits},
		})
	case r.Method == http.MethodDelete:
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"result":"not_found"}`))
	default:
		_, _ = w.Write([]byte(`{"result":"created"}`))
	}
}

func newElastic(t *testing.T, f *fakeES) *Elastic {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)

	es, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return NewElastic(es, "products")
}

func TestElastic_IndexAndDelete(t *testing.T) {
	f := &fakeES{bodies: map[string]string{}}
	e := newElastic(t, f)

	p := &models.Product{
		ID:          uuid.New(),
		Name:        "Rose Serum",
		Brand:       "Bloom",
		Description: "Hydrating",
		Price:       decimal.RequireFromString("45.99"),
		Tags:        []string{"serum"},
	}
	require.NoError(t, e.IndexProduct(context.Background(), p))
	require.NoError(t, e.DeleteProduct(context.Background(), p.ID), "missing documents are not an error")

	require.Len(t, f.requests, 2)
	assert.Equal(t, "PUT /products/_doc/"+p.ID.String(), f.requests[0])
	assert.Equal(t, "DELETE /products/_doc/"+p.ID.String(), f.requests[1])

	var doc productDoc
	require.NoError(t, json.Unmarshal([]byte(f.bodies[f.requests[0]]), &doc))
	assert.Equal(t, "Rose Serum", doc.Name)
	assert.InDelta(t, 45.99, doc.Price, 1e-9)
}

func TestElastic_SearchIDs(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	f := &fakeES{bodies: map[string]string{}, hits: []string{b.String(), "not-a-uuid", a.String()}}
	e := newElastic(t, f)

	total, ids, err := e.SearchIDs(context.Background(), "rose", 0, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Equal(t, []uuid.UUID{b, a}, ids)

	var q map[string]any
	require.NoError(t, json.Unmarshal([]byte(f.bodies["POST /products/_search"]), &q))
	mm := q["query"].(map[string]any)["multi_match"].(map[string]any)
	assert.Equal(t, "rose", mm["query"])
	assert.Equal(t, []any{"name^3", "brand^2", "description", "tags"}, mm["fields"])
}

func TestNop(t *testing.T) {
	t.Parallel()

	var idx ProductIndex = Nop{}
	assert.NoError(t, idx.IndexProduct(context.Background(), &models.Product{}))
	_, _, err := idx.SearchIDs(context.Background(), "x", 0, 10)
	assert.ErrorIs(t, err, ErrDisabled)
}
