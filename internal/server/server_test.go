package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/queryforge/schemafuse/internal/catalog"
	"github.com/queryforge/schemafuse/internal/embed"
	fuseerrors "github.com/queryforge/schemafuse/internal/errors"
	"github.com/queryforge/schemafuse/internal/index"
	"github.com/queryforge/schemafuse/internal/search"
)

func testCatalog() *catalog.MemoryCatalog {
	cat := catalog.NewMemoryCatalog()
	cat.PutAll([]*catalog.Entity{
		{Kind: catalog.KindTable, ID: 1, Name: "customers", Description: "customer master records"},
		{Kind: catalog.KindTable, ID: 2, Name: "orders", Description: "customer purchase orders"},
		{Kind: catalog.KindColumn, ID: 10, Name: "customer_id", TableID: 1, TableName: "customers", Description: "customer identifier"},
		{Kind: catalog.KindColumn, ID: 11, Name: "email", TableID: 1, TableName: "customers", Aliases: []string{"mail"}},
		{Kind: catalog.KindDictionary, ID: 20, Name: "churn", Definition: "customers who stopped buying"},
	})
	return cat
}

func newTestServer(t *testing.T, withIndexes bool) http.Handler {
	t.Helper()

	cat := testCatalog()
	registry := index.NewRegistry()
	if withIndexes {
		builder := &index.Builder{Embedder: embed.NewStaticEmbedder()}
		var err error
		registry, err = builder.Build(context.Background(), cat, nil)
		require.NoError(t, err)
	}

	engine, err := search.NewEngine(cat, registry, embed.NewStaticEmbedder(), search.DefaultRetrievalConfig())
	require.NoError(t, err)

	return New(NewStaticProvider(engine), nil).Router()
}

type testEnvelope struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	PartialFailures []search.MethodFailure `json:"partial_failures"`
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) (int, testEnvelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var env testEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec.Code, env
}

func TestSearchEndpoint(t *testing.T) {
	handler := newTestServer(t, true)

	status, env := doJSON(t, handler, http.MethodPost, "/api/projects/demo/search",
		map[string]any{"query": "customers", "method": "exact"})

	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "success", env.Status)

	var data struct {
		Method  string              `json:"method"`
		Results []*search.Candidate `json:"results"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, "exact", data.Method)
	require.NotEmpty(t, data.Results)
	assert.Equal(t, "customers", data.Results[0].Entity.Name)
}

func TestSearchRequiresMethod(t *testing.T) {
	handler := newTestServer(t, true)

	status, env := doJSON(t, handler, http.MethodPost, "/api/projects/demo/search",
		map[string]any{"query": "customers"})

	assert.Equal(t, http.StatusBadRequest, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, fuseerrors.ErrCodeInvalidMethod, env.Error.Code)
}

func TestSearchEmptyQuery(t *testing.T) {
	handler := newTestServer(t, true)

	status, env := doJSON(t, handler, http.MethodPost, "/api/projects/demo/search",
		map[string]any{"query": "   ", "method": "exact"})

	assert.Equal(t, http.StatusBadRequest, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, fuseerrors.ErrCodeQueryEmpty, env.Error.Code)
}

func TestSearchInvalidKind(t *testing.T) {
	handler := newTestServer(t, true)

	status, env := doJSON(t, handler, http.MethodPost, "/api/projects/demo/search",
		map[string]any{"query": "customers", "method": "exact", "kinds": []string{"view"}})

	assert.Equal(t, http.StatusBadRequest, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, fuseerrors.ErrCodeInvalidScope, env.Error.Code)
}

func TestSearchUnavailableIndex(t *testing.T) {
	handler := newTestServer(t, false)

	status, env := doJSON(t, handler, http.MethodPost, "/api/projects/demo/search",
		map[string]any{"query": "customers", "method": "semantic"})

	assert.Equal(t, http.StatusServiceUnavailable, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, fuseerrors.ErrCodeIndexUnavailable, env.Error.Code)
}

func TestSearchMultiEndpoint(t *testing.T) {
	handler := newTestServer(t, true)

	status, env := doJSON(t, handler, http.MethodPost, "/api/projects/demo/search/multi",
		map[string]any{"query": "customer", "methods": []string{"exact", "fuzzy"}})

	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "success", env.Status)

	var data struct {
		Results map[string][]*search.Candidate `json:"results"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.NotEmpty(t, data.Results["fuzzy"])
}

func TestSearchMultiPartialFailures(t *testing.T) {
	// No indexes: semantic and keyword fail, exact and fuzzy still run.
	handler := newTestServer(t, false)

	status, env := doJSON(t, handler, http.MethodPost, "/api/projects/demo/search/multi",
		map[string]any{"query": "customers"})

	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "success", env.Status)
	require.Len(t, env.PartialFailures, 2)
	assert.Equal(t, search.MethodSemantic, env.PartialFailures[0].Method)
	assert.Equal(t, fuseerrors.ErrCodeIndexUnavailable, env.PartialFailures[0].Code)
}

func TestCompareEndpoint(t *testing.T) {
	handler := newTestServer(t, true)

	status, env := doJSON(t, handler, http.MethodPost, "/api/projects/demo/compare",
		map[string]any{"query": "customer churn"})

	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "success", env.Status)

	var data struct {
		Results []*search.FusedResult         `json:"results"`
		Overlap map[string]map[string]float64 `json:"overlap"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.NotEmpty(t, data.Results)
	assert.NotEmpty(t, data.Results[0].Methods)
	assert.NotEmpty(t, data.Overlap)
}

func TestAnalyzeEndpoint(t *testing.T) {
	handler := newTestServer(t, true)

	status, env := doJSON(t, handler, http.MethodPost, "/api/projects/demo/analyze",
		map[string]any{"query": "customer churn rate"})

	require.Equal(t, http.StatusOK, status)

	var data search.QueryAnalysis
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, 3, data.WordCount)
	assert.Contains(t, data.TermMentions, "churn")
}

func TestBenchmarkEndpoint(t *testing.T) {
	handler := newTestServer(t, true)

	status, env := doJSON(t, handler, http.MethodPost, "/api/projects/demo/benchmark",
		map[string]any{"queries": []string{"customers", "churn"}, "methods": []string{"exact"}})

	require.Equal(t, http.StatusOK, status)

	var run search.BenchmarkRun
	require.NoError(t, json.Unmarshal(env.Data, &run))
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, 1.0, run.Stats[search.MethodExact].SuccessRate)
}

func TestBenchmarkRejectsEmptyQueries(t *testing.T) {
	handler := newTestServer(t, true)

	status, env := doJSON(t, handler, http.MethodPost, "/api/projects/demo/benchmark",
		map[string]any{"queries": []string{}})

	assert.Equal(t, http.StatusBadRequest, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, fuseerrors.ErrCodeInvalidConfig, env.Error.Code)
}

func TestMethodsEndpoint(t *testing.T) {
	handler := newTestServer(t, true)

	status, env := doJSON(t, handler, http.MethodGet, "/api/projects/demo/methods", nil)
	require.Equal(t, http.StatusOK, status)

	var data struct {
		Methods []index.MethodAvailability `json:"methods"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.Len(t, data.Methods, 4)
	for _, m := range data.Methods {
		assert.True(t, m.Available, "method %s", m.Method)
	}
}

func TestMethodsEndpointWithoutIndexes(t *testing.T) {
	handler := newTestServer(t, false)

	status, env := doJSON(t, handler, http.MethodGet, "/api/projects/demo/methods", nil)
	require.Equal(t, http.StatusOK, status)

	var data struct {
		Methods []index.MethodAvailability `json:"methods"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))

	byMethod := map[string]bool{}
	for _, m := range data.Methods {
		byMethod[m.Method] = m.Available
	}
	assert.False(t, byMethod["semantic"])
	assert.False(t, byMethod["keyword"])
	assert.True(t, byMethod["fuzzy"])
	assert.True(t, byMethod["exact"])
}

func TestConfigOverride(t *testing.T) {
	handler := newTestServer(t, true)

	status, env := doJSON(t, handler, http.MethodPost, "/api/projects/demo/compare",
		map[string]any{
			"query":  "customer",
			"config": map[string]any{"max_combined_results": 1},
		})

	require.Equal(t, http.StatusOK, status)

	var data struct {
		Results []*search.FusedResult `json:"results"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Len(t, data.Results, 1)
}

func TestConfigOverrideRejected(t *testing.T) {
	handler := newTestServer(t, true)

	status, env := doJSON(t, handler, http.MethodPost, "/api/projects/demo/search",
		map[string]any{
			"query":  "customer",
			"method": "fuzzy",
			"config": map[string]any{"fuzzy_threshold": 150},
		})

	assert.Equal(t, http.StatusBadRequest, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, fuseerrors.ErrCodeInvalidConfig, env.Error.Code)
}

func TestHealthEndpoint(t *testing.T) {
	handler := newTestServer(t, true)

	status, env := doJSON(t, handler, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "success", env.Status)
}
