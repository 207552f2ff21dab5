package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/portfolio-intake/internal/modules/catalog"
	"github.com/aristath/portfolio-intake/internal/modules/form"
)

type envelope struct {
	Data     json.RawMessage        `json:"data"`
	Metadata map[string]interface{} `json:"metadata"`
	Error    string                 `json:"error"`
	Errors   []struct {
		Path    string `json:"path"`
		Message string `json:"message"`
	} `json:"errors"`
}

type snapshotView struct {
	Revision int64 `json:"revision"`
	Payload  struct {
		Stocks             []map[string]interface{} `json:"stocks"`
		OptimizationMethod map[string]interface{}   `json:"optimizationMethod"`
	} `json:"payload"`
	Valid bool `json:"valid"`
}

func setupRouter(t *testing.T) (chi.Router, *form.Store) {
	t.Helper()
	logger := zerolog.New(nil).Level(zerolog.Disabled)
	tickers := []catalog.Ticker{
		catalog.NewTicker("MSFT"), catalog.NewTicker("AAPL"),
		catalog.NewTicker("GOOG"), catalog.NewTicker("AMZN"),
	}
	store := form.NewStore(form.Options{
		Rules:      form.DefaultRules(),
		ConfirmTTL: time.Minute,
		Catalog:    catalog.NewCatalog("test.csv", tickers),
	}, form.NewLogBackend(logger), nil, logger)

	router := chi.NewRouter()
	NewHandler(store, logger).RegisterRoutes(router)
	return router, store
}

func do(t *testing.T, router http.Handler, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

func snapshotOf(t *testing.T, env envelope) snapshotView {
	t.Helper()
	var snap snapshotView
	require.NoError(t, json.Unmarshal(env.Data, &snap))
	return snap
}

func TestHandleGetForm(t *testing.T) {
	router, _ := setupRouter(t)

	w, env := do(t, router, "GET", "/form", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Contains(t, env.Metadata, "timestamp")

	snap := snapshotOf(t, env)
	assert.Len(t, snap.Payload.Stocks, 1)
	assert.Equal(t, "maximize_return", snap.Payload.OptimizationMethod["optimizationMethod"])
	assert.False(t, snap.Valid)
}

func TestRowWorkflow(t *testing.T) {
	router, _ := setupRouter(t)

	w, _ := do(t, router, "POST", "/form/rows", "")
	assert.Equal(t, http.StatusCreated, w.Code)
	do(t, router, "POST", "/form/rows", "")

	for i, ticker := range []string{"msft", "aapl", "goog"} {
		w, _ := do(t, router, "PUT", "/form/rows/"+strconv.Itoa(i)+"/ticker", `{"ticker":"`+ticker+`"}`)
		require.Equal(t, http.StatusOK, w.Code)
	}

	w, env := do(t, router, "PUT", "/form/rows/1/ticker", `{"ticker":"msft"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.NotEmpty(t, env.Error)

	w, _ = do(t, router, "PUT", "/form/rows/1/ticker", `{"ticker":"tsla"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, router, "PUT", "/form/rows/9/ticker", `{"ticker":"amzn"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = do(t, router, "PUT", "/form/rows/x/ticker", `{"ticker":"amzn"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env = do(t, router, "GET", "/form/rows/2/options", "")
	require.Equal(t, http.StatusOK, w.Code)
	var options struct {
		Options []struct {
			Value    string `json:"value"`
			Selected bool   `json:"selected"`
		} `json:"options"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &options))
	require.Len(t, options.Options, 2)
	assert.Equal(t, "goog", options.Options[0].Value)
	assert.True(t, options.Options[0].Selected)
	assert.Equal(t, "amzn", options.Options[1].Value)
}

func TestWeightsProduceFieldErrors(t *testing.T) {
	router, _ := setupRouter(t)

	w, env := do(t, router, "PUT", "/form/rows/0/weights", `{"minWeight":0.5,"maxWeight":0.2}`)
	require.Equal(t, http.StatusOK, w.Code)

	var snap struct {
		Errors []struct {
			Path string `json:"path"`
		} `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &snap))
	paths := make([]string, 0, len(snap.Errors))
	for _, e := range snap.Errors {
		paths = append(paths, e.Path)
	}
	assert.Contains(t, paths, "stocks.0.minWeight")
	assert.Contains(t, paths, "stocks.0.maxWeight")
}

func TestSetSector(t *testing.T) {
	router, _ := setupRouter(t)

	w, env := do(t, router, "PUT", "/form/rows/0/sector", `{"sector":"technology"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Technology", snapshotOf(t, env).Payload.Stocks[0]["sector"])

	w, _ = do(t, router, "PUT", "/form/rows/0/sector", `{"sector":"Crypto"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env = do(t, router, "PUT", "/form/rows/0/sector", `{"sector":null}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, snapshotOf(t, env).Payload.Stocks[0], "sector")
}

func TestDeletionWorkflow(t *testing.T) {
	router, _ := setupRouter(t)
	do(t, router, "POST", "/form/rows", "")

	w, env := do(t, router, "POST", "/form/rows/0/delete", "")
	require.Equal(t, http.StatusAccepted, w.Code)
	var confirmation struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &confirmation))
	require.NotEmpty(t, confirmation.Token)

	w, env = do(t, router, "POST", "/form/deletions/"+confirmation.Token+"/confirm", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, snapshotOf(t, env).Payload.Stocks, 1)

	w, _ = do(t, router, "POST", "/form/deletions/"+confirmation.Token+"/confirm", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	_, env = do(t, router, "POST", "/form/rows/0/delete", "")
	require.NoError(t, json.Unmarshal(env.Data, &confirmation))
	w, _ = do(t, router, "DELETE", "/form/deletions/"+confirmation.Token, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestMethodEditing(t *testing.T) {
	router, _ := setupRouter(t)

	w, env := do(t, router, "PATCH", "/form/method/params", `{"maxRisk":0.3,"shortSell":true}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0.3, snapshotOf(t, env).Payload.OptimizationMethod["maxRisk"])

	w, _ = do(t, router, "PATCH", "/form/method/params", `{"minReturn":0.3}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, router, "PATCH", "/form/method/params", `{"maxRisc":0.3}`)
	assert.Equal(t, http.StatusBadRequest, w.Code, "unknown fields are rejected")

	w, env = do(t, router, "PUT", "/form/method/sectors/Financial%20Services", `{"minWeight":0.1,"maxWeight":0.3}`)
	require.Equal(t, http.StatusOK, w.Code)
	sectors := snapshotOf(t, env).Payload.OptimizationMethod["sectorWeights"].(map[string]interface{})
	assert.Equal(t, 0.3, sectors["Financial Services"].(map[string]interface{})["maxWeight"])

	w, _ = do(t, router, "PUT", "/form/method", `{"optimizationMethod":"maximize_alpha"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, router, "PUT", "/form/method/budget/0", `{"weight":1}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env = do(t, router, "PUT", "/form/method", `{"optimizationMethod":"risk_parity"}`)
	require.Equal(t, http.StatusOK, w.Code)
	method := snapshotOf(t, env).Payload.OptimizationMethod
	assert.Equal(t, "risk_parity", method["optimizationMethod"])
	assert.NotContains(t, method, "maxRisk")
	assert.NotContains(t, method, "shortSell")
	assert.Len(t, method["budget"], 1)

	w, env = do(t, router, "PUT", "/form/method/budget/0", `{"weight":0.4}`)
	require.Equal(t, http.StatusOK, w.Code)
	budget := snapshotOf(t, env).Payload.OptimizationMethod["budget"].([]interface{})
	assert.Equal(t, 0.4, budget[0].(map[string]interface{})["weight"])

	w, _ = do(t, router, "PUT", "/form/method/budget/3", `{"weight":0.4}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleSubmit(t *testing.T) {
	router, _ := setupRouter(t)

	w, env := do(t, router, "POST", "/form/submit", "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	paths := make([]string, 0, len(env.Errors))
	for _, e := range env.Errors {
		paths = append(paths, e.Path)
	}
	assert.Contains(t, paths, "stocks")
	assert.Contains(t, paths, "stocks.0.ticker")

	do(t, router, "POST", "/form/rows", "")
	do(t, router, "POST", "/form/rows", "")
	do(t, router, "PUT", "/form/rows/0/ticker", `{"ticker":"msft"}`)
	do(t, router, "PUT", "/form/rows/1/ticker", `{"ticker":"aapl"}`)
	do(t, router, "PUT", "/form/rows/2/ticker", `{"ticker":"goog"}`)

	w, env = do(t, router, "POST", "/form/submit", "")
	require.Equal(t, http.StatusOK, w.Code)
	var receipt form.Receipt
	require.NoError(t, json.Unmarshal(env.Data, &receipt))
	assert.NotEmpty(t, receipt.ID)
	assert.Equal(t, 3, receipt.Stocks)

	_, env = do(t, router, "GET", "/form", "")
	assert.Len(t, snapshotOf(t, env).Payload.Stocks, 1, "form reset after submit")
}

func TestHandleSubmitPayload(t *testing.T) {
	router, _ := setupRouter(t)

	body := `{"stocks":[{"ticker":"msft"},{"ticker":"aapl"},{"ticker":"goog"}],
		"optimizationMethod":{"optimizationMethod":"minimize_risk","minReturn":0.1}}`
	w, env := do(t, router, "POST", "/submissions", body)
	require.Equal(t, http.StatusOK, w.Code)
	var receipt form.Receipt
	require.NoError(t, json.Unmarshal(env.Data, &receipt))
	assert.Equal(t, "minimize_risk", string(receipt.Method))

	w, env = do(t, router, "POST", "/submissions", `{"stocks":[{"ticker":"msft"}],"optimizationMethod":{"optimizationMethod":"minimize_risk"}}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.NotEmpty(t, env.Errors)

	w, _ = do(t, router, "POST", "/submissions", `{"stocks":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, router, "POST", "/submissions", `{"stocks":[],"optimizationMethod":{"optimizationMethod":"bogus"}}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDecode_UnknownFields(t *testing.T) {
	router, _ := setupRouter(t)

	w, _ := do(t, router, "PUT", "/form/rows/0/ticker", `{"ticker":"msft","tikcer":"aapl"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	body := `{"stocks":[{"ticker":"msft"},{"ticker":"aapl"},{"ticker":"goog"}],"bogus":1,
		"optimizationMethod":{"optimizationMethod":"minimize_risk","minReturn":0.1,"nope":2}}`
	w, _ = do(t, router, "POST", "/submissions", body)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRegisterRoutes(t *testing.T) {
	router, _ := setupRouter(t)

	testCases := []struct {
		method string
		path   string
	}{
		{"GET", "/form"},
		{"POST", "/form/reset"},
		{"POST", "/form/submit"},
		{"POST", "/form/rows"},
		{"GET", "/form/rows/0/options"},
		{"POST", "/form/deletions/abc/confirm"},
		{"DELETE", "/form/deletions/abc"},
		{"PATCH", "/form/method/params"},
		{"POST", "/submissions"},
	}

	for _, tc := range testCases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, strings.NewReader("{}"))
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			// chi answers unknown routes with a plain-text 404; handler errors are JSON
			if w.Code == http.StatusNotFound {
				assert.Equal(t, "application/json", w.Header().Get("Content-Type"), "route %s %s should be registered", tc.method, tc.path)
			}
			assert.NotEqual(t, http.StatusMethodNotAllowed, w.Code)
		})
	}
}
