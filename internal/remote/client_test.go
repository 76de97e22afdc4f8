package remote

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cloo-solutions/skumatch/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{ProcessURL: srv.URL, SearchURL: srv.URL})
}

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient(Config{})
	assert.Equal(t, DefaultProcessURL, c.processURL)
	assert.Equal(t, DefaultSearchURL, c.searchURL)
	assert.Equal(t, defaultTimeout, c.httpClient.Timeout)

	c = NewClient(Config{ProcessURL: "http://pdf:5001/", SearchURL: "http://search:5000/"})
	assert.Equal(t, "http://pdf:5001", c.processURL)
	assert.Equal(t, "http://search:5000", c.searchURL)
}

func TestProcessPDF_SendsMultipartFile(t *testing.T) {
	var gotName, gotContent string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/process-pdf", r.URL.Path)
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		data, _ := io.ReadAll(file)
		gotName = header.Filename
		gotContent = string(data)
		w.Write([]byte(`{"items":[{"desc":"Widget A"}]}`))
	})

	payload, err := c.ProcessPDF(t.Context(), "invoice.pdf", strings.NewReader("%PDF-1.4"))
	require.NoError(t, err)
	assert.Equal(t, "invoice.pdf", gotName)
	assert.Equal(t, "%PDF-1.4", gotContent)
	assert.JSONEq(t, `{"items":[{"desc":"Widget A"}]}`, string(payload))
}

func TestProcessPDF_NonSuccessStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`{"error":"ignored"}`))
	})

	_, err := c.ProcessPDF(t.Context(), "invoice.pdf", strings.NewReader("x"))
	require.Error(t, err)
	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, StepProcessPDF, apiErr.Step)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, "PDF processing failed: 502", err.Error())
	assert.ErrorIs(t, err, domain.ErrUpstream)
	assert.Equal(t, domain.ErrCodeUpstream, domain.CodeOf(err))
	assert.False(t, IsTransport(err))
}

func TestProcessPDF_InvalidPayload(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`["not","an","object"]`))
	})

	_, err := c.ProcessPDF(t.Context(), "invoice.pdf", strings.NewReader("x"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidExtraction)
}

func TestProcessPDF_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()
	c := NewClient(Config{ProcessURL: srv.URL, SearchURL: srv.URL})

	_, err := c.ProcessPDF(t.Context(), "invoice.pdf", strings.NewReader("x"))
	require.Error(t, err)
	assert.True(t, IsTransport(err))
	_, ok := AsAPIError(err)
	assert.False(t, ok)
}

func TestSearch_ForwardsPayloadVerbatim(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"items":[{"desc":"Widget A"}],"extra":true}`, string(body))
		w.Write([]byte(`[{"query":"Widget A","id":"SKU-1","matches":[{"document":{"name":"Widget A Deluxe","id":"SKU-99","barcode":"012345","unit":"EA"}}]}]`))
	})

	results, err := c.Search(t.Context(), json.RawMessage(`{"items":[{"desc":"Widget A"}],"extra":true}`))
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Widget A", results[0].Query)
	assert.Equal(t, "SKU-1", results[0].ID)
	require.Len(t, results[0].Matches, 1)
	assert.Equal(t, domain.Document{Name: "Widget A Deluxe", ID: "SKU-99", Barcode: "012345", Unit: "EA"}, results[0].Matches[0].Document)
}

func TestSearch_ErrorFieldSurfaced(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"JSON must contain an 'item_des' list of products"}`))
	})

	_, err := c.Search(t.Context(), json.RawMessage(`{}`))
	require.Error(t, err)
	assert.Equal(t, "Search failed: 400 - JSON must contain an 'item_des' list of products", err.Error())
}

func TestSearch_NullBodyIsEmptyList(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`null`))
	})

	results, err := c.Search(t.Context(), json.RawMessage(`{}`))
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestSearch_MalformedBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"query":"x"}`))
	})

	_, err := c.Search(t.Context(), json.RawMessage(`{}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse search results")
}

func TestSaveMapping_PostsMapping(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/save-mapping", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"Widget A":"Widget A Deluxe"}`, string(body))
		w.Write([]byte(`{"message":"Mappings saved successfully"}`))
	})

	err := c.SaveMapping(t.Context(), domain.Mapping{"Widget A": "Widget A Deluxe"})
	assert.NoError(t, err)
}

func TestSaveMapping_Failure(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantMsg string
	}{
		{name: "error field", body: `{"error":"duplicate"}`, wantMsg: "duplicate"},
		{name: "no error field", body: `{}`, wantMsg: UnknownError},
		{name: "not json", body: `oops`, wantMsg: UnknownError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusConflict)
				w.Write([]byte(tt.body))
			})

			err := c.SaveMapping(t.Context(), domain.Mapping{"a": "b"})
			require.Error(t, err)
			apiErr, ok := AsAPIError(err)
			require.True(t, ok)
			assert.Equal(t, http.StatusConflict, apiErr.StatusCode)
			assert.Equal(t, tt.wantMsg, apiErr.Message)
		})
	}
}
