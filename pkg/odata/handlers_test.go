package odata

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRouter(t *testing.T, prefix string) http.Handler {
	t.Helper()
	r := chi.NewRouter()
	require.NoError(t, RegisterRoutes(r, prefix, buildMetadataTestModel(t)))
	return r
}

func TestGetMetadata(t *testing.T) {
	r := setupTestRouter(t, "/odata")

	req := httptest.NewRequest(http.MethodGet, "/odata/$metadata", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/xml", w.Header().Get("Content-Type"))
	assert.Equal(t, "4.0", w.Header().Get("OData-Version"))
	assert.Contains(t, w.Body.String(), `<EntitySet Name="Animals" EntityType="Test.Animal">`)
}

func TestGetServiceDocument(t *testing.T) {
	for _, url := range []string{"/odata/", "/odata"} {
		t.Run(url, func(t *testing.T) {
			r := setupTestRouter(t, "/odata/")

			req := httptest.NewRequest(http.MethodGet, url, nil)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

			var doc struct {
				Context string `json:"@odata.context"`
				Value   []struct {
					Name string `json:"name"`
					Kind string `json:"kind"`
					URL  string `json:"url"`
				} `json:"value"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
			assert.Equal(t, "/odata/$metadata", doc.Context)

			var names, kinds []string
			for _, v := range doc.Value {
				names = append(names, v.Name)
				kinds = append(kinds, v.Kind)
				assert.Equal(t, v.Name, v.URL)
			}
			assert.Equal(t, []string{"Animals", "Owners", "Categories", "Products", "GetAnimal"}, names)
			assert.Equal(t, []string{"EntitySet", "EntitySet", "EntitySet", "EntitySet", "FunctionImport"}, kinds)
		})
	}
}

func TestRoutePrefixes(t *testing.T) {
	tests := []struct {
		prefix  string
		base    string
		context string
	}{
		{prefix: "odata", base: "/odata", context: "/odata/$metadata"},
		{prefix: "odata/", base: "/odata", context: "/odata/$metadata"},
		{prefix: "//odata//", base: "/odata", context: "/odata/$metadata"},
		{prefix: "api/v4", base: "/api/v4", context: "/api/v4/$metadata"},
		{prefix: "", base: "", context: "/$metadata"},
		{prefix: "/", base: "", context: "/$metadata"},
	}
	for _, tt := range tests {
		t.Run(tt.prefix, func(t *testing.T) {
			var r http.Handler
			require.NotPanics(t, func() { r = setupTestRouter(t, tt.prefix) })

			req := httptest.NewRequest(http.MethodGet, tt.base+"/$metadata", nil)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, "application/xml", w.Header().Get("Content-Type"))

			req = httptest.NewRequest(http.MethodGet, tt.base+"/", nil)
			w = httptest.NewRecorder()
			r.ServeHTTP(w, req)
			require.Equal(t, http.StatusOK, w.Code)
			var doc struct {
				Context string `json:"@odata.context"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
			assert.Equal(t, tt.context, doc.Context)
		})
	}
}

func TestUnknownPathIsNotFound(t *testing.T) {
	r := setupTestRouter(t, "/odata")

	req := httptest.NewRequest(http.MethodGet, "/odata/Animals", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/odata/$metadata", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestOrderedFieldsKeepInsertionOrder(t *testing.T) {
	fields := OrderedFields{
		{Key: "zeta", Value: 1},
		{Key: "alpha", Value: "ü"},
		{Key: "mid", Value: OrderedFields{{Key: "b", Value: true}, {Key: "a", Value: nil}}},
	}
	out, err := json.Marshal(fields)
	require.NoError(t, err)
	assert.Equal(t, `{"zeta":1,"alpha":"ü","mid":{"b":true,"a":null}}`, string(out))

	w := httptest.NewRecorder()
	require.NoError(t, encodeJSONPreserveOrder(w, OrderedFields{{Key: "name", Value: "üCategories"}}))
	assert.JSONEq(t, `{"name":"üCategories"}`, w.Body.String())
	assert.Contains(t, w.Body.String(), "üCategories")
}
