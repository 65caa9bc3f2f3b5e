package tracker

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schematics/internal/auth"
	"schematics/internal/kvstore"
	synchub "schematics/internal/sync"
)

func newTestRouter(t *testing.T, tokens auth.TokenService) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	s, _ := startSession(t, kvstore.NewMemory(true), time.Hour)
	return NewRouter(s, synchub.NewHub(), tokens)
}

func do(r *gin.Engine, method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" && header["Content-Type"] == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeView(t *testing.T, w *httptest.ResponseRecorder) View {
	t.Helper()
	var v View
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

func TestListAndToggles(t *testing.T) {
	r := newTestRouter(t, auth.TokenService{})

	w := do(r, http.MethodGet, "/items", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	v := decodeView(t, w)
	assert.Equal(t, 3, v.Total)

	w = do(r, http.MethodPost, "/view/sort", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Widget", decodeView(t, w).Items[0].Title)

	w = do(r, http.MethodPost, "/view/search", `{"search":"tank"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"Dune Tank"}, rowTitles(decodeView(t, w)))

	w = do(r, http.MethodPost, "/view/hide-owned", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decodeView(t, w).HideOwned)
}

func TestOwnedAndNoteRoutes(t *testing.T) {
	r := newTestRouter(t, auth.TokenService{})

	w := do(r, http.MethodPut, "/items/dune%20tank/owned", `{"owned":true}`, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decodeView(t, w).Items[0].Owned)

	w = do(r, http.MethodPut, "/items/widget/owned", `{}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPut, "/items/widget/note", `{"note":"shiny"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "shiny", decodeView(t, w).Items[2].Note)

	w = do(r, http.MethodPut, "/items/widget/note", `not json`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestImportRoutes(t *testing.T) {
	r := newTestRouter(t, auth.TokenService{})

	w := do(r, http.MethodPost, "/import", "Name\nWidget\n", map[string]string{"Content-Type": "text/csv"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Title column")

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "owned.csv")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("Title,Notes\nWidget,Cool\n"))
	require.NoError(t, mw.Close())

	w = do(r, http.MethodPost, "/import", body.String(), map[string]string{"Content-Type": mw.FormDataContentType()})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Count    int    `json:"count"`
		HasNotes bool   `json:"has_notes"`
		Message  string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
	assert.True(t, resp.HasNotes)

	w = do(r, http.MethodGet, "/export", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "owned_schematics.csv")
	assert.Contains(t, w.Body.String(), `"Widget","","","Cool"`)
}

func TestWriteRoutesRequireToken(t *testing.T) {
	tokens := auth.TokenService{Secret: []byte("k"), Issuer: "schematics", Duration: time.Hour}
	r := newTestRouter(t, tokens)

	w := do(r, http.MethodPut, "/items/widget/owned", `{"owned":true}`, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, http.MethodGet, "/items", "", nil)
	assert.Equal(t, http.StatusOK, w.Code, "reads stay open")

	tok, _, err := tokens.Sign("test")
	require.NoError(t, err)
	w = do(r, http.MethodPut, "/items/widget/owned", `{"owned":true}`, map[string]string{"Authorization": "Bearer " + tok})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHealthAndReady(t *testing.T) {
	r := newTestRouter(t, auth.TokenService{})
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/health", "", nil).Code)

	w := do(r, http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"ready"`)
}

func TestListQueryParams(t *testing.T) {
	r := newTestRouter(t, auth.TokenService{})

	w := do(r, http.MethodGet, "/items?q=widget&sort=desc", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	v := decodeView(t, w)
	assert.Equal(t, 1, v.Total)
	assert.Equal(t, "widget", v.Search)
	assert.False(t, v.SortAsc)

	w = do(r, http.MethodGet, "/items?sort=desc", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"Widget", "Ornithopter", "Dune Tank"}, rowTitles(decodeView(t, w)))

	w = do(r, http.MethodPut, "/items/widget/owned", `{"owned":true}`, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = do(r, http.MethodGet, "/items?hide_owned=true", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"Dune Tank", "Ornithopter"}, rowTitles(decodeView(t, w)))

	w = do(r, http.MethodGet, "/items", "", nil)
	v = decodeView(t, w)
	assert.Equal(t, 3, v.Total, "query params do not stick to the session")
	assert.True(t, v.SortAsc)

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/items?sort=sideways", "", nil).Code)
}

func TestImportTooLarge(t *testing.T) {
	r := newTestRouter(t, auth.TokenService{})

	big := "Title\n" + strings.Repeat("Widget\n", maxImportBytes/7+1)
	w := do(r, http.MethodPost, "/import", big, map[string]string{"Content-Type": "text/csv"})
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	w = do(r, http.MethodGet, "/items", "", nil)
	for _, row := range decodeView(t, w).Items {
		assert.False(t, row.Owned, "nothing imported from a rejected file")
	}
}
