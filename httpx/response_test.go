package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KOMKZ/tickerdesk/errcode"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func decode(t *testing.T, w *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestOkJson(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	OkJson(c, map[string]string{"name": "test"})

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	assert.Equal(t, 0, resp.Code)
	assert.Equal(t, "success", resp.Msg)
	assert.Equal(t, map[string]any{"name": "test"}, resp.Data)
}

func TestHandleError_LayeredError(t *testing.T) {
	errNoData := errcode.New(73, 2, "provider", "error.provider.no_data", "no data", http.StatusNotFound).
		WithClass(errcode.ClassProvider)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	HandleError(c, errNoData.WithMsg("no data for XYZ").WithData("source", "yahoo"))

	assert.Equal(t, http.StatusNotFound, w.Code)
	resp := decode(t, w)
	assert.Equal(t, 730002, resp.Code)
	assert.Equal(t, "no data for XYZ", resp.Msg)
	assert.Equal(t, map[string]any{"source": "yahoo"}, resp.Data)
}

func TestHandleError_InternalClassHidesMessage(t *testing.T) {
	errBoom := errcode.New(75, 9, "server", "error.server.boom", "disk layout is /secret")

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	HandleError(c, errBoom.WithData("path", "/secret"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	resp := decode(t, w)
	assert.Equal(t, 750009, resp.Code)
	assert.Equal(t, "internal error", resp.Msg)
	assert.Nil(t, resp.Data)
}

func TestHandleError_PlainError(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	HandleError(c, errors.New("dial tcp: refused"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal error", decode(t, w).Msg)
}

func TestHandleError_Nil(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	HandleError(c, nil)

	assert.Empty(t, w.Body.Bytes())
}

func TestNoRouteAndNoMethod(t *testing.T) {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.NoRoute(NoRouteHandler())
	r.NoMethod(NoMethodHandler())
	r.GET("/only-get", func(c *gin.Context) { OkJson(c, nil) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "route not found: GET /missing", decode(t, w).Msg)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/only-get", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
