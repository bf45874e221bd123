package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"familyhub-tracker/internal/models"
)

func newEngine(lg zerolog.Logger) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestLogger(lg))
	r.Use(sessions.Sessions("test", cookie.NewStore([]byte("0123456789abcdef"))))
	return r
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	r := newEngine(zerolog.New(&buf))
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	r.GET("/boom", func(c *gin.Context) { c.String(http.StatusInternalServerError, "boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.Equal(t, http.StatusOK, w.Code)
	id := w.Header().Get(RequestIDHeader)
	assert.Len(t, id, 36)
	assert.Contains(t, buf.String(), `"request_id":"`+id+`"`)
	assert.Contains(t, buf.String(), `"level":"info"`)

	buf.Reset()
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Contains(t, buf.String(), `"level":"error"`)
	assert.Contains(t, buf.String(), `"status":500`)
}

func TestRequireAuth(t *testing.T) {
	r := newEngine(zerolog.Nop())
	r.GET("/tasks", RequireAuth(), func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/api/stats", RequireAPIAuth(), func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/tasks?overdue=1", nil))
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login?next=%2Ftasks%3Foverdue%3D1", w.Header().Get("Location"))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/stats", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"success":false,"message":"authentication required"}`, w.Body.String())
}

func TestRequireRole(t *testing.T) {
	r := newEngine(zerolog.Nop())
	r.GET("/as/:role", func(c *gin.Context) {
		sess := sessions.Default(c)
		sess.Set("user_id", uint(1))
		sess.Set("role", c.Param("role"))
		require.NoError(t, sess.Save())
		c.String(http.StatusOK, "ok")
	})
	r.GET("/activity", RequireRole(models.RoleManager), func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/api/bulk", RequireAPIRole(models.RoleManager), func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	visitPath := func(role, path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/as/"+role, nil))
		req := httptest.NewRequest(http.MethodGet, path, nil)
		for _, ck := range w.Result().Cookies() {
			req.AddCookie(ck)
		}
		w = httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}
	visit := func(role string) int { return visitPath(role, "/activity").Code }

	assert.Equal(t, http.StatusOK, visit("manager"))
	assert.Equal(t, http.StatusForbidden, visit("developer"))

	assert.Equal(t, http.StatusOK, visitPath("manager", "/api/bulk").Code)
	denied := visitPath("tester", "/api/bulk")
	assert.Equal(t, http.StatusForbidden, denied.Code)
	assert.JSONEq(t, `{"success":false,"message":"access denied"}`, denied.Body.String())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/activity", nil))
	assert.Equal(t, http.StatusFound, w.Code)
}
