package share

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"songmail/internal/domain"
	"songmail/internal/middleware"
	"songmail/internal/pkg/jwt"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Code    string         `json:"code"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func do(t *testing.T, router http.Handler, method, path, body, bearer string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w, env
}

func TestHandler_ShareFlow(t *testing.T) {
	gin.SetMode(gin.TestMode)
	f := newFixture(t)
	j := jwt.New("access-secret", time.Hour)

	router := gin.New()
	v1 := router.Group("/api/v1")
	h := NewHandler(f.svc)
	h.RegisterPublicRoutes(v1)
	optional := v1.Group("")
	optional.Use(middleware.OptionalJWTAuth(j))
	h.RegisterSendRoutes(optional)

	w, env := do(t, router, http.MethodGet, "/api/v1/search?q="+url.QueryEscape("Yesterday")+"&limit=5", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	var search SearchResult
	require.NoError(t, json.Unmarshal(env.Data, &search))
	require.Len(t, search.Candidates, 5)
	assert.Equal(t, "The Beatles", search.Candidates[0].Artist)

	w, env = do(t, router, http.MethodGet, "/api/v1/share/selection?token="+url.QueryEscape(search.Candidates[0].Token), "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"stage":"candidate_selected"`)

	w, env = do(t, router, http.MethodPost, "/api/v1/share/confirm", `{"token":"`+search.Candidates[0].Token+`"}`, "")
	require.Equal(t, http.StatusOK, w.Code)
	var confirmed ConfirmResult
	require.NoError(t, json.Unmarshal(env.Data, &confirmed))
	require.NotEmpty(t, confirmed.SavedToken)

	sendBody := `{"saved_token":"` + confirmed.SavedToken + `","name":"Alex","email":"alex@example.com"}`

	w, env = do(t, router, http.MethodPost, "/api/v1/share/send", sendBody, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "UNAUTHORIZED", env.Error.Code)

	w, _ = do(t, router, http.MethodPost, "/api/v1/share/send", sendBody, "forged")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, env = do(t, router, http.MethodPost, "/api/v1/share/send", `{"saved_token":"`+confirmed.SavedToken+`","email":"sam@example.com"}`, "")
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Contains(t, string(env.Data), `"email":"sam@example.com"`)

	access, err := j.GenerateToken(1, "marie")
	require.NoError(t, err)
	w, env = do(t, router, http.MethodPost, "/api/v1/share/send", sendBody, access)
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Contains(t, string(env.Data), `"stage":"notified"`)
	require.Len(t, f.dispatcher.jobs, 2)
	assert.Empty(t, f.dispatcher.jobs[0].SharedBy)
	assert.Equal(t, "marie", f.dispatcher.jobs[1].SharedBy)
}

func TestHandler_SearchErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	f := newFixture(t)

	router := gin.New()
	NewHandler(f.svc).RegisterPublicRoutes(router.Group("/api/v1"))

	w, env := do(t, router, http.MethodGet, "/api/v1/search?q=", "", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)

	w, _ = do(t, router, http.MethodGet, "/api/v1/search?q=x&limit=abc", "", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	f.adapter.err = domain.Adapter("test", assert.AnError)
	w, env = do(t, router, http.MethodGet, "/api/v1/search?q=Yesterday", "", "")
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "UPSTREAM_UNAVAILABLE", env.Error.Code)
	assert.Equal(t, true, env.Error.Details["retriable"])

	w, env = do(t, router, http.MethodPost, "/api/v1/share/confirm", `{"token":"garbage"}`, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
}
