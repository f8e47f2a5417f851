package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
	"video_course_backend/internal/config"
	"video_course_backend/internal/model"
	"video_course_backend/pkg/database"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	t   *testing.T
	app *App
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.OpenInMemory(fmt.Sprintf("app_%d", time.Now().UnixNano()))
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.Server.Mode = gin.TestMode
	cfg.JWT.Secret = "router-test-secret"
	cfg.JWT.ExpireTime = time.Hour
	cfg.Storage.Type = "local"
	cfg.Storage.LocalPath = t.TempDir()
	cfg.VideoHost.EmbedBaseURL = "https://iframe.mediadelivery.net"
	cfg.CORS.AllowedOrigins = []string{"http://localhost:3000"}

	app := Build(cfg, db, nil)
	t.Cleanup(func() {
		app.services.hub.Stop()
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return &testServer{t: t, app: app}
}

func (s *testServer) do(method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	s.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.app.Router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

func (s *testServer) login(email string, admin bool) string {
	s.t.Helper()
	w, _ := s.do(http.MethodPost, "/api/register", "", gin.H{"email": email, "password": "secret123"})
	require.Equal(s.t, http.StatusCreated, w.Code)
	if admin {
		require.NoError(s.t, s.app.DB.Model(&model.User{}).Where("email = ?", email).Update("is_admin", true).Error)
	}

	w, env := s.do(http.MethodPost, "/api/login", "", gin.H{"email": email, "password": "secret123"})
	require.Equal(s.t, http.StatusOK, w.Code)
	var data struct {
		Token string `json:"token"`
	}
	require.NoError(s.t, json.Unmarshal(env.Data, &data))
	require.NotEmpty(s.t, data.Token)
	return data.Token
}

func decodeID(t *testing.T, env envelope) string {
	t.Helper()
	var data struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.NotEmpty(t, data.ID)
	return data.ID
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	w, env := s.do(http.MethodGet, "/api/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var data struct {
		Status     string            `json:"status"`
		Components map[string]string `json:"components"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, "ok", data.Status)
	assert.Equal(t, "up", data.Components["database"])
	assert.Equal(t, "disabled", data.Components["redis"])
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t)

	w, _ := s.do(http.MethodGet, "/api/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token := s.login("learner@example.com", false)
	w, env := s.do(http.MethodGet, "/api/profile", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), "learner@example.com")
	assert.NotContains(t, string(env.Data), "password")

	w, _ = s.do(http.MethodPost, "/api/register", "", gin.H{"email": "learner@example.com", "password": "secret123"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w, _ = s.do(http.MethodPost, "/api/login", "", gin.H{"email": "learner@example.com", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// 普通用户不能访问管理接口
	w, _ = s.do(http.MethodPost, "/api/admin/courses", token, gin.H{"title": "x", "videoIds": []string{"a"}})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = s.do(http.MethodPost, "/api/logout", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w, _ = s.do(http.MethodGet, "/api/profile", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCourseLifecycle(t *testing.T) {
	s := newTestServer(t)
	adminToken := s.login("admin@example.com", true)
	learnerToken := s.login("learner@example.com", false)

	w, env := s.do(http.MethodPost, "/api/admin/videos", adminToken, gin.H{
		"title":          "Intro",
		"mediaReference": "3c5f7a2e-1b4d-4e8f-9a6b-0c2d4e6f8a1b",
		"libraryId":      "12345",
		"storageUrl":     "https://vz-abc.b-cdn.net",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	videoID := decodeID(t, env)

	w, env = s.do(http.MethodPost, "/api/admin/videos", adminToken, gin.H{
		"title":          "Part 1",
		"mediaReference": "-----",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	sectionID := decodeID(t, env)

	w, _ = s.do(http.MethodPost, "/api/admin/courses", adminToken, gin.H{"title": "Empty", "videoIds": []string{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env = s.do(http.MethodPost, "/api/admin/courses", adminToken, gin.H{
		"title":    "Go Basics",
		"videoIds": []string{sectionID, videoID},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	courseID := decodeID(t, env)

	w, env = s.do(http.MethodGet, "/api/courses?status=not-started&q=basics", learnerToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var items []struct {
		ID            string `json:"id"`
		PlayableCount int    `json:"playableCount"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &items))
	require.Len(t, items, 1)
	assert.Equal(t, courseID, items[0].ID)
	assert.Equal(t, 1, items[0].PlayableCount)

	w, _ = s.do(http.MethodGet, "/api/courses?status=bogus", learnerToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = s.do(http.MethodPost, "/api/videos/"+sectionID+"/complete", learnerToken, gin.H{"courseId": courseID})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = s.do(http.MethodPost, "/api/playback/events", learnerToken, gin.H{
		"type": "playerProgress", "videoId": videoID, "courseId": courseID, "currentTime": 30, "duration": 60,
	})
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = s.do(http.MethodPost, "/api/videos/"+videoID+"/complete", learnerToken, gin.H{"courseId": courseID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, env = s.do(http.MethodGet, "/api/courses/"+courseID+"/progress", learnerToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var progress struct {
		Status string `json:"status"`
		Rollup struct {
			Completed       bool `json:"completed"`
			CompletedVideos int  `json:"completedVideos"`
		} `json:"rollup"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &progress))
	assert.Equal(t, "completed", progress.Status)
	assert.True(t, progress.Rollup.Completed)
	assert.Equal(t, 1, progress.Rollup.CompletedVideos)

	// 独立播放的进度 courseId 为 null
	w, env = s.do(http.MethodGet, "/api/videos/"+videoID+"/progress", learnerToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"courseId":null`)

	w, env = s.do(http.MethodGet, "/api/courses/"+courseID+"/navigate?from=1&dir=prev", learnerToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"moved":false`)

	w, _ = s.do(http.MethodPost, "/api/admin/courses/"+courseID+"/move", adminToken, gin.H{"from": 1, "to": 0})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, _ = s.do(http.MethodDelete, "/api/admin/courses/"+courseID, adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w, _ = s.do(http.MethodGet, "/api/courses/"+courseID, learnerToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCORSAllowList(t *testing.T) {
	s := newTestServer(t)

	preflight := func(origin string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodOptions, "/api/courses", nil)
		req.Header.Set("Origin", origin)
		req.Header.Set("Access-Control-Request-Method", http.MethodGet)
		w := httptest.NewRecorder()
		s.app.Router.ServeHTTP(w, req)
		return w
	}

	w := preflight("http://localhost:3000")
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))

	w = preflight("https://evil.example.com")
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	// 热更新后新的 Origin 立即生效
	cfg := *s.app.Config
	cfg.CORS.AllowedOrigins = []string{"https://evil.example.com"}
	s.app.ApplyConfig(&cfg)
	w = preflight("https://evil.example.com")
	assert.Equal(t, "https://evil.example.com", w.Header().Get("Access-Control-Allow-Origin"))
}
