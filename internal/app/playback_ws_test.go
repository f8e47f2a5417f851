package app

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type wsMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func dialPlayback(t *testing.T, srv *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/playback/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readWS(t *testing.T, conn *websocket.Conn) wsMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg wsMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestPlaybackWebSocket(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.app.Router)
	t.Cleanup(srv.Close)
	hub := s.app.services.hub

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

	w, env = s.do(http.MethodPost, "/api/admin/videos", adminToken, gin.H{"title": "Part 1", "mediaReference": "-----"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	sectionID := decodeID(t, env)

	// 没有 token 时拒绝升级
	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/api/playback/ws", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	player := dialPlayback(t, srv, learnerToken)
	require.NoError(t, player.WriteJSON(gin.H{
		"type": "playerProgress", "videoId": videoID, "currentTime": 45, "duration": 90,
	}))
	ack := readWS(t, player)
	require.Equal(t, "playerProgressAck", ack.Type, string(ack.Data))
	var st struct {
		VideoID            string  `json:"videoId"`
		ProgressPercentage float64 `json:"progressPercentage"`
	}
	require.NoError(t, json.Unmarshal(ack.Data, &st))
	assert.Equal(t, videoID, st.VideoID)
	assert.Equal(t, float64(50), st.ProgressPercentage)

	require.NoError(t, player.WriteJSON(gin.H{
		"type": "playerProgress", "videoId": sectionID, "currentTime": 1, "duration": 2,
	}))
	rejected := readWS(t, player)
	assert.Equal(t, "error", rejected.Type)
	assert.Contains(t, string(rejected.Data), "section")

	// 同一用户在另一个标签页中的连接
	other := dialPlayback(t, srv, learnerToken)
	require.Eventually(t, func() bool { return hub.ConnectionCount() == 2 }, 5*time.Second, 10*time.Millisecond)

	w, _ = s.do(http.MethodGet, "/api/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"playbackConnections":2`)

	w, _ = s.do(http.MethodPost, "/api/videos/"+videoID+"/complete", learnerToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	for _, conn := range []*websocket.Conn{player, other} {
		msg := readWS(t, conn)
		require.Equal(t, "lessonCompleted", msg.Type)
		var row struct {
			VideoID   string `json:"videoId"`
			Completed bool   `json:"completed"`
		}
		require.NoError(t, json.Unmarshal(msg.Data, &row))
		assert.Equal(t, videoID, row.VideoID)
		assert.True(t, row.Completed)
	}

	require.NoError(t, other.Close())
	require.Eventually(t, func() bool { return hub.ConnectionCount() == 1 }, 5*time.Second, 10*time.Millisecond)
}

func TestPlaybackWebSocketDropsBursts(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.app.Router)
	t.Cleanup(srv.Close)

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

	conn := dialPlayback(t, srv, learnerToken)
	const sent = 60
	for i := 0; i < sent; i++ {
		require.NoError(t, conn.WriteJSON(gin.H{
			"type": "playerProgress", "videoId": videoID, "currentTime": i, "duration": sent,
		}))
	}

	acks := 0
	for {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(500*time.Millisecond)))
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		if msg.Type == "playerProgressAck" {
			acks++
		}
	}
	assert.GreaterOrEqual(t, acks, 20)
	assert.Less(t, acks, sent)
}
