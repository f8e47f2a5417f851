package configwatcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
	"video_course_backend/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func configBody(dir, origin string) string {
	return `
database:
  driver: sqlite
jwt:
  secret: watcher-secret
storage:
  local_path: ` + filepath.Join(dir, "uploads") + `
cors:
  allowed_origins:
    - ` + origin + `
`
}

func TestWatchConfigReloads(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte(configBody(dir, "http://a.example.com")), 0644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan *config.Config, 4)
	done := make(chan error, 1)
	go func() {
		done <- WatchConfig(ctx, file, func(cfg *config.Config) { reloaded <- cfg })
	}()

	// 等待监听建立
	time.Sleep(200 * time.Millisecond)
	require.NoError(t, os.WriteFile(file, []byte(configBody(dir, "http://b.example.com")), 0644))

	select {
	case cfg := <-reloaded:
		assert.Equal(t, []string{"http://b.example.com"}, cfg.CORS.AllowedOrigins)
	case <-time.After(5 * time.Second):
		t.Fatal("config was not reloaded")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatchConfigMissingDir(t *testing.T) {
	err := WatchConfig(context.Background(), filepath.Join(t.TempDir(), "missing", "config.yaml"), func(*config.Config) {})
	assert.Error(t, err)
}
