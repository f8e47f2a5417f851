package videohost

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientGetVideo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("AccessKey"))
		if r.URL.Path == "/library/42/videos/abc" {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"guid":"abc","title":"Intro","length":93,"status":4,"videoLibraryId":42}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret", time.Second)

	v, err := c.GetVideo(context.Background(), "42", "abc")
	require.NoError(t, err)
	assert.Equal(t, "Intro", v.Title)
	assert.Equal(t, float64(93), v.Length)
	assert.NotEmpty(t, v.Raw)

	_, err = c.GetVideo(context.Background(), "42", "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
