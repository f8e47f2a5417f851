package service

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"video_course_backend/internal/config"
	"video_course_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func formFile(t *testing.T, name string, content []byte) *multipart.FileHeader {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest("POST", "/", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(1<<20))
	return req.MultipartForm.File["file"][0]
}

func TestUploadThumbnailLocal(t *testing.T) {
	dir := t.TempDir()
	svc := NewStorageService(&config.StorageConfig{Type: util.StorageLocal, LocalPath: dir})
	ctx := context.Background()

	url, err := svc.UploadThumbnail(ctx, admin, formFile(t, "my cover.png", pngHeader))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "/uploads/thumbnails/"))
	assert.True(t, strings.HasSuffix(url, "-my-cover.png"))

	stored, err := os.ReadFile(filepath.Join(dir, strings.TrimPrefix(url, "/uploads/")))
	require.NoError(t, err)
	assert.Equal(t, pngHeader, stored)
}

func TestUploadThumbnailRejections(t *testing.T) {
	svc := NewStorageService(&config.StorageConfig{Type: util.StorageLocal, LocalPath: t.TempDir()})
	ctx := context.Background()

	_, err := svc.UploadThumbnail(ctx, learner, formFile(t, "cover.png", pngHeader))
	assert.ErrorIs(t, err, util.ErrPermissionDenied)

	_, err = svc.UploadThumbnail(ctx, admin, formFile(t, "cover.exe", pngHeader))
	assert.ErrorIs(t, err, util.ErrInvalidThumbnail)

	// 扩展名正确但内容不是图片
	_, err = svc.UploadThumbnail(ctx, admin, formFile(t, "cover.png", []byte("plain text, not an image")))
	assert.ErrorIs(t, err, util.ErrInvalidThumbnail)
}

func TestStorageFallsBackToLocal(t *testing.T) {
	// 缺少 endpoint 时远程存储初始化失败
	svc := NewStorageService(&config.StorageConfig{Type: util.StorageMinio, LocalPath: t.TempDir()})
	_, ok := svc.Provider.(*LocalStorageProvider)
	assert.True(t, ok)
}
