package videohost

import (
	"fmt"
	"regexp"
	"strings"
)

const DefaultEmbedBaseURL = "https://iframe.mediadelivery.net"

// MediaURLs 由 (存储地址, 媒体 ID, 媒体库 ID) 插值得到，不需要网络请求
type MediaURLs struct {
	EmbedURL            string `json:"embedUrl"`
	DirectPlayURL       string `json:"directPlayUrl"`
	HLSPlaylistURL      string `json:"hlsPlaylistUrl"`
	ThumbnailURL        string `json:"thumbnailUrl"`
	PreviewAnimationURL string `json:"previewAnimationUrl"`
}

var (
	embedPattern  = regexp.MustCompile(`/embed/\d+/([a-f0-9-]+)`)
	directPattern = regexp.MustCompile(`/play/\d+/([a-f0-9-]+)`)
	cdnPattern    = regexp.MustCompile(`/([a-f0-9-]+)/(?:thumbnail\.jpg|preview\.webp|playlist\.m3u8)`)

	validPatterns = []*regexp.Regexp{
		regexp.MustCompile(`^https://iframe\.mediadelivery\.net/embed/\d+/[a-f0-9-]+`),
		regexp.MustCompile(`^https://iframe\.mediadelivery\.net/play/\d+/[a-f0-9-]+`),
		regexp.MustCompile(`^https://vz-[a-f0-9-]+\.b-cdn\.net/[a-f0-9-]+`),
	}

	mediaIDPattern = regexp.MustCompile(`^[a-f0-9-]+$`)
)

// BuildURLs 使用默认的播放器域名
func BuildURLs(storageURL, mediaID, libraryID string) MediaURLs {
	return BuildURLsWithBase(DefaultEmbedBaseURL, storageURL, mediaID, libraryID)
}

func BuildURLsWithBase(embedBase, storageURL, mediaID, libraryID string) MediaURLs {
	embedBase = strings.TrimRight(embedBase, "/")
	cdnURL := fmt.Sprintf("%s/%s", strings.TrimRight(storageURL, "/"), mediaID)

	return MediaURLs{
		EmbedURL:            fmt.Sprintf("%s/embed/%s/%s", embedBase, libraryID, mediaID),
		DirectPlayURL:       fmt.Sprintf("%s/play/%s/%s", embedBase, libraryID, mediaID),
		HLSPlaylistURL:      cdnURL + "/playlist.m3u8",
		ThumbnailURL:        cdnURL + "/thumbnail.jpg",
		PreviewAnimationURL: cdnURL + "/preview.webp",
	}
}

// ExtractMediaID 从播放器、直链或 CDN 地址中提取媒体 ID
func ExtractMediaID(url string) (string, bool) {
	for _, p := range []*regexp.Regexp{embedPattern, directPattern, cdnPattern} {
		if m := p.FindStringSubmatch(url); m != nil {
			return m[1], true
		}
	}
	return "", false
}

// ValidateURL 判断是否为托管平台的合法地址
func ValidateURL(url string) bool {
	url = strings.TrimSpace(url)
	for _, p := range validPatterns {
		if p.MatchString(url) {
			return true
		}
	}
	return false
}

// NormalizeMediaID 接受裸 ID 或完整地址，返回裸 ID
func NormalizeMediaID(ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if mediaIDPattern.MatchString(ref) {
		return ref, true
	}
	if ValidateURL(ref) {
		return ExtractMediaID(ref)
	}
	return "", false
}
