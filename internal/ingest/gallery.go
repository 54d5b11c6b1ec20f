package ingest

import (
	"regexp"
	"strings"

	"github.com/abrezinsky/moherun/internal/models"
)

var (
	galleryURLKeys       = []string{"Url", "url", "URL", "Link", "link"}
	galleryNameKeys      = []string{"Name", "name", "NAME", "Runner", "runner"}
	galleryTimestampKeys = []string{"Timestamp", "Date", "date", "time"}

	galleryNamePattern = regexp.MustCompile(`(?i)name|runner|队员`)
	videoMarkers       = []string{".mp4", ".mov", ".webm", "f_auto", "e_accelerate"}
)

// ParseGallery turns media-tab rows into gallery items, newest first. Rows without an
// http or base64 URL are dropped.
func ParseGallery(rows []models.RawRow) []models.GalleryItem {
	items := make([]models.GalleryItem, 0, len(rows))
	for _, row := range rows {
		url := firstCell(row, galleryURLKeys)
		if url == "" {
			for _, h := range row.Headers {
				if v := strings.TrimSpace(row.Cells[h]); strings.HasPrefix(v, "http") {
					url = v
					break
				}
			}
		}
		if url == "" || !(strings.Contains(url, "http") || strings.Contains(url, "base64")) {
			continue
		}

		name := firstCell(row, galleryNameKeys)
		if name == "" {
			for _, h := range row.Headers {
				if galleryNamePattern.MatchString(h) {
					name = strings.TrimSpace(row.Cells[h])
					break
				}
			}
		}
		if name == "" {
			name = "Runner"
		}

		items = append(items, models.GalleryItem{
			Name:      name,
			URL:       url,
			Timestamp: firstCell(row, galleryTimestampKeys),
			IsVideo:   IsVideoURL(url),
		})
	}

	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
	return items
}

// IsVideoURL reports whether url points at a video upload.
func IsVideoURL(url string) bool {
	lower := strings.ToLower(url)
	for _, m := range videoMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

func firstCell(row models.RawRow, keys []string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(row.Cells[k]); v != "" {
			return v
		}
	}
	return ""
}
