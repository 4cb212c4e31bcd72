package media

import (
	"fmt"
	"strings"
)

// ThumbnailWidth — ширина производного изображения.
type ThumbnailWidth struct {
	Name  string
	Width int
}

// ThumbnailWidths — фиксированный набор размеров превью.
var ThumbnailWidths = []ThumbnailWidth{
	{Name: "small", Width: 480},
	{Name: "medium", Width: 768},
	{Name: "large", Width: 1280},
}

// Кадр через 1.5 с, кадрирование 9:16, автоматические качество и формат.
const thumbnailRecipe = "so_1.5,c_fill,ar_9:16,w_%d,q_auto,f_auto"

// ThumbnailURL строит URL кадра видео в формате jpg заданной ширины.
func ThumbnailURL(deliveryURL, cloudName, publicID string, width int) string {
	return fmt.Sprintf("%s/%s/video/upload/%s/%s.jpg",
		strings.TrimRight(deliveryURL, "/"),
		cloudName,
		fmt.Sprintf(thumbnailRecipe, width),
		strings.TrimLeft(publicID, "/"),
	)
}

// ThumbnailURLs строит набор превью small/medium/large для видео.
func ThumbnailURLs(deliveryURL, cloudName, publicID string) map[string]string {
	urls := make(map[string]string, len(ThumbnailWidths))
	for _, tw := range ThumbnailWidths {
		urls[tw.Name] = ThumbnailURL(deliveryURL, cloudName, publicID, tw.Width)
	}
	return urls
}
