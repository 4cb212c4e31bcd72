// Пакет media — клиент поискового API медиа-хранилища (Cloudinary)
// и построение URL производных изображений.
// Поиск идёт через Admin API SDK: POST {api}/v1_1/{cloud}/resources/search, basic auth key:secret.
package media

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/admin"
	"github.com/cloudinary/cloudinary-go/v2/api/admin/search"
	"github.com/cloudinary/cloudinary-go/v2/config"
)

// ErrUnavailable — медиа-хранилище недоступно или вернуло неожиданный ответ.
var ErrUnavailable = errors.New("медиа-хранилище недоступно")

// SortClause — элемент sort_by: {"created_at": "desc"}.
type SortClause map[string]string

// SearchRequest — параметры поиска ресурсов.
type SearchRequest struct {
	Expression string
	SortBy     []SortClause
	MaxResults int
}

// Resource — найденный ресурс.
type Resource struct {
	PublicID     string
	AssetID      string
	ResourceType string
	Format       string
	SecureURL    string
	Tags         []string
	CreatedAt    time.Time
	Width        int
	Height       int
}

// SearchResponse — результат поиска ресурсов.
type SearchResponse struct {
	TotalCount int
	Resources  []Resource
	NextCursor string
}

// Config — параметры подключения к медиа-хранилищу.
type Config struct {
	// CloudName — имя облака в URL API и доставки
	CloudName string
	APIKey    string
	APISecret string
	// APIURL — базовый URL административного API
	APIURL string
	// DeliveryURL — базовый URL доставки (CDN)
	DeliveryURL string
	// Timeout — таймаут запросов к API (округляется до секунд)
	Timeout time.Duration
}

// Client — клиент поискового API медиа-хранилища.
type Client struct {
	cld    *cloudinary.Cloudinary
	cfg    Config
	logger *slog.Logger
}

// New создаёт клиент медиа-хранилища.
func New(cfg Config, logger *slog.Logger) (*Client, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")
	cfg.DeliveryURL = strings.TrimRight(cfg.DeliveryURL, "/")

	cldCfg, err := config.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("конфигурация Cloudinary: %w", err)
	}
	if cfg.APIURL != "" {
		cldCfg.API.UploadPrefix = cfg.APIURL
	}
	cldCfg.API.Timeout = max(int64(timeout/time.Second), 1)

	cld, err := cloudinary.NewFromConfiguration(*cldCfg)
	if err != nil {
		return nil, fmt.Errorf("создание клиента Cloudinary: %w", err)
	}

	return &Client{
		cld:    cld,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "media_client")),
	}, nil
}

// CloudName возвращает имя облака.
func (c *Client) CloudName() string {
	return c.cfg.CloudName
}

// DeliveryURL возвращает базовый URL доставки.
func (c *Client) DeliveryURL() string {
	return c.cfg.DeliveryURL
}

// Search выполняет поиск ресурсов по выражению.
// Ошибки транспорта, ответы API с ошибкой и некорректный JSON оборачиваются в ErrUnavailable.
func (c *Client) Search(ctx context.Context, sr SearchRequest) (*SearchResponse, error) {
	query := search.Query{
		Expression: sr.Expression,
		MaxResults: sr.MaxResults,
	}
	for _, clause := range sr.SortBy {
		field := search.SortByField{}
		for name, dir := range clause {
			field[name] = search.Direction(dir)
		}
		query.SortBy = append(query.SortBy, field)
	}

	start := time.Now()
	res, err := c.cld.Admin.Search(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: запрос поиска: %v", ErrUnavailable, err)
	}

	c.logger.Debug("Поиск ресурсов выполнен",
		slog.String("expression", sr.Expression),
		slog.Int("total", res.TotalCount),
		slog.Duration("duration", time.Since(start)),
	)

	if res.Error.Message != "" {
		return nil, fmt.Errorf("%w: поиск отклонён: %s", ErrUnavailable, res.Error.Message)
	}

	return &SearchResponse{
		TotalCount: res.TotalCount,
		Resources:  mapAssets(res.Assets),
		NextCursor: res.NextCursor,
	}, nil
}

func mapAssets(assets []admin.SearchAsset) []Resource {
	resources := make([]Resource, 0, len(assets))
	for _, a := range assets {
		resources = append(resources, Resource{
			PublicID:     a.PublicID,
			AssetID:      a.AssetID,
			ResourceType: a.ResourceType,
			Format:       a.Format,
			SecureURL:    a.SecureURL,
			Tags:         a.Tags,
			CreatedAt:    a.CreatedAt,
			Width:        a.Width,
			Height:       a.Height,
		})
	}
	return resources
}
