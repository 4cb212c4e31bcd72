package schema

import (
	"errors"
	"regexp"
	"sort"

	"github.com/bigkaa/sitecms/internal/domain/access"
	"github.com/bigkaa/sitecms/internal/domain/model"
)

// Слаги коллекций.
const (
	CollectionPages        = "pages"
	CollectionBlocks       = "blocks"
	CollectionGalleries    = "galleries"
	CollectionTestimonials = "testimonials"
	CollectionSEO          = "seo"
	CollectionSiteSettings = "site-settings"
	CollectionReals        = "reals"
)

var (
	slugRe  = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
	colorRe = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)
	pathRe  = regexp.MustCompile(`^/[a-zA-Z0-9/_\-.]*$`)
)

// IsValidSlug проверяет формат слага (строчные латинские буквы, цифры, дефисы).
// Тот же формат используется для ключа сайта.
func IsValidSlug(s string) bool {
	return slugRe.MatchString(s)
}

func validateSlug(value any, _ map[string]any) error {
	if s, _ := value.(string); !IsValidSlug(s) {
		return errors.New("слаг может содержать только строчные латинские буквы, цифры и дефисы")
	}
	return nil
}

func validateColor(value any, _ map[string]any) error {
	if s, _ := value.(string); !colorRe.MatchString(s) {
		return errors.New("ожидается цвет в формате #RRGGBB")
	}
	return nil
}

func validatePath(value any, _ map[string]any) error {
	if s, _ := value.(string); !pathRe.MatchString(s) {
		return errors.New("путь должен начинаться с /")
	}
	return nil
}

// equals возвращает условие «поле name равно value».
func equals(name, value string) Condition {
	return func(data map[string]any) bool {
		v, _ := data[name].(string)
		return v == value
	}
}

func ptr(f float64) *float64 { return &f }

// --- Общие поля ---

func titleField() Field {
	return Field{Name: "title", Type: TypeText, Label: "Заголовок", Required: true, MaxLength: 200}
}

func slugField() Field {
	return Field{Name: "slug", Type: TypeText, Label: "Слаг", Required: true, MaxLength: 120, Validate: validateSlug}
}

func statusField() Field {
	return Field{
		Name:         "status",
		Type:         TypeSelect,
		Label:        "Статус",
		Required:     true,
		Options:      []string{model.StatusDraft, model.StatusPublished},
		DefaultValue: model.StatusDraft,
	}
}

func orderField() Field {
	return Field{Name: "order", Type: TypeNumber, Label: "Порядок", Min: ptr(0)}
}

func seoGroup() Field {
	return Field{
		Name:  "seo",
		Type:  TypeGroup,
		Label: "SEO",
		Fields: []Field{
			{Name: "metaTitle", Type: TypeText, MaxLength: 60},
			{Name: "metaDescription", Type: TypeTextarea, MaxLength: 160},
			{Name: "ogImage", Type: TypeURL},
			{Name: "noIndex", Type: TypeCheckbox},
		},
	}
}

// --- Блоки страниц ---

func layoutBlocks() []Block {
	return []Block{
		{
			Slug:  "hero",
			Label: "Первый экран",
			Fields: []Field{
				{Name: "heading", Type: TypeText, Required: true, MaxLength: 120},
				{Name: "subheading", Type: TypeTextarea, MaxLength: 300},
				{Name: "backgroundType", Type: TypeSelect, Options: []string{"image", "video"}, DefaultValue: "image"},
				{Name: "imageUrl", Type: TypeURL, Condition: equals("backgroundType", "image"), Conditional: true},
				{Name: "realId", Type: TypeText, Required: true, Condition: equals("backgroundType", "video"), Conditional: true},
			},
		},
		{
			Slug:  "content",
			Label: "Текст",
			Fields: []Field{
				{Name: "body", Type: TypeRichText, Required: true},
			},
		},
		{
			Slug:  "gallery",
			Label: "Галерея",
			Fields: []Field{
				{Name: "galleryId", Type: TypeText, Required: true},
			},
		},
		{
			Slug:  "testimonials",
			Label: "Отзывы",
			Fields: []Field{
				{Name: "heading", Type: TypeText, MaxLength: 120},
				{Name: "featuredOnly", Type: TypeCheckbox},
				{Name: "limit", Type: TypeNumber, Min: ptr(1), Max: ptr(20)},
			},
		},
		{
			Slug:  "cta",
			Label: "Призыв к действию",
			Fields: []Field{
				{Name: "label", Type: TypeText, Required: true, MaxLength: 60},
				{Name: "url", Type: TypeURL, Required: true},
				{Name: "style", Type: TypeSelect, Options: []string{"primary", "secondary"}},
			},
		},
		{
			Slug:  "reals",
			Label: "Видео",
			Fields: []Field{
				{Name: "heading", Type: TypeText, MaxLength: 120},
				{Name: "featuredOnly", Type: TypeCheckbox},
				{Name: "limit", Type: TypeNumber, Min: ptr(1), Max: ptr(24)},
			},
		},
	}
}

// --- Коллекции ---

// Pages — страницы сайта.
func Pages() *Collection {
	return &Collection{
		Slug:        CollectionPages,
		Label:       "Страницы",
		UseAsTitle:  "title",
		SiteScoped:  true,
		DefaultSort: "order",
		Fields: []Field{
			titleField(),
			slugField(),
			statusField(),
			{Name: "publishedAt", Type: TypeDate, Label: "Дата публикации"},
			orderField(),
			{Name: "layout", Type: TypeBlocks, Label: "Макет", Blocks: layoutBlocks(), MaxRows: 50},
			seoGroup(),
		},
		Access: access.Policy{
			Read:   access.PublishedOrAuthenticated(),
			Create: access.Roles(access.RoleEditor),
			Update: access.Roles(access.RoleEditor),
			Delete: access.AdminOnly(),
		},
	}
}

// Blocks — переиспользуемые блоки.
func Blocks() *Collection {
	blockTypes := []string{"hero", "content", "cta"}
	return &Collection{
		Slug:       CollectionBlocks,
		Label:      "Блоки",
		UseAsTitle: "name",
		SiteScoped: true,
		Fields: []Field{
			{Name: "name", Type: TypeText, Label: "Название", Required: true, MaxLength: 120},
			{Name: "blockType", Type: TypeSelect, Label: "Тип", Required: true, Options: blockTypes},
			{
				Name:        "hero",
				Type:        TypeGroup,
				Condition:   equals("blockType", "hero"),
				Conditional: true,
				Required:    true,
				Fields: []Field{
					{Name: "heading", Type: TypeText, Required: true, MaxLength: 120},
					{Name: "subheading", Type: TypeTextarea, MaxLength: 300},
					{Name: "imageUrl", Type: TypeURL},
				},
			},
			{
				Name:        "content",
				Type:        TypeGroup,
				Condition:   equals("blockType", "content"),
				Conditional: true,
				Required:    true,
				Fields: []Field{
					{Name: "body", Type: TypeRichText, Required: true},
				},
			},
			{
				Name:        "cta",
				Type:        TypeGroup,
				Condition:   equals("blockType", "cta"),
				Conditional: true,
				Required:    true,
				Fields: []Field{
					{Name: "label", Type: TypeText, Required: true, MaxLength: 60},
					{Name: "url", Type: TypeURL, Required: true},
				},
			},
		},
		Access: access.Policy{
			Read:   access.PublicRead(),
			Create: access.Roles(access.RoleEditor, access.RoleDesigner),
			Update: access.Roles(access.RoleEditor, access.RoleDesigner),
			Delete: access.AdminOnly(),
		},
	}
}

// Galleries — галереи изображений.
func Galleries() *Collection {
	return &Collection{
		Slug:       CollectionGalleries,
		Label:      "Галереи",
		UseAsTitle: "title",
		SiteScoped: true,
		Fields: []Field{
			titleField(),
			slugField(),
			{
				Name:    "images",
				Type:    TypeArray,
				Label:   "Изображения",
				MinRows: 1,
				MaxRows: 100,
				Fields: []Field{
					{Name: "url", Type: TypeURL, Required: true},
					{Name: "alt", Type: TypeText, Required: true, MaxLength: 200},
					{Name: "caption", Type: TypeText, MaxLength: 300},
				},
			},
		},
		Access: access.Policy{
			Read:   access.PublicRead(),
			Create: access.Roles(access.RoleDesigner),
			Update: access.Roles(access.RoleDesigner),
			Delete: access.AdminOnly(),
		},
	}
}

// Testimonials — отзывы клиентов.
func Testimonials() *Collection {
	return &Collection{
		Slug:        CollectionTestimonials,
		Label:       "Отзывы",
		UseAsTitle:  "author",
		SiteScoped:  true,
		DefaultSort: "order",
		Fields: []Field{
			{Name: "author", Type: TypeText, Label: "Автор", Required: true, MaxLength: 120},
			{Name: "role", Type: TypeText, MaxLength: 120},
			{Name: "company", Type: TypeText, MaxLength: 120},
			{Name: "quote", Type: TypeTextarea, Required: true, MaxLength: 1000},
			{Name: "rating", Type: TypeNumber, Min: ptr(1), Max: ptr(5)},
			{Name: "featured", Type: TypeCheckbox, DefaultValue: false},
			orderField(),
		},
		Access: access.Policy{
			Read:   access.PublicRead(),
			Create: access.Roles(access.RoleEditor),
			Update: access.Roles(access.RoleEditor),
			Delete: access.AdminOnly(),
		},
	}
}

// SEO — SEO-настройки по пути страницы.
func SEO() *Collection {
	return &Collection{
		Slug:       CollectionSEO,
		Label:      "SEO",
		UseAsTitle: "path",
		SiteScoped: true,
		Fields: []Field{
			{Name: "path", Type: TypeText, Label: "Путь", Required: true, MaxLength: 300, Validate: validatePath},
			{Name: "metaTitle", Type: TypeText, Required: true, MaxLength: 60},
			{Name: "metaDescription", Type: TypeTextarea, MaxLength: 160},
			{Name: "ogImage", Type: TypeURL},
			{Name: "noIndex", Type: TypeCheckbox, DefaultValue: false},
		},
		Access: access.Policy{
			Read:   access.PublicRead(),
			Create: access.Roles(access.RoleEditor),
			Update: access.Roles(access.RoleEditor),
			Delete: access.AdminOnly(),
		},
	}
}

// SiteSettings — настройки сайта, один документ на сайт.
func SiteSettings() *Collection {
	return &Collection{
		Slug:          CollectionSiteSettings,
		Label:         "Настройки сайта",
		UseAsTitle:    "siteName",
		SiteScoped:    true,
		SinglePerSite: true,
		Fields: []Field{
			{Name: "siteName", Type: TypeText, Label: "Название сайта", Required: true, MaxLength: 120},
			{Name: "logoUrl", Type: TypeURL},
			{Name: "primaryColor", Type: TypeText, Validate: validateColor},
			{Name: "contactEmail", Type: TypeEmail},
			{
				Name:    "social",
				Type:    TypeArray,
				MaxRows: 20,
				Fields: []Field{
					{Name: "network", Type: TypeSelect, Required: true, Options: []string{"instagram", "tiktok", "youtube", "facebook", "linkedin", "x"}},
					{Name: "url", Type: TypeURL, Required: true},
				},
			},
		},
		Access: access.Policy{
			Read:   access.PublicRead(),
			Create: access.AdminOnly(),
			Update: access.AdminOnly(),
			Delete: access.AdminOnly(),
		},
	}
}

// Reals — короткие видео, привязанные к ассету медиа-хранилища по тегам.
// Производные поля заполняет только система.
func Reals() *Collection {
	return &Collection{
		Slug:        CollectionReals,
		Label:       "Reals",
		UseAsTitle:  "title",
		SiteScoped:  true,
		DefaultSort: "order",
		Fields: []Field{
			titleField(),
			slugField(),
			{Name: "headline", Type: TypeText, MaxLength: 200},
			{Name: "description", Type: TypeTextarea, MaxLength: 2000},
			statusField(),
			// опубликованный ролик обязан иметь дату публикации
			{Name: "publishedAt", Type: TypeDate, Required: true, Condition: equals("status", model.StatusPublished), Conditional: true},
			{Name: "featured", Type: TypeCheckbox, DefaultValue: false},
			orderField(),
			{Name: model.FieldTags, Type: TypeText, Label: "Теги (через запятую)", MaxLength: 500},
			{Name: model.FieldRegenerate, Type: TypeCheckbox, Label: "Пересчитать", DefaultValue: false},

			{Name: model.FieldPublicID, Type: TypeText, ReadOnly: true},
			{Name: model.FieldPosterID, Type: TypeText, ReadOnly: true},
			{
				Name:     model.FieldThumbnails,
				Type:     TypeGroup,
				ReadOnly: true,
				Fields: []Field{
					{Name: model.SizeSmall, Type: TypeURL},
					{Name: model.SizeMedium, Type: TypeURL},
					{Name: model.SizeLarge, Type: TypeURL},
				},
			},
			{
				Name:     model.FieldProcessingStatus,
				Type:     TypeSelect,
				ReadOnly: true,
				Options: []string{
					model.ProcessingIdle, model.ProcessingProcessing,
					model.ProcessingComplete, model.ProcessingError,
				},
			},
			{Name: model.FieldProcessingError, Type: TypeTextarea, ReadOnly: true},
			{Name: model.FieldProcessedAt, Type: TypeDate, ReadOnly: true},
		},
		Access: access.Policy{
			Read:   access.PublishedOrAuthenticated(),
			Create: access.Roles(access.RoleEditor),
			Update: access.Roles(access.RoleEditor),
			Delete: access.AdminOnly(),
		},
	}
}

// --- Реестр ---

// Registry — набор коллекций по слагу.
type Registry struct {
	collections map[string]*Collection
}

// NewRegistry создаёт реестр из коллекций.
func NewRegistry(cols ...*Collection) *Registry {
	r := &Registry{collections: make(map[string]*Collection, len(cols))}
	for _, c := range cols {
		r.collections[c.Slug] = c
	}
	return r
}

// Default возвращает реестр всех коллекций CMS.
func Default() *Registry {
	return NewRegistry(
		Pages(),
		Blocks(),
		Galleries(),
		Testimonials(),
		SEO(),
		SiteSettings(),
		Reals(),
	)
}

// Get возвращает коллекцию по слагу.
func (r *Registry) Get(slug string) (*Collection, bool) {
	c, ok := r.collections[slug]
	return c, ok
}

// All возвращает коллекции, отсортированные по слагу.
func (r *Registry) All() []*Collection {
	out := make([]*Collection, 0, len(r.collections))
	for _, c := range r.collections {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out
}
