// Пакет schema — декларативные схемы коллекций CMS и валидация документов.
// Схема описывает поля (тип, обязательность, варианты, условия видимости,
// пользовательские валидаторы), политику доступа и признаки коллекции.
// Значения полей приходят из JSON, поэтому числа — float64, объекты — map[string]any.
package schema

import (
	"fmt"
	"net/mail"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/bigkaa/sitecms/internal/domain/access"
)

// FieldType — тип поля.
type FieldType string

// Типы полей.
const (
	TypeText     FieldType = "text"
	TypeTextarea FieldType = "textarea"
	TypeRichText FieldType = "richText"
	TypeNumber   FieldType = "number"
	TypeCheckbox FieldType = "checkbox"
	TypeSelect   FieldType = "select"
	TypeDate     FieldType = "date"
	TypeEmail    FieldType = "email"
	TypeURL      FieldType = "url"
	TypeGroup    FieldType = "group"
	TypeArray    FieldType = "array"
	TypeBlocks   FieldType = "blocks"
)

// Condition — условие видимости поля. data — данные уровня, на котором объявлено поле.
type Condition func(data map[string]any) bool

// Validator — пользовательская проверка значения поля.
type Validator func(value any, data map[string]any) error

// Field — описание поля коллекции.
type Field struct {
	Name  string    `json:"name"`
	Type  FieldType `json:"type"`
	Label string    `json:"label,omitempty"`

	Required bool `json:"required,omitempty"`
	// ReadOnly — поле пишет только система (производные поля)
	ReadOnly bool `json:"readOnly,omitempty"`

	Options   []string `json:"options,omitempty"`
	Min       *float64 `json:"min,omitempty"`
	Max       *float64 `json:"max,omitempty"`
	MaxLength int      `json:"maxLength,omitempty"`
	MinRows   int      `json:"minRows,omitempty"`
	MaxRows   int      `json:"maxRows,omitempty"`

	DefaultValue any `json:"defaultValue,omitempty"`

	// Fields — вложенные поля (group, array)
	Fields []Field `json:"fields,omitempty"`
	// Blocks — допустимые блоки (blocks)
	Blocks []Block `json:"blocks,omitempty"`

	Condition Condition `json:"-"`
	Validate  Validator `json:"-"`
	// Conditional — признак наличия Condition (для описания схемы в API)
	Conditional bool `json:"conditional,omitempty"`
}

// Block — тип блока в поле blocks. Блок хранится как объект с ключом blockType.
type Block struct {
	Slug   string  `json:"slug"`
	Label  string  `json:"label,omitempty"`
	Fields []Field `json:"fields"`
}

// BlockTypeKey — ключ типа блока внутри значения поля blocks.
const BlockTypeKey = "blockType"

// Collection — схема коллекции.
type Collection struct {
	Slug       string `json:"slug"`
	Label      string `json:"label"`
	UseAsTitle string `json:"useAsTitle,omitempty"`
	// SiteScoped — документы принадлежат сайту (site обязателен)
	SiteScoped bool `json:"siteScoped"`
	// SinglePerSite — не более одного документа на сайт
	SinglePerSite bool `json:"singlePerSite,omitempty"`
	// DefaultSort — поле сортировки списка (с префиксом "-" — по убыванию)
	DefaultSort string  `json:"defaultSort,omitempty"`
	Fields      []Field `json:"fields"`

	Access access.Policy `json:"-"`
}

// HasField проверяет наличие поля верхнего уровня.
func (c *Collection) HasField(name string) bool {
	_, ok := c.field(name)
	return ok
}

func (c *Collection) field(name string) (*Field, bool) {
	for i := range c.Fields {
		if c.Fields[i].Name == name {
			return &c.Fields[i], true
		}
	}
	return nil, false
}

// HasStatus сообщает, есть ли у коллекции поле публикации status.
func (c *Collection) HasStatus() bool {
	return c.HasField("status")
}

// --- Ошибки валидации ---

// FieldError — ошибка одного поля.
type FieldError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// ValidationErrors — набор ошибок валидации документа.
type ValidationErrors []FieldError

func (e ValidationErrors) Error() string {
	parts := make([]string, 0, len(e))
	for _, fe := range e {
		parts = append(parts, fe.Path+": "+fe.Message)
	}
	return strings.Join(parts, "; ")
}

// --- Проверки записи ---

// CheckWritable проверяет ключи входных данных: неизвестные поля запрещены,
// поля только для чтения разрешены лишь при allowReadOnly.
func (c *Collection) CheckWritable(input map[string]any, allowReadOnly bool) error {
	var errs ValidationErrors
	keys := sortedKeys(input)
	for _, k := range keys {
		f, ok := c.field(k)
		if !ok {
			errs = append(errs, FieldError{Path: k, Message: "неизвестное поле"})
			continue
		}
		if f.ReadOnly && !allowReadOnly {
			errs = append(errs, FieldError{Path: k, Message: "поле только для чтения"})
		}
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ApplyDefaults заполняет отсутствующие поля верхнего уровня значениями по умолчанию.
func (c *Collection) ApplyDefaults(data map[string]any) {
	for _, f := range c.Fields {
		if f.DefaultValue == nil {
			continue
		}
		if _, ok := data[f.Name]; !ok {
			data[f.Name] = f.DefaultValue
		}
	}
}

// Validate проверяет документ целиком: обязательность, типы, варианты,
// пользовательские валидаторы. Скрытые условием поля не проверяются.
func (c *Collection) Validate(data map[string]any) error {
	errs := validateFields(c.Fields, data, "")
	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validateFields(fields []Field, data map[string]any, prefix string) ValidationErrors {
	var errs ValidationErrors
	for i := range fields {
		f := &fields[i]
		path := joinPath(prefix, f.Name)

		if f.Condition != nil && !f.Condition(data) {
			continue
		}

		value, present := data[f.Name]
		if !present || value == nil || value == "" {
			if f.Required {
				errs = append(errs, FieldError{Path: path, Message: "обязательное поле"})
			}
			continue
		}

		if fe := validateValue(f, value, path); len(fe) > 0 {
			errs = append(errs, fe...)
			continue
		}

		if f.Validate != nil {
			if err := f.Validate(value, data); err != nil {
				errs = append(errs, FieldError{Path: path, Message: err.Error()})
			}
		}
	}
	return errs
}

//nolint:gocyclo // один switch по типам полей
func validateValue(f *Field, value any, path string) ValidationErrors {
	fail := func(format string, args ...any) ValidationErrors {
		return ValidationErrors{{Path: path, Message: fmt.Sprintf(format, args...)}}
	}

	switch f.Type {
	case TypeText, TypeTextarea, TypeRichText:
		s, ok := value.(string)
		if !ok {
			return fail("ожидается строка")
		}
		if f.MaxLength > 0 && len([]rune(s)) > f.MaxLength {
			return fail("длина превышает %d символов", f.MaxLength)
		}

	case TypeNumber:
		n, ok := toFloat(value)
		if !ok {
			return fail("ожидается число")
		}
		if f.Min != nil && n < *f.Min {
			return fail("значение меньше %v", *f.Min)
		}
		if f.Max != nil && n > *f.Max {
			return fail("значение больше %v", *f.Max)
		}

	case TypeCheckbox:
		if _, ok := value.(bool); !ok {
			return fail("ожидается true или false")
		}

	case TypeSelect:
		s, ok := value.(string)
		if !ok {
			return fail("ожидается строка")
		}
		if !contains(f.Options, s) {
			return fail("недопустимое значение %q, допустимые: %s", s, strings.Join(f.Options, ", "))
		}

	case TypeDate:
		s, ok := value.(string)
		if !ok || !isDate(s) {
			return fail("ожидается дата в формате RFC 3339 или YYYY-MM-DD")
		}

	case TypeEmail:
		s, ok := value.(string)
		if !ok {
			return fail("ожидается строка")
		}
		if _, err := mail.ParseAddress(s); err != nil {
			return fail("некорректный email")
		}

	case TypeURL:
		s, ok := value.(string)
		if !ok || !isHTTPURL(s) {
			return fail("ожидается абсолютный http(s) URL")
		}

	case TypeGroup:
		m, ok := value.(map[string]any)
		if !ok {
			return fail("ожидается объект")
		}
		return validateFields(f.Fields, m, path)

	case TypeArray:
		rows, ok := value.([]any)
		if !ok {
			return fail("ожидается массив")
		}
		if fe := checkRows(f, len(rows), path); fe != nil {
			return fe
		}
		var errs ValidationErrors
		for i, row := range rows {
			rowPath := fmt.Sprintf("%s.%d", path, i)
			m, ok := row.(map[string]any)
			if !ok {
				errs = append(errs, FieldError{Path: rowPath, Message: "ожидается объект"})
				continue
			}
			errs = append(errs, validateFields(f.Fields, m, rowPath)...)
		}
		return errs

	case TypeBlocks:
		rows, ok := value.([]any)
		if !ok {
			return fail("ожидается массив блоков")
		}
		if fe := checkRows(f, len(rows), path); fe != nil {
			return fe
		}
		var errs ValidationErrors
		for i, row := range rows {
			rowPath := fmt.Sprintf("%s.%d", path, i)
			m, ok := row.(map[string]any)
			if !ok {
				errs = append(errs, FieldError{Path: rowPath, Message: "ожидается объект блока"})
				continue
			}
			blockType, _ := m[BlockTypeKey].(string)
			block, ok := findBlock(f.Blocks, blockType)
			if !ok {
				errs = append(errs, FieldError{Path: rowPath + "." + BlockTypeKey, Message: fmt.Sprintf("неизвестный тип блока %q", blockType)})
				continue
			}
			errs = append(errs, validateFields(block.Fields, m, rowPath)...)
			for _, k := range sortedKeys(m) {
				if k == BlockTypeKey || k == "id" {
					continue
				}
				if !hasField(block.Fields, k) {
					errs = append(errs, FieldError{Path: rowPath + "." + k, Message: "неизвестное поле блока"})
				}
			}
		}
		return errs

	default:
		return fail("неизвестный тип поля %q", f.Type)
	}

	return nil
}

func checkRows(f *Field, n int, path string) ValidationErrors {
	if f.MinRows > 0 && n < f.MinRows {
		return ValidationErrors{{Path: path, Message: fmt.Sprintf("требуется не менее %d элементов", f.MinRows)}}
	}
	if f.MaxRows > 0 && n > f.MaxRows {
		return ValidationErrors{{Path: path, Message: fmt.Sprintf("допускается не более %d элементов", f.MaxRows)}}
	}
	return nil
}

// --- Вспомогательные функции ---

func joinPath(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	default:
		return 0, false
	}
}

func isDate(s string) bool {
	if _, err := time.Parse(time.RFC3339, s); err == nil {
		return true
	}
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}

func isHTTPURL(s string) bool {
	u, err := url.ParseRequestURI(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func contains(items []string, s string) bool {
	for _, it := range items {
		if it == s {
			return true
		}
	}
	return false
}

func hasField(fields []Field, name string) bool {
	for _, f := range fields {
		if f.Name == name {
			return true
		}
	}
	return false
}

func findBlock(blocks []Block, slug string) (*Block, bool) {
	for i := range blocks {
		if blocks[i].Slug == slug {
			return &blocks[i], true
		}
	}
	return nil, false
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
