package ingest

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"

	"github.com/agentic-research/lectern/api"
)

var languagesExpr = jp.C("languages")

// timestampLayouts are tried in order for published/edited.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01-02-2006",
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

func descriptorErr(path, field string, err error) error {
	return &api.DescriptorError{Path: path, Field: field, Err: err}
}

// parseObject decodes raw as a JSON object.
func parseObject(path string, raw []byte) (map[string]any, error) {
	v, err := oj.Parse(raw)
	if err != nil {
		return nil, descriptorErr(path, "", err)
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, descriptorErr(path, "", fmt.Errorf("expected a JSON object, got %T", v))
	}
	return obj, nil
}

// lookupString selects key from obj. Absent and null yield "".
func lookupString(obj map[string]any, key string) (string, error) {
	v := jp.C(key).First(obj)
	if v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("expected a string, got %T", v)
	}
	return strings.TrimSpace(s), nil
}

func optionalString(path string, obj map[string]any, key string) (string, error) {
	s, err := lookupString(obj, key)
	if err != nil {
		return "", descriptorErr(path, key, err)
	}
	return s, nil
}

func optionalTime(path string, obj map[string]any, key string) (time.Time, error) {
	s, err := optionalString(path, obj, key)
	if err != nil || s == "" {
		return time.Time{}, err
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, descriptorErr(path, key, fmt.Errorf("unrecognized timestamp %q", s))
}

// ParseCategory decodes a category.json document.
func ParseCategory(path string, raw []byte) (*api.CategoryDescriptor, error) {
	obj, err := parseObject(path, raw)
	if err != nil {
		return nil, err
	}
	id, err := optionalString(path, obj, "id")
	if err != nil {
		return nil, err
	}

	titles := obj
	prefix := ""
	if v := languagesExpr.First(obj); v != nil {
		m, ok := v.(map[string]any)
		if !ok {
			return nil, descriptorErr(path, "languages", fmt.Errorf("expected an object, got %T", v))
		}
		titles = m
		prefix = "languages."
	}

	d := &api.CategoryDescriptor{ID: id, Titles: make(map[string]string, len(titles))}
	for tag, v := range titles {
		if prefix == "" && tag == "id" {
			continue
		}
		field := prefix + tag
		s, ok := v.(string)
		if !ok {
			return nil, descriptorErr(path, field, fmt.Errorf("expected a string title, got %T", v))
		}
		if err := validate.Var(s, "required"); err != nil {
			return nil, descriptorErr(path, field, errors.New("title is required"))
		}
		d.Titles[tag] = s
	}
	if len(d.Titles) == 0 {
		return nil, descriptorErr(path, "languages", errors.New("at least one language is required"))
	}
	return d, nil
}

// ParseArticle decodes an article.json document.
func ParseArticle(path string, raw []byte) (*api.ArticleDescriptor, error) {
	obj, err := parseObject(path, raw)
	if err != nil {
		return nil, err
	}

	d := &api.ArticleDescriptor{}
	if d.ID, err = optionalString(path, obj, "id"); err != nil {
		return nil, err
	}
	if d.Author, err = optionalString(path, obj, "author"); err != nil {
		return nil, err
	}
	if d.Published, err = optionalTime(path, obj, "published"); err != nil {
		return nil, err
	}
	if d.Edited, err = optionalTime(path, obj, "edited"); err != nil {
		return nil, err
	}
	if d.Edited.IsZero() {
		// misspelling carried by older descriptors
		if d.Edited, err = optionalTime(path, obj, "editeded"); err != nil {
			return nil, err
		}
	}

	v := languagesExpr.First(obj)
	langs, ok := v.(map[string]any)
	if !ok || len(langs) == 0 {
		return nil, descriptorErr(path, "languages", errors.New("at least one language is required"))
	}

	d.Languages = make(map[string]api.ArticleLanguage, len(langs))
	for _, tag := range sortedKeys(langs) {
		field := "languages." + tag
		entry, ok := langs[tag].(map[string]any)
		if !ok {
			return nil, descriptorErr(path, field, fmt.Errorf("expected an object, got %T", langs[tag]))
		}
		var l api.ArticleLanguage
		for key, dst := range map[string]*string{
			"title":       &l.Title,
			"description": &l.Description,
			"file":        &l.File,
			"keywords":    &l.Keywords,
		} {
			if *dst, err = lookupString(entry, key); err != nil {
				return nil, descriptorErr(path, field+"."+key, err)
			}
		}
		if err := validate.Struct(l); err != nil {
			return nil, validationErr(path, field, err)
		}
		d.Languages[tag] = l
	}
	return d, nil
}

// validationErr reports the first failed field of a validator error.
func validationErr(path, prefix string, err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return descriptorErr(path, prefix+"."+fe.Field(), fmt.Errorf("failed %q validation", fe.Tag()))
	}
	return descriptorErr(path, prefix, err)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
