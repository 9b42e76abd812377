package api

import "time"

// Descriptor file names. A folder holding ArticleFile is an article; a folder
// holding CategoryFile (and no ArticleFile) is a category.
const (
	ArticleFile  = "article.json"
	CategoryFile = "category.json"
)

// CategoryDescriptor is the decoded form of a category.json file.
// Two shapes are accepted on disk:
//
//	{"en": "English title", "pt": "Título"}
//	{"id": "news", "languages": {"en": "News", "pt": "Notícias"}}
//
// In the flat shape an "id" key names the category instead of a language.
type CategoryDescriptor struct {
	// ID is the stable name. Empty means the folder name is used.
	ID string `json:"id,omitempty"`
	// Titles maps a language tag to the display title in that language.
	Titles map[string]string `json:"languages"`
}

// ArticleDescriptor is the decoded form of an article.json file.
type ArticleDescriptor struct {
	// ID is the stable name. Empty means the folder name is used.
	ID     string `json:"id,omitempty"`
	Author string `json:"author,omitempty"`
	// Published and Edited are zero when the descriptor omits them.
	Published time.Time `json:"published,omitempty"`
	Edited    time.Time `json:"edited,omitempty"`
	// Languages maps a language tag to the language-specific record.
	Languages map[string]ArticleLanguage `json:"languages"`
}

// ArticleLanguage holds the fields of one article in one language.
type ArticleLanguage struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description,omitempty"`
	// File is relative to the article folder.
	File string `json:"file" validate:"required"`
	// Keywords is a comma separated list, possibly empty.
	Keywords string `json:"keywords,omitempty"`
}
