package catalog

// Session scopes catalog queries to one language. Values returned by a
// session keep a reference to it, so their follow-up accessors use the
// session's language at the time they are called.
//
// A Session must not be shared between goroutines that change its
// language; open one session per caller instead.
type Session struct {
	c    *Catalog
	lang string
}

// SetLanguage changes the language of subsequent queries.
func (s *Session) SetLanguage(tag string) { s.lang = tag }

// Language returns the current language tag.
func (s *Session) Language() string { return s.lang }

// Catalog returns the catalog the session reads from.
func (s *Session) Catalog() *Catalog { return s.c }
