package view

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/diewo77/go-bloodbank/auth"
	"github.com/diewo77/go-bloodbank/internal/models"
)

//go:embed templates/*.html templates/partials/*.html
var files embed.FS

type page struct {
	t     *template.Template
	entry string
}

var (
	tplCache = struct {
		sync.RWMutex
		m map[string]page
	}{m: map[string]page{}}

	// permission resolvers can be set by the host app to allow templates to check auth
	canProfileResolver func(*http.Request, string, string) bool
	isAdminResolver    func(*http.Request) bool
)

// SetCanProfileResolver sets a callback used by templates to check role permissions.
func SetCanProfileResolver(f func(*http.Request, string, string) bool) {
	if f != nil {
		canProfileResolver = f
	}
}

// SetIsAdminResolver sets a callback used by templates to detect admins.
func SetIsAdminResolver(f func(*http.Request) bool) {
	if f != nil {
		isAdminResolver = f
	}
}

// Funcs returns the template helpers bound to r.
func Funcs(r *http.Request) template.FuncMap {
	return template.FuncMap{
		// can checks profile-level permission (resource, action) -> bool
		"can": func(resource string, action string) bool {
			if canProfileResolver == nil || r == nil {
				return false
			}
			return canProfileResolver(r, resource, action)
		},
		"isAdmin": func() bool {
			if isAdminResolver == nil || r == nil {
				return false
			}
			return isAdminResolver(r)
		},
		"year": func() int { return time.Now().Year() },
		"add":  func(a, b int) int { return a + b },
		"ml":   FormatMl,
		"date": FormatDate,
		"hours": func(h float64) string {
			if h <= 0 {
				return "-"
			}
			return fmt.Sprintf("%.1f h", h)
		},
		"title": func(s any) string {
			v := strings.ReplaceAll(fmt.Sprint(s), "_", " ")
			if v == "" {
				return v
			}
			return strings.ToUpper(v[:1]) + v[1:]
		},
		// dict creates a map from key-value pairs for passing to sub-templates.
		// Usage: {{ template "partial" (dict "Key1" val1 "Key2" val2) }}
		"dict": func(values ...any) map[string]any {
			if len(values)%2 != 0 {
				return nil
			}
			m := make(map[string]any, len(values)/2)
			for i := 0; i < len(values); i += 2 {
				key, ok := values[i].(string)
				if !ok {
					continue
				}
				m[key] = values[i+1]
			}
			return m
		},
	}
}

// FormatMl renders a volume, switching to litres from 1000 ml.
func FormatMl(ml int) string {
	if ml >= 1000 || ml <= -1000 {
		return fmt.Sprintf("%.1f L", float64(ml)/1000)
	}
	return fmt.Sprintf("%d ml", ml)
}

// FormatDate renders a timestamp as 2 Jan 2006, or "-" when unknown.
func FormatDate(v any) string {
	switch t := v.(type) {
	case models.Timestamp:
		if t.Valid {
			return t.Time.Format("2 Jan 2006")
		}
	case *time.Time:
		if t != nil {
			return t.Format("2 Jan 2006")
		}
	case time.Time:
		if !t.IsZero() {
			return t.Format("2 Jan 2006 15:04")
		}
	}
	return "-"
}

// ResetForTests clears the template cache.
func ResetForTests() {
	tplCache.Lock()
	tplCache.m = map[string]page{}
	tplCache.Unlock()
}

// parse loads layout.html, the partials and the page. Pages that are full
// documents skip the layout.
func parse(name string) (page, error) {
	tplCache.RLock()
	p, ok := tplCache.m[name]
	tplCache.RUnlock()
	if ok {
		return p, nil
	}

	src, err := fs.ReadFile(files, "templates/"+name)
	if err != nil {
		return page{}, err
	}
	p.entry = "layout.html"
	if bytes.Contains(bytes.ToLower(src), []byte("<!doctype")) {
		p.entry = name
		p.t, err = template.New(name).Funcs(Funcs(nil)).Parse(string(src))
	} else {
		p.t, err = template.New("layout.html").Funcs(Funcs(nil)).
			ParseFS(files, "templates/layout.html", "templates/partials/*.html", "templates/"+name)
	}
	if err != nil {
		return page{}, err
	}
	tplCache.Lock()
	tplCache.m[name] = p
	tplCache.Unlock()
	return p, nil
}

// Render executes a page with the shared funcs bound to r. The page is
// rendered to a buffer first so a template error never leaves a half
// written response.
func Render(w http.ResponseWriter, r *http.Request, name string, data map[string]any) error {
	p, err := parse(name)
	if err != nil {
		return err
	}
	t, err := p.t.Clone()
	if err != nil {
		return err
	}
	t.Funcs(Funcs(r))

	// Ensure data map exists and inject common defaults to avoid template errors.
	if data == nil {
		data = map[string]any{}
	}
	if _, exists := data["Year"]; !exists {
		data["Year"] = time.Now().Year()
	}
	if _, exists := data["IsLoggedIn"]; !exists {
		pr, loggedIn := auth.PrincipalFromContext(r.Context())
		data["IsLoggedIn"] = loggedIn
		if loggedIn {
			data["User"] = pr
		}
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, p.entry, data); err != nil {
		return err
	}
	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
	}
	_, err = buf.WriteTo(w)
	return err
}
