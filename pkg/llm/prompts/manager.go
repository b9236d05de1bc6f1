package prompts

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"text/template"

	"voyageai/pkg/model"
)

//go:embed templates
var embedded embed.FS

// Template names.
const (
	Itinerary      = "itinerary.tmpl"
	MoreActivities = "more_activities.tmpl"
)

// Manager handles loading and rendering of prompt templates.
type Manager struct {
	root *template.Template
}

// NewManager loads the templates compiled into the binary.
func NewManager() (*Manager, error) {
	sub, err := fs.Sub(embedded, "templates")
	if err != nil {
		return nil, err
	}
	return NewManagerFS(sub)
}

// NewManagerFS loads templates from fsys. Files under common/ are partials
// available to every template; every other .tmpl is registered by its slash path.
func NewManagerFS(fsys fs.FS) (*Manager, error) {
	m := &Manager{}
	m.root = template.New("root").Option("missingkey=error").Funcs(template.FuncMap{
		"join":      joinFunc,
		"orDefault": orDefaultFunc,
		"label":     model.Label,
	})

	if err := m.loadCommon(fsys); err != nil {
		return nil, fmt.Errorf("loading common templates: %w", err)
	}

	if err := m.loadTemplates(fsys); err != nil {
		return nil, fmt.Errorf("loading templates: %w", err)
	}

	return m, nil
}

func (m *Manager) loadCommon(fsys fs.FS) error {
	if _, err := fs.Stat(fsys, "common"); err != nil {
		return nil
	}
	return fs.WalkDir(fsys, "common", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(p, ".tmpl") {
			return nil
		}

		content, err := fs.ReadFile(fsys, p)
		if err != nil {
			return err
		}

		if _, err = m.root.Parse(string(content)); err != nil {
			return fmt.Errorf("parsing %s: %w", p, err)
		}
		return nil
	})
}

func (m *Manager) loadTemplates(fsys fs.FS) error {
	return fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || path.Ext(p) != ".tmpl" || strings.HasPrefix(p, "common/") {
			return nil
		}

		content, err := fs.ReadFile(fsys, p)
		if err != nil {
			return err
		}

		if _, err = m.root.New(p).Parse(string(content)); err != nil {
			return fmt.Errorf("parsing %s: %w", p, err)
		}
		return nil
	})
}

// Render executes the named template with the provided data.
func (m *Manager) Render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := m.root.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// joinFunc joins non-blank values.
// Usage: {{join ", " .Interests}}
func joinFunc(sep string, values []string) string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return strings.Join(out, sep)
}

// orDefaultFunc returns def when value is blank.
// Usage: {{orDefault "general sightseeing" (join ", " .Interests)}}
func orDefaultFunc(def, value string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return value
}
