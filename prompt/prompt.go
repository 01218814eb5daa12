package prompt

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"text/template"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Template names shipped with the binary.
const (
	AvatarCredits = "avatar_credits"
	AvatarGeneric = "avatar_generic"
	StartFailed   = "start_failed"
	Results       = "results"
)

//go:embed prompts/*.txt
var embeddedPrompts embed.FS

// Loader loads and renders message templates. Files in the search
// directories override the embedded ones by name.
type Loader struct {
	dirs    []string
	funcMap template.FuncMap

	mu    sync.Mutex
	cache map[string]*template.Template
}

// NewLoader creates a loader searching dirs, in order, before the embedded
// templates. Empty dirs are skipped.
func NewLoader(dirs ...string) *Loader {
	l := &Loader{
		cache:   make(map[string]*template.Template),
		funcMap: defaultFuncMap(),
	}
	for _, d := range dirs {
		if d != "" {
			l.dirs = append(l.dirs, d)
		}
	}
	return l
}

// AddFunc adds a template function. Call before the first render.
func (l *Loader) AddFunc(name string, fn any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.funcMap[name] = fn
}

// Render executes the named template with data.
func (l *Loader) Render(name string, data any) (string, error) {
	tmpl, err := l.getTemplate(name)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

// Exists reports whether a template is available.
func (l *Loader) Exists(name string) bool {
	_, err := l.loadRaw(name)
	return err == nil
}

// List returns all available template names, sorted.
func (l *Loader) List() []string {
	names := make(map[string]bool)

	for _, dir := range l.dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		addNames(names, entries)
	}
	if entries, err := embeddedPrompts.ReadDir("prompts"); err == nil {
		addNames(names, entries)
	}

	out := make([]string, 0, len(names))
	for name := range names {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

func addNames(names map[string]bool, entries []os.DirEntry) {
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".txt") {
			names[strings.TrimSuffix(entry.Name(), ".txt")] = true
		}
	}
}

func (l *Loader) getTemplate(name string) (*template.Template, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if tmpl, ok := l.cache[name]; ok {
		return tmpl, nil
	}

	content, err := l.loadRaw(name)
	if err != nil {
		return nil, err
	}

	tmpl, err := template.New(name).Funcs(l.funcMap).Parse(content)
	if err != nil {
		return nil, fmt.Errorf("parse template %s: %w", name, err)
	}

	l.cache[name] = tmpl
	return tmpl, nil
}

func (l *Loader) loadRaw(name string) (string, error) {
	filename := name + ".txt"

	for _, dir := range l.dirs {
		if data, err := os.ReadFile(filepath.Join(dir, filename)); err == nil {
			return string(data), nil
		}
	}

	data, err := embeddedPrompts.ReadFile("prompts/" + filename)
	if err != nil {
		return "", fmt.Errorf("template not found: %s", name)
	}
	return string(data), nil
}

// ClearCache drops parsed templates so edited files are re-read.
func (l *Loader) ClearCache() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cache = make(map[string]*template.Template)
}

func defaultFuncMap() template.FuncMap {
	return template.FuncMap{
		"join":    strings.Join,
		"trim":    strings.TrimSpace,
		"upper":   strings.ToUpper,
		"lower":   strings.ToLower,
		"title":   func(s string) string { return cases.Title(language.English).String(s) },
		"indent":  indentString,
		"default": defaultValue,
		"score":   score,
		"inc":     func(i int) int { return i + 1 },
	}
}

// score prints an optional score, "N/A" when unset.
func score(v *int) string {
	if v == nil {
		return "N/A"
	}
	return fmt.Sprintf("%d", *v)
}

func indentString(indent int, s string) string {
	if s == "" {
		return s
	}
	prefix := strings.Repeat(" ", indent)
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = prefix + line
		}
	}
	return strings.Join(lines, "\n")
}

func defaultValue(defaultVal, value any) any {
	if value == nil {
		return defaultVal
	}
	if s, ok := value.(string); ok && s == "" {
		return defaultVal
	}
	return value
}
