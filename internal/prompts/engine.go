package prompts

import (
	"fmt"
	"regexp"
	"sort"
	"sync"
)

var varPattern = regexp.MustCompile(`\{\{(\w+)\}\}`)

// Template represents a prompt template with {{variable}} placeholders
type Template struct {
	Name        string   `json:"name"`
	Content     string   `json:"content"`
	Variables   []string `json:"variables"`
	Description string   `json:"description"`
}

// Engine manages the registered prompt templates
type Engine struct {
	templates map[string]*Template
	mu        sync.RWMutex
}

// NewEngine creates an engine preloaded with the default templates.
func NewEngine() *Engine {
	e := &Engine{templates: make(map[string]*Template)}
	e.registerDefaults()
	return e
}

// Register adds or replaces a template. Variables are extracted from the
// content when the template does not declare them.
func (e *Engine) Register(tmpl *Template) {
	if len(tmpl.Variables) == 0 {
		tmpl.Variables = ExtractVariables(tmpl.Content)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.templates[tmpl.Name] = tmpl
}

// Get retrieves a template by name
func (e *Engine) Get(name string) (*Template, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	tmpl, ok := e.templates[name]
	if !ok {
		return nil, fmt.Errorf("template not found: %s", name)
	}
	return tmpl, nil
}

// Render fills a template's {{variable}} placeholders from vars. Unknown
// placeholders are left in place so a half-filled prompt is visible in logs
// rather than silently truncated.
func (e *Engine) Render(name string, vars map[string]string) (string, error) {
	tmpl, err := e.Get(name)
	if err != nil {
		return "", err
	}

	result := varPattern.ReplaceAllStringFunc(tmpl.Content, func(match string) string {
		key := varPattern.FindStringSubmatch(match)[1]
		if val, ok := vars[key]; ok {
			return val
		}
		return match
	})
	return result, nil
}

// ExtractVariables returns the unique placeholder names in a template body,
// sorted for stable output.
func ExtractVariables(content string) []string {
	matches := varPattern.FindAllStringSubmatch(content, -1)
	seen := make(map[string]bool, len(matches))
	for _, m := range matches {
		seen[m[1]] = true
	}

	vars := make([]string, 0, len(seen))
	for v := range seen {
		vars = append(vars, v)
	}
	sort.Strings(vars)
	return vars
}
