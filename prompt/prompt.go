// Package prompt loads the prompt templates shipped with the binary.
//
// Each template is a markdown file with optional YAML frontmatter followed
// by a text/template body:
//
//	---
//	name: recommend
//	description: ...
//	temperature: 0
//	---
//	User input: {{.Query}}
package prompt

import (
	"bufio"
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

// Built-in prompt names.
const (
	Recommend  = "recommend"
	MultiQuery = "multi_query"
	QASystem   = "qa_system"
)

//go:embed prompts/*.md
var builtin embed.FS

// Template is a parsed prompt.
type Template struct {
	Name        string
	Description string
	// Temperature overrides the configured sampling temperature when set.
	Temperature *float64
	Body        string

	tmpl *template.Template
}

type frontmatter struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Temperature *float64 `yaml:"temperature"`
}

// Load returns the built-in prompt called name.
func Load(name string) (*Template, error) {
	return LoadFS(builtin, "prompts", name)
}

// MustLoad is Load for prompts known to exist.
func MustLoad(name string) *Template {
	t, err := Load(name)
	if err != nil {
		panic(err)
	}
	return t
}

// LoadFS reads dir/name.md from fsys.
func LoadFS(fsys fs.FS, dir, name string) (*Template, error) {
	data, err := fs.ReadFile(fsys, path.Join(dir, name+".md"))
	if err != nil {
		return nil, fmt.Errorf("loading prompt %q: %w", name, err)
	}
	return Parse(name, data)
}

// Parse builds a template from markdown source. The frontmatter name, if
// present, wins over name.
func Parse(name string, data []byte) (*Template, error) {
	fm, body, err := parseFrontmatter(data)
	if err != nil {
		return nil, fmt.Errorf("parsing prompt %q: %w", name, err)
	}

	t := &Template{Name: name, Body: body}
	if len(fm) > 0 {
		var meta frontmatter
		if err := yaml.Unmarshal(fm, &meta); err != nil {
			return nil, fmt.Errorf("parsing prompt %q frontmatter: %w", name, err)
		}
		if meta.Name != "" {
			t.Name = meta.Name
		}
		t.Description = meta.Description
		t.Temperature = meta.Temperature
	}

	t.tmpl, err = template.New(t.Name).Option("missingkey=error").Parse(body)
	if err != nil {
		return nil, fmt.Errorf("parsing prompt %q body: %w", name, err)
	}
	return t, nil
}

// Render executes the body with data.
func (t *Template) Render(data any) (string, error) {
	var b strings.Builder
	if err := t.tmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("rendering prompt %q: %w", t.Name, err)
	}
	return b.String(), nil
}

// parseFrontmatter splits "---" delimited YAML from the body. Without a
// complete frontmatter block the whole input is the body.
func parseFrontmatter(data []byte) ([]byte, string, error) {
	scanner := bufio.NewScanner(bytes.NewReader(data))

	if !scanner.Scan() || strings.TrimSpace(scanner.Text()) != "---" {
		return nil, strings.TrimSpace(string(data)), nil
	}

	var fmLines []string
	closed := false
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "---" {
			closed = true
			break
		}
		fmLines = append(fmLines, line)
	}
	if !closed {
		return nil, strings.TrimSpace(string(data)), nil
	}

	var body []string
	for scanner.Scan() {
		body = append(body, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, "", fmt.Errorf("scanning prompt: %w", err)
	}

	return []byte(strings.Join(fmLines, "\n")), strings.TrimSpace(strings.Join(body, "\n")), nil
}
