// Package prompt holds the prompt templates used for completion calls.
// A Store is built once at startup and is read-only afterwards.
package prompt

import (
	_ "embed"
	"maps"
	"os"
	"slices"
	"strings"
	"text/template"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/predator4hack/ai-shark-sub001/internal/resilience"
)

// Template names shipped in the embedded defaults.
const (
	Analyze            = "analyze"
	MetadataExtraction = "metadata_extraction"
	Questionnaire      = "questionnaire"
	EvaluateChecklist  = "evaluate_checklist"
	EvaluateExpert     = "evaluate_expert"
	FounderProfile     = "founder_profile"
	CompanyNews        = "company_news"
	Funding            = "funding"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Template is the raw text of one prompt.
type Template struct {
	System string `yaml:"system"`
	User   string `yaml:"user"`
}

type file struct {
	Templates map[string]Template `yaml:"templates"`
}

type compiled struct {
	raw    Template
	system *template.Template
	user   *template.Template
}

// Store is an immutable set of compiled prompt templates.
type Store struct {
	templates map[string]compiled
}

// Load builds a Store from the embedded defaults, overlaid with the templates
// in overridePath when it is non-empty. Parse failures are fatal.
func Load(overridePath string) (*Store, error) {
	merged, err := parse(defaultsYAML, "defaults")
	if err != nil {
		return nil, err
	}

	if overridePath != "" {
		data, err := os.ReadFile(overridePath)
		if err != nil {
			return nil, resilience.NewFatalError(eris.Wrapf(err, "prompt: read %s", overridePath), 0)
		}
		override, err := parse(data, overridePath)
		if err != nil {
			return nil, err
		}
		maps.Copy(merged, override)
	}

	return New(merged)
}

// New compiles templates into a Store.
func New(templates map[string]Template) (*Store, error) {
	s := &Store{templates: make(map[string]compiled, len(templates))}
	for name, t := range templates {
		c := compiled{raw: t}
		var err error
		if c.system, err = compile(name+".system", t.System); err != nil {
			return nil, err
		}
		if c.user, err = compile(name+".user", t.User); err != nil {
			return nil, err
		}
		s.templates[name] = c
	}
	return s, nil
}

func parse(data []byte, source string) (map[string]Template, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, resilience.NewFatalError(eris.Wrapf(err, "prompt: parse %s", source), 0)
	}
	if f.Templates == nil {
		f.Templates = make(map[string]Template)
	}
	return f.Templates, nil
}

func compile(name, text string) (*template.Template, error) {
	t, err := template.New(name).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, resilience.NewFatalError(eris.Wrapf(err, "prompt: compile %s", name), 0)
	}
	return t, nil
}

// Names returns the sorted template names.
func (s *Store) Names() []string {
	return slices.Sorted(maps.Keys(s.templates))
}

// Get returns a copy of the raw template text.
func (s *Store) Get(name string) (Template, bool) {
	c, ok := s.templates[name]
	return c.raw, ok
}

// Render executes the named template with params and returns the system and
// user prompts. A missing template or a missing parameter is fatal.
func (s *Store) Render(name string, params map[string]string) (system, user string, err error) {
	c, ok := s.templates[name]
	if !ok {
		return "", "", resilience.NewFatalError(eris.Errorf("prompt: unknown template %q", name), 0)
	}

	var sb strings.Builder
	if err := c.system.Execute(&sb, params); err != nil {
		return "", "", resilience.NewFatalError(eris.Wrapf(err, "prompt: render %s system", name), 0)
	}
	system = strings.TrimSpace(sb.String())

	sb.Reset()
	if err := c.user.Execute(&sb, params); err != nil {
		return "", "", resilience.NewFatalError(eris.Wrapf(err, "prompt: render %s user", name), 0)
	}
	user = strings.TrimSpace(sb.String())

	return system, user, nil
}
