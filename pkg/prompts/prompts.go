// Package prompts renders the helper prompts from an embedded YAML set.
package prompts

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"sync"
	"text/template"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/fpt/go-echoassist/pkg/domain"
)

//go:embed templates.yaml
var embeddedTemplates []byte

type templateFile struct {
	Providers map[string]string                     `yaml:"providers"`
	Styles    map[string]map[string]templateMessage `yaml:"styles"`
}

type templateMessage struct {
	System string `yaml:"system"`
	User   string `yaml:"user"`
	Human  string `yaml:"human"`
}

type compiled struct {
	system *template.Template
	user   *template.Template
	plain  bool
}

// Set is a parsed collection of prompt templates.
type Set struct {
	providers    map[string]string
	styles       map[string]map[domain.PromptKind]compiled
	defaultStyle string
}

var _ domain.PromptTemplates = (*Set)(nil)

// Parse builds a Set from YAML. Unknown providers use defaultStyle.
func Parse(data []byte, defaultStyle string) (*Set, error) {
	var f templateFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(err, "failed to parse prompt templates")
	}
	if _, ok := f.Styles[defaultStyle]; !ok {
		return nil, fmt.Errorf("default prompt style %q not defined", defaultStyle)
	}

	set := &Set{
		providers:    f.Providers,
		styles:       make(map[string]map[domain.PromptKind]compiled, len(f.Styles)),
		defaultStyle: defaultStyle,
	}
	for style, kinds := range f.Styles {
		set.styles[style] = make(map[domain.PromptKind]compiled, len(kinds))
		for kind, msg := range kinds {
			c, err := compile(style+"."+kind, msg)
			if err != nil {
				return nil, err
			}
			set.styles[style][domain.PromptKind(kind)] = c
		}
	}
	return set, nil
}

func compile(name string, msg templateMessage) (compiled, error) {
	user := msg.User
	if user == "" {
		user = msg.Human
	}
	c := compiled{plain: msg.System == ""}

	var err error
	if c.user, err = template.New(name + ".user").Option("missingkey=zero").Parse(user); err != nil {
		return c, errors.Wrapf(err, "invalid template %s", name)
	}
	if !c.plain {
		if c.system, err = template.New(name + ".system").Parse(msg.System); err != nil {
			return c, errors.Wrapf(err, "invalid template %s", name)
		}
	}
	return c, nil
}

var (
	defaultOnce sync.Once
	defaultSet  *Set
)

// Default returns the embedded set. It panics if the embedded YAML is broken.
func Default() *Set {
	defaultOnce.Do(func() {
		s, err := Parse(embeddedTemplates, "plain")
		if err != nil {
			panic(err)
		}
		defaultSet = s
	})
	return defaultSet
}

// StyleFor reports which style provider renders with.
func (s *Set) StyleFor(provider string) string {
	if style, ok := s.providers[strings.ToLower(provider)]; ok {
		return style
	}
	return s.defaultStyle
}

// Render produces a plain prompt for plain styles and a system/user pair otherwise.
func (s *Set) Render(kind domain.PromptKind, provider, historyContext, extra string) (domain.Prompt, error) {
	style := s.StyleFor(provider)
	c, ok := s.styles[style][kind]
	if !ok {
		return domain.Prompt{}, fmt.Errorf("no %s prompt for style %s", kind, style)
	}

	data := struct {
		History string
		Extra   string
	}{History: historyContext, Extra: extra}

	user, err := execute(c.user, data)
	if err != nil {
		return domain.Prompt{}, err
	}
	if c.plain {
		return domain.TextPrompt(user), nil
	}
	system, err := execute(c.system, data)
	if err != nil {
		return domain.Prompt{}, err
	}
	return domain.StructuredPrompt(system, user), nil
}

func execute(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", errors.Wrapf(err, "failed to render %s", t.Name())
	}
	return strings.TrimSpace(buf.String()), nil
}
