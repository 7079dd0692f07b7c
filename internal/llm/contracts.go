package llm

import (
	"bytes"
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"os"
	"sort"
	"strings"
	"text/template"

	"github.com/samber/oops"
	"gopkg.in/yaml.v3"

	"policylens-backend/internal/policy"
)

//go:embed prompts/*.tmpl prompts/contracts.yaml
var promptFS embed.FS

// Contract names.
const (
	ContractValidate      = "validate"
	ContractSummarize     = "summarize"
	ContractRecommend     = "recommend"
	ContractQuote         = "quote"
	ContractChat          = "chat"
	ContractChatRecommend = "chat_recommend"
)

// Reply shapes a contract's parser expects.
const (
	ReplyVerdict  = "verdict"
	ReplyText     = "text"
	ReplyJSON     = "json"
	ReplySentinel = "sentinel"
)

var requiredContracts = []string{
	ContractValidate,
	ContractSummarize,
	ContractRecommend,
	ContractQuote,
	ContractChat,
	ContractChatRecommend,
}

// Contract binds one prompt template to its system message, temperature,
// input clipping and expected reply shape. They change together.
type Contract struct {
	Name         string   `yaml:"-"`
	Version      string   `yaml:"version"`
	Template     string   `yaml:"template"`
	TemplateText string   `yaml:"template_text"`
	System       string   `yaml:"system"`
	Temperature  *float64 `yaml:"temperature"`
	InputLimit   int      `yaml:"input_limit"`
	Reply        string   `yaml:"reply"`

	tmpl *template.Template
}

type contractFile struct {
	Contracts map[string]Contract `yaml:"contracts"`
}

// Contracts is the loaded, compiled set of prompt contracts.
type Contracts struct {
	byName map[string]*Contract
}

// LoadContracts compiles the embedded contracts. A non-empty overridePath
// names a YAML file in the same shape whose fields replace embedded ones.
func LoadContracts(overridePath string) (*Contracts, error) {
	raw, err := promptFS.ReadFile("prompts/contracts.yaml")
	if err != nil {
		return nil, oops.In("prompts").Wrapf(err, "read embedded contracts")
	}
	var base contractFile
	if err := yaml.Unmarshal(raw, &base); err != nil {
		return nil, oops.In("prompts").Wrapf(err, "parse embedded contracts")
	}

	if strings.TrimSpace(overridePath) != "" {
		data, err := os.ReadFile(overridePath)
		if err != nil {
			return nil, oops.In("prompts").With("path", overridePath).Wrapf(err, "read prompt overrides")
		}
		var over contractFile
		if err := yaml.Unmarshal(data, &over); err != nil {
			return nil, oops.In("prompts").With("path", overridePath).Wrapf(err, "parse prompt overrides")
		}
		if err := mergeContracts(&base, over); err != nil {
			return nil, err
		}
	}

	out := &Contracts{byName: make(map[string]*Contract, len(base.Contracts))}
	for name, c := range base.Contracts {
		c := c
		c.Name = name
		if err := c.compile(); err != nil {
			return nil, err
		}
		out.byName[name] = &c
	}
	for _, name := range requiredContracts {
		if _, ok := out.byName[name]; !ok {
			return nil, oops.In("prompts").Errorf("missing prompt contract %q", name)
		}
	}
	return out, nil
}

// MustLoadContracts is LoadContracts("") for callers that cannot proceed without prompts.
func MustLoadContracts() *Contracts {
	cs, err := LoadContracts("")
	if err != nil {
		panic(err)
	}
	return cs
}

// Get returns the named contract.
func (cs *Contracts) Get(name string) (*Contract, error) {
	if cs == nil {
		return nil, oops.In("prompts").Errorf("prompt contracts not loaded")
	}
	c, ok := cs.byName[name]
	if !ok {
		return nil, oops.In("prompts").Errorf("unknown prompt contract %q", name)
	}
	return c, nil
}

// Names lists loaded contracts in stable order.
func (cs *Contracts) Names() []string {
	names := make([]string, 0, len(cs.byName))
	for name := range cs.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clip truncates text to the contract's input limit, if it has one.
func (c *Contract) Clip(text string) string {
	return Truncate(text, c.InputLimit)
}

// Render executes the contract template against data.
func (c *Contract) Render(data any) (string, error) {
	var buf bytes.Buffer
	if err := c.tmpl.Execute(&buf, data); err != nil {
		return "", oops.In("prompts").With("contract", c.Name).Wrapf(err, "render prompt")
	}
	return buf.String(), nil
}

// Build renders a single-shot request: the contract's system message then the
// rendered template as the user turn.
func (c *Contract) Build(data any) (Request, error) {
	prompt, err := c.Render(data)
	if err != nil {
		return Request{}, err
	}
	messages := make([]Message, 0, 2)
	if strings.TrimSpace(c.System) != "" {
		messages = append(messages, Message{Role: policy.RoleSystem, Content: c.System})
	}
	messages = append(messages, Message{Role: policy.RoleUser, Content: prompt})
	return c.request(messages), nil
}

// Converse renders the template as the system message and appends history.
func (c *Contract) Converse(data any, history []policy.Message) (Request, error) {
	system, err := c.Render(data)
	if err != nil {
		return Request{}, err
	}
	messages := make([]Message, 0, len(history)+1)
	messages = append(messages, Message{Role: policy.RoleSystem, Content: system})
	for _, m := range history {
		messages = append(messages, Message{Role: m.Role, Content: m.Content})
	}
	return c.request(messages), nil
}

func (c *Contract) request(messages []Message) Request {
	var temp *float64
	if c.Temperature != nil {
		temp = Float(*c.Temperature)
	}
	return Request{
		Contract:    c.Name,
		Version:     c.Version,
		Messages:    messages,
		Temperature: temp,
	}
}

func (c *Contract) compile() error {
	text := c.TemplateText
	if strings.TrimSpace(text) == "" {
		if strings.TrimSpace(c.Template) == "" {
			return oops.In("prompts").Errorf("contract %q has no template", c.Name)
		}
		raw, err := promptFS.ReadFile("prompts/" + c.Template)
		if err != nil {
			return oops.In("prompts").With("contract", c.Name).Wrapf(err, "read template %s", c.Template)
		}
		text = string(raw)
	}
	switch c.Reply {
	case ReplyVerdict, ReplyText, ReplyJSON, ReplySentinel:
	default:
		return oops.In("prompts").Errorf("contract %q has unknown reply shape %q", c.Name, c.Reply)
	}
	tmpl, err := template.New(c.Name).
		Funcs(template.FuncMap{"join": strings.Join}).
		Option("missingkey=error").
		Parse(text)
	if err != nil {
		return oops.In("prompts").With("contract", c.Name).Wrapf(err, "parse template")
	}
	c.tmpl = tmpl
	return nil
}

func mergeContracts(base *contractFile, over contractFile) error {
	for name, o := range over.Contracts {
		b, ok := base.Contracts[name]
		if !ok {
			return oops.In("prompts").Errorf("override for unknown contract %q", name)
		}
		if o.Version != "" {
			b.Version = o.Version
		}
		if o.Template != "" {
			b.Template = o.Template
		}
		if o.TemplateText != "" {
			b.TemplateText = o.TemplateText
		}
		if o.System != "" {
			b.System = o.System
		}
		if o.Temperature != nil {
			b.Temperature = o.Temperature
		}
		if o.InputLimit != 0 {
			b.InputLimit = o.InputLimit
		}
		if o.Reply != "" {
			b.Reply = o.Reply
		}
		base.Contracts[name] = b
	}
	return nil
}

// Truncate returns at most n runes of s. n <= 0 means no limit.
func Truncate(s string, n int) string {
	if n <= 0 {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

// PromptHash fingerprints the messages of a request for log correlation.
func PromptHash(req Request) string {
	h := sha256.New()
	for _, m := range req.Messages {
		h.Write([]byte(m.Role))
		h.Write([]byte{0})
		h.Write([]byte(m.Content))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}
