package domain

import (
	"encoding/base64"
	"strings"
)

const (
	DefaultTextMaxTokens       = 2048
	DefaultMultimodalMaxTokens = 4096
	DefaultTemperature         = 0.7

	DefaultTextSystemPrompt       = "You are EchoAssist, a helpful AI assistant specializing in programming and problem-solving."
	DefaultMultimodalSystemPrompt = "You are EchoAssist, an expert AI assistant for analyzing screenshots and solving programming problems."
)

// Prompt is either a plain string or a system/user pair produced by a
// template. Text wins when both forms are set.
type Prompt struct {
	Text   string
	System string
	User   string
}

// TextPrompt builds a plain prompt.
func TextPrompt(text string) Prompt {
	return Prompt{Text: text}
}

// StructuredPrompt builds a system/user prompt.
func StructuredPrompt(system, user string) Prompt {
	return Prompt{System: system, User: user}
}

func (p Prompt) IsStructured() bool {
	return p.Text == "" && (p.System != "" || p.User != "")
}

// Flatten collapses a structured prompt for backends that take a single
// user turn.
func (p Prompt) Flatten() string {
	if !p.IsStructured() {
		return p.Text
	}
	if p.System == "" {
		return p.User
	}
	if p.User == "" {
		return p.System
	}
	return p.System + "\n\n" + p.User
}

// UserText is the user turn of a structured prompt, or the plain text.
func (p Prompt) UserText() string {
	if p.IsStructured() {
		return p.User
	}
	return p.Text
}

// SystemOr is the system turn, or def when the prompt carries none.
func (p Prompt) SystemOr(def string) string {
	if p.IsStructured() && p.System != "" {
		return p.System
	}
	return def
}

// ImageData is an opaque encoded image.
type ImageData struct {
	MIMEType string
	Data     []byte
}

// PNG wraps raw PNG bytes, the format screen captures arrive in.
func PNG(data []byte) ImageData {
	return ImageData{MIMEType: "image/png", Data: data}
}

func (i ImageData) Base64() string {
	return base64.StdEncoding.EncodeToString(i.Data)
}

func (i ImageData) DataURL() string {
	mime := i.MIMEType
	if mime == "" {
		mime = "image/png"
	}
	return "data:" + mime + ";base64," + i.Base64()
}

// Part is one element of a multimodal request: text or an image.
type Part struct {
	Text  string
	Image *ImageData
}

func TextPart(text string) Part {
	return Part{Text: text}
}

func ImagePart(img ImageData) Part {
	return Part{Image: &img}
}

func (p Part) IsImage() bool {
	return p.Image != nil
}

// PartsText joins the text parts, used for token estimates.
func PartsText(parts []Part) string {
	var b strings.Builder
	for _, p := range parts {
		if p.IsImage() {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(p.Text)
	}
	return b.String()
}

// GenerateOptions tunes a single call. Zero values select defaults.
type GenerateOptions struct {
	// UseVisionModel forces the vision tier for a text-only call.
	UseVisionModel bool
	MaxTokens      int
	Temperature    *float64
}

// MaxTokensOr returns MaxTokens or def when unset.
func (o GenerateOptions) MaxTokensOr(def int) int {
	if o.MaxTokens > 0 {
		return o.MaxTokens
	}
	return def
}

func (o GenerateOptions) TemperatureOrDefault() float64 {
	if o.Temperature != nil {
		return *o.Temperature
	}
	return DefaultTemperature
}

// WithTemperature returns a copy of o with the temperature set.
func (o GenerateOptions) WithTemperature(t float64) GenerateOptions {
	o.Temperature = &t
	return o
}
