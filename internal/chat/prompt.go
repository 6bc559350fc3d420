package chat

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const defaultSystemPrompt = `You are the Official Driver's Handbook Assistant. Answer questions using only the handbook excerpts provided as context. Be accurate, concise, and practical. If the context does not contain the information needed to answer, reply exactly: I don't know.`

const defaultUserPrompt = `Use the following handbook excerpts to answer the question.

Context:
{context}

Question: {question}

Answer:`

const followupPrompt = `Based on this question and answer about the driver's handbook, suggest up to three relevant follow-up questions a reader would commonly ask next. Return a JSON object with exactly one field: {"followup_questions": ["...", "...", "..."]}.

Question: %s
Answer: %s`

// Prompt holds the system and user templates for answer composition. The
// user template must contain the {context} and {question} placeholders.
type Prompt struct {
	System string `yaml:"system_prompt"`
	User   string `yaml:"user_prompt"`
}

// DefaultPrompt returns the built-in handbook assistant templates.
func DefaultPrompt() Prompt {
	return Prompt{System: defaultSystemPrompt, User: defaultUserPrompt}
}

// LoadPrompt reads templates from a YAML file. A missing file falls back to
// the built-in defaults; a present but invalid file is an error.
func LoadPrompt(path string) (Prompt, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return DefaultPrompt(), nil
	}
	if err != nil {
		return Prompt{}, fmt.Errorf("reading prompt file: %w", err)
	}

	p := DefaultPrompt()
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Prompt{}, fmt.Errorf("parsing prompt file %s: %w", path, err)
	}
	if !strings.Contains(p.User, "{context}") || !strings.Contains(p.User, "{question}") {
		return Prompt{}, fmt.Errorf("prompt file %s: user_prompt must contain {context} and {question}", path)
	}
	return p, nil
}

// Render fills the user template with the retrieved context and question.
func (p Prompt) Render(context, question string) string {
	out := strings.ReplaceAll(p.User, "{context}", context)
	return strings.ReplaceAll(out, "{question}", question)
}
