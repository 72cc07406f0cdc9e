// Package prompt formats the classification request sent to the model from
// a sample and its codebook entry. Building a prompt is a pure function of
// its inputs.
package prompt

import (
	"fmt"
	"os"
	"strings"

	"github.com/acses/curator/internal/codebook"
	"github.com/acses/curator/internal/dataset"
)

// Placeholders the template must provide.
const (
	placeholderJobDescription = "{job_description}"
	placeholderCodeToCheck    = "{code_to_check}"
	placeholderHierarchy      = "{hierarchy_context}"
)

// Builder renders prompts from a master template and the codebook.
type Builder struct {
	template string
	codebook *codebook.Codebook
}

// NewBuilder loads the master template from path.
func NewBuilder(templatePath string, cb *codebook.Codebook) (*Builder, error) {
	data, err := os.ReadFile(templatePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt template %s: %w", templatePath, err)
	}

	template := string(data)
	for _, placeholder := range []string{placeholderJobDescription, placeholderCodeToCheck, placeholderHierarchy} {
		if !strings.Contains(template, placeholder) {
			return nil, fmt.Errorf("prompt template %s is missing placeholder %s", templatePath, placeholder)
		}
	}

	return &Builder{template: template, codebook: cb}, nil
}

// Build renders the prompt for one sample. Returns an error if the sample's
// code is not in the codebook; such samples cannot be classified.
func (b *Builder) Build(sample dataset.Sample) (string, error) {
	entry, ok := b.codebook.Lookup(sample.KBLICode)
	if !ok {
		return "", fmt.Errorf("code %s not found in codebook", sample.KBLICode)
	}

	prompt := strings.ReplaceAll(b.template, placeholderJobDescription, sample.Text)
	prompt = strings.ReplaceAll(prompt, placeholderCodeToCheck, sample.KBLICode)
	prompt = strings.ReplaceAll(prompt, placeholderHierarchy, entry.FormatHierarchy())

	return prompt, nil
}
