package providers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ErrNoStructuredOutput is returned when a reply contains no parseable JSON.
var ErrNoStructuredOutput = errors.New("no JSON block found in model output")

// fencePattern matches ```lang\n...\n``` blocks anywhere in the reply.
var fencePattern = regexp.MustCompile("(?s)```[a-zA-Z0-9_-]*[ \t]*\r?\n(.*?)```")

// ParseStructuredJSON finds the JSON payload in model output. Candidates are
// tried in order: fenced code blocks, the whole reply, and the outermost
// {...} or [...] span. The first candidate that decodes wins.
func ParseStructuredJSON(content string) (json.RawMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("empty structured output: %w", ErrNoStructuredOutput)
	}

	var candidates []string
	for _, m := range fencePattern.FindAllStringSubmatch(content, -1) {
		candidates = append(candidates, m[1])
	}
	candidates = append(candidates, content)
	if extracted := extractJSONCandidate(content); extracted != "" {
		candidates = append(candidates, extracted)
	}

	seen := make(map[string]struct{}, len(candidates))
	for _, candidate := range candidates {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" {
			continue
		}
		if _, ok := seen[candidate]; ok {
			continue
		}
		seen[candidate] = struct{}{}

		var parsed any
		if err := json.Unmarshal([]byte(candidate), &parsed); err == nil {
			normalized, err := json.Marshal(parsed)
			if err != nil {
				return nil, fmt.Errorf("failed to normalize structured output: %w", err)
			}
			return normalized, nil
		}
	}

	return nil, ErrNoStructuredOutput
}

func extractJSONCandidate(content string) string {
	objectStart := strings.Index(content, "{")
	arrayStart := strings.Index(content, "[")

	start, closeChar := -1, ""
	switch {
	case objectStart >= 0 && (arrayStart < 0 || objectStart < arrayStart):
		start, closeChar = objectStart, "}"
	case arrayStart >= 0:
		start, closeChar = arrayStart, "]"
	default:
		return ""
	}

	end := strings.LastIndex(content, closeChar)
	if end < start {
		return ""
	}
	return strings.TrimSpace(content[start : end+1])
}

var (
	schemaCacheMu sync.Mutex
	schemaCache   = map[string]*jsonschema.Schema{}
)

// ValidateStructuredJSON validates parsed JSON against schemaRaw. The schema
// may be a bare schema document or an OpenAI-style {"name","schema"} wrapper.
// Compiled schemas are cached by their text.
func ValidateStructuredJSON(schemaRaw, parsed json.RawMessage) error {
	if len(schemaRaw) == 0 || len(parsed) == 0 {
		return nil
	}

	schema, err := compileSchema(schemaRaw)
	if err != nil {
		return err
	}

	var doc any
	if err := json.Unmarshal(parsed, &doc); err != nil {
		return fmt.Errorf("failed to decode structured JSON for validation: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("structured output does not match schema: %w", err)
	}
	return nil
}

func compileSchema(schemaRaw json.RawMessage) (*jsonschema.Schema, error) {
	key := string(schemaRaw)

	schemaCacheMu.Lock()
	defer schemaCacheMu.Unlock()
	if s, ok := schemaCache[key]; ok {
		return s, nil
	}

	core, err := extractValidationSchema(schemaRaw)
	if err != nil {
		return nil, err
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(core)); err != nil {
		return nil, fmt.Errorf("failed to load structured schema: %w", err)
	}
	s, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("failed to compile structured schema: %w", err)
	}
	schemaCache[key] = s
	return s, nil
}

func extractValidationSchema(schemaRaw json.RawMessage) (json.RawMessage, error) {
	var root map[string]any
	if err := json.Unmarshal(schemaRaw, &root); err != nil {
		return nil, fmt.Errorf("invalid structured schema JSON: %w", err)
	}

	// {"name","strict","schema":{...}}
	if inner, ok := root["schema"]; ok {
		b, err := json.Marshal(inner)
		if err != nil {
			return nil, fmt.Errorf("failed to serialize inner schema: %w", err)
		}
		return b, nil
	}
	return schemaRaw, nil
}

// adaptedResponseFormat strips schema features that some routed backends
// reject. Anthropic models behind OpenRouter get no response_format at all;
// the prompt and local validation carry the contract instead.
func adaptedResponseFormat(model string, rf *ResponseFormat) *openRouterResponseFormat {
	if rf == nil || isAnthropicModel(model) {
		return nil
	}
	return &openRouterResponseFormat{
		Type:       rf.Type,
		JSONSchema: rf.JSONSchema,
	}
}

func isAnthropicModel(model string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(model)), "anthropic/")
}
