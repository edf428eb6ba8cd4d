// Package inputs loads the sentences used for batch sentiment analysis.
//
// Supported formats are chosen by file extension:
//   - .yaml / .yml: a list of strings, or a mapping with a "texts" list
//   - .json / .jsonc: the same two shapes; comments and trailing commas are
//     allowed (stripped with github.com/tidwall/jsonc)
//   - anything else: one text per line; blank lines and lines starting
//     with '#' are ignored
package inputs

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// ErrNoTexts is returned when a file parses but contains no usable text.
var ErrNoTexts = errors.New("no texts found")

// textsDoc is the mapping form shared by YAML and JSON inputs.
type textsDoc struct {
	Texts []string `json:"texts" yaml:"texts"`
}

// LoadTexts reads path and returns its texts with surrounding whitespace
// trimmed. Empty entries are dropped.
func LoadTexts(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var texts []string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		texts, err = parseYAML(data)
	case ".json", ".jsonc":
		texts, err = parseJSON(data)
	default:
		texts, err = parseLines(data)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	texts = clean(texts)
	if len(texts) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrNoTexts)
	}
	return texts, nil
}

func parseYAML(data []byte) ([]string, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, err
	}
	if len(node.Content) == 0 {
		return nil, nil
	}

	root := node.Content[0]
	switch root.Kind {
	case yaml.SequenceNode:
		var texts []string
		if err := root.Decode(&texts); err != nil {
			return nil, err
		}
		return texts, nil
	case yaml.MappingNode:
		var doc textsDoc
		if err := root.Decode(&doc); err != nil {
			return nil, err
		}
		return doc.Texts, nil
	default:
		return nil, fmt.Errorf("expected a list or a mapping with \"texts\", got %s", kindName(root.Kind))
	}
}

func parseJSON(data []byte) ([]string, error) {
	data = bytes.TrimSpace(jsonc.ToJSON(data))
	if len(data) == 0 {
		return nil, nil
	}

	if data[0] == '[' {
		var texts []string
		if err := json.Unmarshal(data, &texts); err != nil {
			return nil, err
		}
		return texts, nil
	}

	var doc textsDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc.Texts, nil
}

func parseLines(data []byte) ([]string, error) {
	var texts []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		texts = append(texts, line)
	}
	return texts, sc.Err()
}

func clean(texts []string) []string {
	out := make([]string, 0, len(texts))
	for _, t := range texts {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func kindName(k yaml.Kind) string {
	switch k {
	case yaml.ScalarNode:
		return "a scalar"
	case yaml.AliasNode:
		return "an alias"
	default:
		return "an unsupported node"
	}
}
