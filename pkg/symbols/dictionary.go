package symbols

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed dictionary.yaml
var defaultDictionaryYAML []byte

// ErrDictionaryInvalid wraps any dictionary load or compile failure.
var ErrDictionaryInvalid = fmt.Errorf("symbol dictionary invalid")

type dictionaryFile struct {
	Symbols []DictionaryEntry `yaml:"symbols"`
}

// compiledEntry pairs a dictionary entry with its compiled trigger and the
// significant words used for cheap pre-filtering before the regex runs.
type compiledEntry struct {
	DictionaryEntry
	re        *regexp.Regexp
	prefilter []string
}

// DefaultDictionary returns the embedded symbol dictionary.
func DefaultDictionary() ([]DictionaryEntry, error) {
	return parseDictionary(defaultDictionaryYAML)
}

// LoadDictionary reads a symbol dictionary from a YAML file.
func LoadDictionary(path string) ([]DictionaryEntry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dictionary: %w", err)
	}
	return parseDictionary(raw)
}

func parseDictionary(raw []byte) ([]DictionaryEntry, error) {
	var file dictionaryFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDictionaryInvalid, err)
	}
	if len(file.Symbols) == 0 {
		return nil, fmt.Errorf("%w: no symbols defined", ErrDictionaryInvalid)
	}
	return file.Symbols, nil
}

// compileDictionary validates and compiles every entry. File order is
// preserved: dominance ties break by first-encountered order, so order is
// part of the contract.
func compileDictionary(entries []DictionaryEntry) ([]compiledEntry, error) {
	out := make([]compiledEntry, 0, len(entries))
	for _, e := range entries {
		if strings.TrimSpace(e.Label) == "" || strings.TrimSpace(e.Trigger) == "" {
			return nil, fmt.Errorf("%w: entry %q missing label or trigger", ErrDictionaryInvalid, e.Label)
		}
		re, err := regexp.Compile(e.Trigger)
		if err != nil {
			return nil, fmt.Errorf("%w: entry %q: %v", ErrDictionaryInvalid, e.Label, err)
		}
		out = append(out, compiledEntry{
			DictionaryEntry: e,
			re:              re,
			prefilter:       significantWords(e.Trigger),
		})
	}
	return out, nil
}

// significantWords extracts the plain words of a trigger pattern, used as a
// substring pre-filter so large dictionaries stay cheap on long content.
func significantWords(trigger string) []string {
	cleaned := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			return r
		}
		return ' '
	}, trigger)
	var out []string
	for _, w := range strings.Fields(strings.ToLower(cleaned)) {
		if len(w) >= 3 && w != "the" && w != "its" {
			out = append(out, w)
		}
	}
	return out
}
