package moderation

import (
	"bufio"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"
)

//go:embed lexicon.txt
var defaultLexicon string

//go:embed allowlist.txt
var defaultAllowList string

// DefaultLexicon returns the built-in banned terms.
func DefaultLexicon() []string {
	terms, _ := LoadTerms(strings.NewReader(defaultLexicon))
	return terms
}

// DefaultAllowList returns the built-in allow-list.
func DefaultAllowList() []string {
	terms, _ := LoadTerms(strings.NewReader(defaultAllowList))
	return terms
}

// LoadTerms reads one term per line. Blank lines and lines starting with '#'
// are skipped; surrounding whitespace is trimmed.
func LoadTerms(r io.Reader) ([]string, error) {
	var terms []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		terms = append(terms, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("moderation: read terms: %w", err)
	}
	return terms, nil
}

// LoadTermsFile reads a term list from path. See LoadTerms.
func LoadTermsFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("moderation: open terms: %w", err)
	}
	defer f.Close()
	return LoadTerms(f)
}
