// Package moderation censors forbidden words in outgoing message text
// and detects the text language so clients can render per-locale hints.
package moderation

import (
	"bufio"
	"embed"
	"io/fs"
	"strings"
	"unicode"

	"github.com/abadojack/whatlanggo"
	goahocorasick "github.com/anknown/ahocorasick"
)

//go:embed wordlists/*.txt
var wordlists embed.FS

// Moderator holds one Aho-Corasick automaton built over the normalized
// union of all embedded word lists. Matching ignores case, punctuation
// and common leet substitutions; replacement preserves the original
// character positions.
type Moderator struct {
	matcher     *goahocorasick.Machine
	replacement rune
}

func NewModerator(replacement rune) (*Moderator, error) {
	words, err := loadWordlists()
	if err != nil {
		return nil, err
	}

	patterns := make([][]rune, len(words))
	for i, word := range words {
		patterns[i] = normalize([]rune(word))
	}

	machine := new(goahocorasick.Machine)
	if err := machine.Build(patterns); err != nil {
		return nil, err
	}
	return &Moderator{matcher: machine, replacement: replacement}, nil
}

// Censor replaces every forbidden span with the replacement rune.
// Clean text is returned unchanged.
func (m *Moderator) Censor(text string) string {
	original := []rune(text)
	cleaned := make([]rune, 0, len(original))
	positions := make([]int, 0, len(original))
	for i, r := range original {
		simple := deleet(r)
		if isNoise(simple) {
			continue
		}
		cleaned = append(cleaned, unicode.ToLower(simple))
		positions = append(positions, i)
	}
	if len(cleaned) == 0 {
		return text
	}

	spans := m.matcher.MultiPatternSearch(cleaned, false)
	if len(spans) == 0 {
		return text
	}
	for _, span := range spans {
		start := span.Pos
		end := start + len(span.Word)
		if start < 0 || end > len(positions) {
			continue
		}
		for i := positions[start]; i <= positions[end-1]; i++ {
			original[i] = m.replacement
		}
	}
	return string(original)
}

// DetectLang returns the ISO 639-3 code of the most likely language,
// or empty when the text is too short to classify reliably.
func DetectLang(text string) string {
	info := whatlanggo.Detect(text)
	if !info.IsReliable() {
		return ""
	}
	return info.Lang.Iso6393()
}

func loadWordlists() ([]string, error) {
	var words []string
	err := fs.WalkDir(wordlists, "wordlists", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		file, err := wordlists.Open(path)
		if err != nil {
			return err
		}
		defer file.Close()

		scanner := bufio.NewScanner(file)
		for scanner.Scan() {
			word := strings.TrimSpace(scanner.Text())
			if word != "" {
				words = append(words, word)
			}
		}
		return scanner.Err()
	})
	return words, err
}

func normalize(input []rune) []rune {
	out := make([]rune, 0, len(input))
	for _, r := range input {
		simple := deleet(r)
		if isNoise(simple) {
			continue
		}
		out = append(out, unicode.ToLower(simple))
	}
	return out
}

// deleet maps common leet substitutions back to letters.
func deleet(r rune) rune {
	switch r {
	case '4', '@':
		return 'a'
	case '3':
		return 'e'
	case '1', '!', '|':
		return 'i'
	case '0':
		return 'o'
	case '5', '$':
		return 's'
	default:
		return r
	}
}

func isNoise(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r)
}
