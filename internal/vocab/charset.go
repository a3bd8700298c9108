package vocab

import "fmt"

var (
	minimalPunctuation = []rune{'!', '&', '(', ')', '?', '-', '\'', '"', ',', '.', ':', ';', ' ', '\n', '\t'}
	extraPunctuation   = []rune{'@', '#', '$', '%', '^', '*', '{', '}', '[', ']', '/', '+', '_', '\\', '|', '<', '>'}
)

// MinimalCharacterSet returns a-z, A-Z, 0-9 and common punctuation.
func MinimalCharacterSet() []rune {
	out := make([]rune, 0, 26+26+10+len(minimalPunctuation))
	for c := 'a'; c <= 'z'; c++ {
		out = append(out, c)
	}
	for c := 'A'; c <= 'Z'; c++ {
		out = append(out, c)
	}
	for c := '0'; c <= '9'; c++ {
		out = append(out, c)
	}
	return append(out, minimalPunctuation...)
}

// DefaultCharacterSet extends MinimalCharacterSet with the remaining
// printable ASCII symbols.
func DefaultCharacterSet() []rune {
	return append(MinimalCharacterSet(), extraPunctuation...)
}

// CharacterSet resolves a named character set.
func CharacterSet(name string) ([]rune, error) {
	switch name {
	case "", "minimal":
		return MinimalCharacterSet(), nil
	case "default":
		return DefaultCharacterSet(), nil
	default:
		return nil, fmt.Errorf("vocab: unknown character set %q (want minimal or default)", name)
	}
}

// Minimal returns a vocabulary over MinimalCharacterSet.
func Minimal() *Vocabulary {
	v, err := New(MinimalCharacterSet())
	if err != nil {
		panic(err)
	}
	return v
}
