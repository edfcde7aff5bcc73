package embeddings

import (
	"regexp"
	"strings"

	"github.com/abadojack/whatlanggo"
)

// tokenPattern matches word tokens, keeping internal apostrophes so
// "don't" stays one token.
var tokenPattern = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)

// DetectLanguage returns the ISO 639-1 code of the dominant language of
// text and whether detection was confident enough to use. Short or
// mixed-script texts commonly fail the confidence check.
func DetectLanguage(text string) (string, bool) {
	info := whatlanggo.Detect(text)
	code := info.Lang.Iso6391()
	if code == "" || !info.IsReliable() {
		return "", false
	}
	return code, true
}

// tokenize lowercases text and splits it into word tokens.
func tokenize(text string) []string {
	return tokenPattern.FindAllString(strings.ToLower(text), -1)
}
