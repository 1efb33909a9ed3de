package persist

import (
	"fmt"
	"strings"
)

var extensions = map[string]string{
	"python":     ".py",
	"javascript": ".js",
	"typescript": ".ts",
	"java":       ".java",
	"c":          ".c",
	"cpp":        ".cpp",
	"go":         ".go",
	"ruby":       ".rb",
	"php":        ".php",
	"bash":       ".sh",
	"shell":      ".sh",
	"html":       ".html",
	"css":        ".css",
	"json":       ".json",
	"xml":        ".xml",
	"sql":        ".sql",
}

// DefaultExtension is used when sniffing finds no known language
const DefaultExtension = ".txt"

// keyword sets are checked in slice order; the first language with a hit wins
var keywords = []struct {
	language string
	tokens   []string
}{
	{"python", []string{"def ", "import ", "print(", "lambda"}},
	{"java", []string{"public static void main", "class ", "import "}},
	{"c", []string{"int main", "#include", "printf("}},
	{"cpp", []string{"#include", "using namespace std;", "int main"}},
}

// UnsupportedLanguageError is returned when a language has no known extension
// and fallback sniffing is disabled.
type UnsupportedLanguageError struct {
	Language string
}

func (e *UnsupportedLanguageError) Error() string {
	return fmt.Sprintf("unsupported language: %s", e.Language)
}

// Extension looks a language up in the extension table, ignoring case
func Extension(language string) (string, bool) {
	ext, ok := extensions[strings.ToLower(strings.TrimSpace(language))]
	return ext, ok
}

// DetectLanguage guesses a language from characteristic tokens in code.
// It returns "txt" when nothing matches.
func DetectLanguage(code string) string {
	for _, k := range keywords {
		for _, tok := range k.tokens {
			if strings.Contains(code, tok) {
				return k.language
			}
		}
	}
	return "txt"
}

// ResolveExtension maps language to a file extension. On a table miss it
// fails with *UnsupportedLanguageError unless fallback is set, in which case
// the code is sniffed and DefaultExtension is used when sniffing fails.
func ResolveExtension(language, code string, fallback bool) (string, error) {
	if ext, ok := Extension(language); ok {
		return ext, nil
	}
	if !fallback {
		return "", &UnsupportedLanguageError{Language: language}
	}
	if ext, ok := Extension(DetectLanguage(code)); ok {
		return ext, nil
	}
	return DefaultExtension, nil
}

// Languages returns the language names in the extension table
func Languages() []string {
	out := make([]string, 0, len(extensions))
	for lang := range extensions {
		out = append(out, lang)
	}
	return out
}
