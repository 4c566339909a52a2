package classify

import (
	"regexp"
	"strings"
)

// DangerWords returns, in the order given, the words that occur in content
// as whole words, ignoring case. It flags destructive statements (drop,
// truncate, ...) that deserve a second look before the release is applied.
func DangerWords(content string, words []string) []string {
	var found []string
	for _, w := range words {
		w = strings.TrimSpace(w)
		if w == "" {
			continue
		}
		re := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(w) + `\b`)
		if re.MatchString(content) {
			found = append(found, strings.ToUpper(w))
		}
	}
	return found
}
