package template

import "strings"

// Substitute replaces {key} for every key in params and leaves all other
// text untouched, including braces that do not name a known key.
//
// It is meant for free-form files such as headers and footers, which may
// contain unrelated braces (code, JSON) that must survive verbatim.
func Substitute(text string, params map[string]string) string {
	if len(params) == 0 || !strings.Contains(text, "{") {
		return text
	}
	pairs := make([]string, 0, len(params)*2)
	for k, v := range params {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(text)
}
