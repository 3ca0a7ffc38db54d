package conversation

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// namePatterns are tried in order; the first pattern that captures a usable
// name wins. The order is significant: explicit "my name is" phrasings beat
// "I am", which beat nickname phrasings.
var namePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:^|[^\p{L}])(?:me\s+llamo|mi\s+nombre\s+es|my\s+name\s+is)\s+(\p{L}+)`),
	regexp.MustCompile(`(?i)(?:^|[^\p{L}])(?:soy|i\s+am|i['’]m)\s+(\p{L}+)`),
	regexp.MustCompile(`(?i)(?:^|[^\p{L}])(?:i['’]m\s+called|i\s+am\s+called|me\s+dicen|me\s+llaman)\s+(\p{L}+)`),
}

// Words that commonly follow "soy" / "I am" without being a name.
var notNames = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "not": {}, "so": {}, "very": {}, "called": {},
	"interested": {}, "looking": {}, "new": {}, "here": {},
	"fine": {}, "good": {}, "sorry": {}, "sure": {}, "just": {},
	"de": {}, "del": {}, "el": {}, "la": {}, "un": {}, "una": {}, "muy": {},
	"nuevo": {}, "nueva": {}, "paciente": {}, "alérgico": {}, "alérgica": {},
	"yo": {}, "tu": {}, "su": {}, "mamá": {}, "papá": {},
}

// ExtractName scans an utterance for a self-introduction and returns the
// introduced name.
func ExtractName(utterance string) (string, bool) {
	utterance = strings.TrimSpace(utterance)
	if utterance == "" {
		return "", false
	}
	for _, re := range namePatterns {
		for _, m := range re.FindAllStringSubmatch(utterance, -1) {
			if len(m) < 2 {
				continue
			}
			candidate := strings.ToLower(m[1])
			if _, skip := notNames[candidate]; skip {
				continue
			}
			if utf8.RuneCountInString(candidate) < 2 {
				continue
			}
			return titleCase(candidate), true
		}
	}
	return "", false
}

// ResolveIdentity runs extraction only while the name is unknown. A known
// name is returned untouched.
func ResolveIdentity(id Identity, utterance string) (Identity, bool) {
	if id.HasName() {
		return id, false
	}
	name, ok := ExtractName(utterance)
	if !ok {
		return id, false
	}
	id.Name = name
	return id, true
}

func titleCase(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
