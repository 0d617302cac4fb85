package dialogue

import (
	"fmt"
	"regexp"
	"strings"
)

// MaxGlobalExpansions bounds global[name] substitutions per resolved string, so a
// value that reintroduces its own token cannot loop forever.
const MaxGlobalExpansions = 64

var globalToken = regexp.MustCompile(`global\[[a-zA-Z0-9_-]+\]`)

// ExpandGlobals replaces global[name] tokens with the string form of the named
// variable (empty when unset), rescanning after every substitution. It returns
// false when it stopped at MaxGlobalExpansions with tokens left in the text.
func ExpandGlobals(text string, vars Variables) (string, bool) {
	for i := 0; i < MaxGlobalExpansions; i++ {
		loc := globalToken.FindStringIndex(text)
		if loc == nil {
			return text, true
		}
		token := text[loc[0]:loc[1]]
		name := token[strings.IndexByte(token, '[')+1 : len(token)-1]

		value := ""
		if vars != nil {
			if v, ok := vars.Global(name); ok && v != nil {
				value = fmt.Sprint(v)
			}
		}
		text = text[:loc[0]] + value + text[loc[1]:]
	}
	return text, !globalToken.MatchString(text)
}

// RawContent returns the node text before global expansion: the localized
// string when the key resolves, Content otherwise. The root always reads "root".
func RawContent(n *Node, loc Localizer) string {
	if n.Kind == KindRoot {
		return "root"
	}
	if n.ContentKey != "" && loc != nil {
		if s, ok := loc.Text(n.ContentKey); ok {
			return s
		}
	}
	return n.Content
}
