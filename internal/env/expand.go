package env

import (
	"regexp"
	"strings"
)

// refPattern matches ${NAME}, $NAME and %NAME%, in that order of preference.
// Windows names never contain '$', so %$NAME% expands the inner reference.
var refPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}|\$([A-Za-z_][A-Za-z0-9_]*)|%([^%\s"'$]+)%`)

// Expand replaces variable references in s with their values from vars.
//
// Both the POSIX forms ($NAME, ${NAME}) and the Windows form (%NAME%) are
// recognized on every platform. References to names missing from vars are
// kept verbatim. Expansion is a single pass: substituted values are never
// scanned again.
func Expand(s string, vars Vars) string {
	if s == "" {
		return ""
	}
	matches := refPattern.FindAllStringSubmatchIndex(s, -1)
	if len(matches) == 0 {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	last := 0
	for _, m := range matches {
		b.WriteString(s[last:m[0]])
		last = m[1]
		name := ""
		for g := 1; g <= 3; g++ {
			if m[2*g] >= 0 {
				name = s[m[2*g]:m[2*g+1]]
				break
			}
		}
		if val, ok := vars[name]; ok {
			b.WriteString(val)
			continue
		}
		b.WriteString(s[m[0]:m[1]])
	}
	b.WriteString(s[last:])
	return b.String()
}
