package core

import (
	"regexp"
	"strings"
)

// Expand replaces every {name} placeholder in template with variables[name].
// It returns the name of the first placeholder without a bound value.
func Expand(template string, variables map[string]string) (expanded string, unbound string) {
	var builder strings.Builder
	last := 0
	for _, location := range placeholderPattern.FindAllStringSubmatchIndex(template, -1) {
		name := template[location[2]:location[3]]
		value, found := variables[name]
		if !found {
			return "", name
		}
		builder.WriteString(template[last:location[0]])
		builder.WriteString(value)
		last = location[1]
	}
	builder.WriteString(template[last:])
	return builder.String(), ""
}

var placeholderPattern = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)
