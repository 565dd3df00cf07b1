package ratelimit

import (
	"strings"
)

// Match returns the first rule whose method and pattern match the request, or nil.
func Match(path, method string, rules []Rule) *Rule {
	segments := splitPath(path)
	for i := range rules {
		rule := &rules[i]
		if rule.Method != method {
			continue
		}
		if matchSegments(splitPath(rule.Pattern), segments) {
			return rule
		}
	}
	return nil
}

func splitPath(p string) []string {
	return strings.Split(strings.Trim(p, "/"), "/")
}

func matchSegments(pattern, path []string) bool {
	if len(pattern) != len(path) {
		return false
	}
	for i, seg := range pattern {
		if seg != "*" && seg != path[i] {
			return false
		}
	}
	return true
}
