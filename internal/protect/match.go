package protect

import (
	"path"
	"strings"
)

// matchGlobPattern matches a slash-separated path against a pattern where
// "**" spans any number of segments and other segments use path.Match syntax.
func matchGlobPattern(p, pattern string) bool {
	return matchSegments(strings.Split(p, "/"), strings.Split(pattern, "/"))
}

func matchSegments(segs, pattern []string) bool {
	for len(pattern) > 0 {
		head := pattern[0]
		if head == "**" {
			rest := pattern[1:]
			if len(rest) == 0 {
				return true
			}
			for i := 0; i <= len(segs); i++ {
				if matchSegments(segs[i:], rest) {
					return true
				}
			}
			return false
		}
		if len(segs) == 0 {
			return false
		}
		if ok, err := path.Match(head, segs[0]); err != nil || !ok {
			return false
		}
		segs, pattern = segs[1:], pattern[1:]
	}
	return len(segs) == 0
}
