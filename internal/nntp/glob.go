package nntp

// MatchGroupGlob reports whether name matches an INN2-style shell glob
// (`*` matches any run of characters, `?` matches exactly one), the same
// algorithm the teacher uses for peering pattern matching, adapted here for
// the matcher registry's group-glob restriction (spec.md §4.4).
func MatchGroupGlob(name, pattern string) bool {
	return matchGlobRecursive(name, pattern, 0, 0)
}

func matchGlobRecursive(text, pattern string, textIdx, patternIdx int) bool {
	if patternIdx == len(pattern) && textIdx == len(text) {
		return true
	}
	if patternIdx == len(pattern) {
		return false
	}
	if pattern[patternIdx] == '*' {
		for i := textIdx; i <= len(text); i++ {
			if matchGlobRecursive(text, pattern, i, patternIdx+1) {
				return true
			}
		}
		return false
	}
	if textIdx == len(text) {
		for i := patternIdx; i < len(pattern); i++ {
			if pattern[i] != '*' {
				return false
			}
		}
		return true
	}
	if pattern[patternIdx] == '?' || pattern[patternIdx] == text[textIdx] {
		return matchGlobRecursive(text, pattern, textIdx+1, patternIdx+1)
	}
	return false
}
