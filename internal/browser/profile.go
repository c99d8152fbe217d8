package browser

import (
	"regexp"
	"strings"
)

const defaultProfile = "Default"

var profileDirPattern = regexp.MustCompile(`^(Default|Profile \d+|Guest Profile)$`)

// ResolveProfile splits a configured Chrome path into user data dir and
// profile directory. Operators often paste ".../User Data/Default" where
// Chrome wants ".../User Data" plus --profile-directory=Default. An explicit
// profile always wins. ok is false when dir is empty.
func ResolveProfile(dir, profile string) (userDataDir, profileDir string, ok bool) {
	dir = strings.TrimRight(strings.TrimSpace(dir), `/\`)
	profile = strings.TrimSpace(profile)
	if dir == "" {
		return "", "", false
	}

	if profile == "" {
		if i := strings.LastIndexAny(dir, `/\`); i > 0 {
			parent, base := dir[:i], dir[i+1:]
			parentBase := parent
			if j := strings.LastIndexAny(parent, `/\`); j >= 0 {
				parentBase = parent[j+1:]
			}
			if strings.EqualFold(parentBase, "User Data") || profileDirPattern.MatchString(base) {
				return parent, base, true
			}
		}
		profile = defaultProfile
	}
	return dir, profile, true
}
