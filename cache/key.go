package cache

import "strings"

// Key joins non-empty parts with "_": Key("daily", "TCS") == "daily_TCS"
// Identical requests therefore always resolve to the same artifact.
func Key(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "_")
}
