package axe

// TagInfo describes one rule tag the engine understands.
type TagInfo struct {
	Tag         string `json:"tag"`
	Standard    string `json:"standard"`
	Description string `json:"description"`
}

// KnownTags lists the rule tags most often used to scope a run, in the
// order the engine documents them.
var KnownTags = []TagInfo{
	{Tag: "wcag2a", Standard: "WCAG 2.0", Description: "Level A success criteria"},
	{Tag: "wcag2aa", Standard: "WCAG 2.0", Description: "Level AA success criteria"},
	{Tag: "wcag2aaa", Standard: "WCAG 2.0", Description: "Level AAA success criteria"},
	{Tag: "wcag21a", Standard: "WCAG 2.1", Description: "Level A criteria added in 2.1"},
	{Tag: "wcag21aa", Standard: "WCAG 2.1", Description: "Level AA criteria added in 2.1"},
	{Tag: "wcag22aa", Standard: "WCAG 2.2", Description: "Level AA criteria added in 2.2"},
	{Tag: "best-practice", Standard: "Deque", Description: "Common practice outside any conformance level"},
	{Tag: "section508", Standard: "Section 508", Description: "US federal procurement rules"},
	{Tag: "EN-301-549", Standard: "EN 301 549", Description: "European ICT accessibility standard"},
	{Tag: "ACT", Standard: "W3C ACT", Description: "Rules aligned with an ACT rule"},
	{Tag: "experimental", Standard: "Deque", Description: "Rules still under evaluation, off by default"},
}

// IsKnownTag reports whether tag appears in KnownTags.
func IsKnownTag(tag string) bool {
	for _, t := range KnownTags {
		if t.Tag == tag {
			return true
		}
	}
	return false
}
