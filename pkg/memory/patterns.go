package memory

import "regexp"

// maxRecentPatterns caps the per-user recent-patterns list. Oldest labels are
// evicted on overflow; duplicates are neither re-inserted nor reordered.
const maxRecentPatterns = 10

type patternFamily struct {
	label string
	re    *regexp.Regexp
}

// Elemental and growth keyword families. The detector appends any newly
// matched label that is not already on the user's list.
var patternFamilies = []patternFamily{
	{label: "fire", re: regexp.MustCompile(`(?i)\b(fire|flame|burn\w*|ignite\w*|spark\w*|blaze)`)},
	{label: "water", re: regexp.MustCompile(`(?i)\b(water|flow\w*|river|ocean|wave|tide|rain)`)},
	{label: "earth", re: regexp.MustCompile(`(?i)\b(earth|ground\w*|root\w*|mountain|stone|soil)`)},
	{label: "air", re: regexp.MustCompile(`(?i)\b(air|wind|breath\w*|breeze|sky)`)},
	{label: "transformation", re: regexp.MustCompile(`(?i)\b(transform\w*|chang\w*|shift\w*|evolv\w*|metamorpho\w*)`)},
	{label: "insight", re: regexp.MustCompile(`(?i)\b(insight\w*|realiz\w*|understand\w*|clarity|epiphany|awaken\w*)`)},
}

// detectPatterns returns the family labels triggered by content, in family
// declaration order.
func detectPatterns(content string) []string {
	var found []string
	for _, fam := range patternFamilies {
		if fam.re.MatchString(content) {
			found = append(found, fam.label)
		}
	}
	return found
}

// mergePatterns folds newly detected labels into a user's recent-patterns
// list, preserving insertion order and the cap.
func mergePatterns(existing, detected []string) []string {
	for _, label := range detected {
		dup := false
		for _, have := range existing {
			if have == label {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		existing = append(existing, label)
		if len(existing) > maxRecentPatterns {
			existing = existing[len(existing)-maxRecentPatterns:]
		}
	}
	return existing
}
