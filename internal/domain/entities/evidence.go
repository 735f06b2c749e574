package entities

// Evidence is an immutable transcript excerpt justifying an extracted fact.
// Every create/update coming from the model must carry at least one.
type Evidence struct {
	Quote     string `json:"quote"`
	Speaker   string `json:"speaker,omitempty"`
	Timestamp string `json:"timestamp,omitempty"` // HH:MM:SS offset into the meeting
}

// MergeEvidence appends src items to dst, skipping exact duplicates. Existing
// evidence is never replaced or reordered.
func MergeEvidence(dst, src []Evidence) []Evidence {
	seen := make(map[Evidence]struct{}, len(dst))
	for _, ev := range dst {
		seen[ev] = struct{}{}
	}
	for _, ev := range src {
		if _, ok := seen[ev]; ok {
			continue
		}
		seen[ev] = struct{}{}
		dst = append(dst, ev)
	}
	return dst
}
