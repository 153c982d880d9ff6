package models

// SimilarityBreakdown carries the component scores behind a composite similarity.
// FloorsMatch is nil when either building has no known floor count, in which case
// floors are excluded from the composite instead of counted against it.
type SimilarityBreakdown struct {
	NameSimilarity    float64 `json:"name_similarity"`
	AddressSimilarity float64 `json:"address_similarity"`
	FloorsMatch       *bool   `json:"floors_match,omitempty"`
}

// DuplicateCandidate is one building suspected to duplicate a group's primary
type DuplicateCandidate struct {
	Building   Building            `json:"building"`
	Similarity float64             `json:"similarity"`
	Breakdown  SimilarityBreakdown `json:"breakdown"`
}

// DuplicateGroup is an ephemeral cluster of suspected duplicates. The primary is
// the member with the most properties (lowest id on ties); every candidate scored
// at or above the requested threshold against the cluster.
type DuplicateGroup struct {
	Primary    Building             `json:"primary"`
	Candidates []DuplicateCandidate `json:"candidates"`
}

// DuplicateGroupsResponse is the response for the duplicate building scan
type DuplicateGroupsResponse struct {
	DuplicateGroups []DuplicateGroup `json:"duplicate_groups"`
	TotalGroups     int              `json:"total_groups"`
}
