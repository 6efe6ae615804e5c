package index

import "fmt"

// Tier is the trust level assigned to a document at ingestion time.
// It affects retrieval ranking via a multiplicative weight.
type Tier string

const (
	TierGold     Tier = "gold"
	TierStandard Tier = "standard"
	TierArchive  Tier = "archive"
)

// tierWeights maps each tier to its retrieval boost. Changing a weight is
// a redeploy, not a data mutation.
var tierWeights = map[Tier]float64{
	TierGold:     2.0,
	TierStandard: 1.0,
	TierArchive:  0.7,
}

// ParseTier validates a tier name. Unknown tiers are rejected so a typo
// never creates a phantom trust level.
func ParseTier(s string) (Tier, error) {
	t := Tier(s)
	if _, ok := tierWeights[t]; !ok {
		return "", fmt.Errorf("unknown tier %q (want gold, standard or archive)", s)
	}
	return t, nil
}

// Weight returns the retrieval boost for the tier. Unknown tiers weigh
// as standard.
func (t Tier) Weight() float64 {
	if w, ok := tierWeights[t]; ok {
		return w
	}
	return 1.0
}

// Valid reports whether the tier is one of the closed set.
func (t Tier) Valid() bool {
	_, ok := tierWeights[t]
	return ok
}

// Tiers lists all valid tiers from highest to lowest trust.
func Tiers() []Tier {
	return []Tier{TierGold, TierStandard, TierArchive}
}
