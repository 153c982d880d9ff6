// Package dedup finds groups of buildings that likely describe the same
// physical structure. Scanning is read-only: it scores active buildings
// against each other and clusters them, while merging and excluding act on
// the results elsewhere. Results are cached per data generation.
package dedup

import (
	"context"
	"sort"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/wisteria/internal/repositories/building"
	"github.com/Ramsey-B/wisteria/internal/repositories/exclusion"
	"github.com/Ramsey-B/wisteria/pkg/metrics"
	"github.com/Ramsey-B/wisteria/pkg/models"
	"github.com/Ramsey-B/wisteria/pkg/similarity"
	"github.com/Ramsey-B/wisteria/pkg/tracing"
)

// Config contains configuration for the duplicate finder.
type Config struct {
	ScanLimit int           // Maximum buildings loaded per scan (default: 500)
	MaxGroups int           // Hard cap on the requested group limit (default: 100)
	CacheTTL  time.Duration // How long cached scan results stay fresh (default: 5m)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		ScanLimit: 500,
		MaxGroups: 100,
		CacheTTL:  5 * time.Minute,
	}
}

// Finder computes duplicate candidate groups over the active building set.
type Finder struct {
	log           ectologger.Logger
	buildingRepo  *building.Repository
	exclusionRepo *exclusion.Repository
	scorer        *similarity.Scorer
	cache         *Cache
	cfg           Config
}

// NewFinder creates a duplicate finder. The cache may be nil, in which case
// every call scans fresh.
func NewFinder(
	log ectologger.Logger,
	buildingRepo *building.Repository,
	exclusionRepo *exclusion.Repository,
	cache *Cache,
	cfg Config,
) *Finder {
	return &Finder{
		log:           log,
		buildingRepo:  buildingRepo,
		exclusionRepo: exclusionRepo,
		scorer:        similarity.NewScorer(),
		cache:         cache,
		cfg:           cfg,
	}
}

// FindGroups scans active buildings and returns duplicate candidate groups
// scoring at or above minSimilarity. Search narrows the scan to buildings
// whose normalized name contains the term. At most limit groups are returned,
// ordered by descending primary property count; TotalGroups reports how many
// groups the scan found before the limit was applied.
func (f *Finder) FindGroups(ctx context.Context, search string, minSimilarity float64, limit int) (*models.DuplicateGroupsResponse, error) {
	ctx, span := tracing.StartSpan(ctx, "dedup.Finder.FindGroups")
	defer span.End()

	if limit <= 0 || limit > f.cfg.MaxGroups {
		limit = f.cfg.MaxGroups
	}
	minSimilarity = clamp01(minSimilarity)

	log := f.log.WithContext(ctx).WithFields(map[string]any{
		"search":         search,
		"min_similarity": minSimilarity,
		"limit":          limit,
	})

	start := time.Now()

	if f.cache != nil {
		if resp, ok := f.cache.Get(ctx, search, minSimilarity, limit); ok {
			metrics.RecordDuplicateScan("hit", time.Since(start).Seconds(), len(resp.DuplicateGroups))
			return resp, nil
		}
	}

	buildings, err := f.buildingRepo.ListActiveForScan(ctx, search, f.cfg.ScanLimit)
	if err != nil {
		log.WithError(err).Error("Failed to load buildings for duplicate scan")
		return nil, err
	}

	excluded, err := f.loadExcludedPairs(ctx, buildings)
	if err != nil {
		log.WithError(err).Error("Failed to load exclusions for duplicate scan")
		return nil, err
	}

	groups := groupBuildings(buildings, excluded, minSimilarity, f.scorer)

	totalGroups := len(groups)
	if len(groups) > limit {
		groups = groups[:limit]
	}

	resp := &models.DuplicateGroupsResponse{
		DuplicateGroups: groups,
		TotalGroups:     totalGroups,
	}

	if f.cache != nil {
		if err := f.cache.Put(ctx, search, minSimilarity, limit, resp); err != nil {
			log.WithError(err).Warn("Failed to cache duplicate scan result")
		}
	}

	metrics.RecordDuplicateScan("miss", time.Since(start).Seconds(), len(resp.DuplicateGroups))

	log.WithFields(map[string]any{
		"scanned_buildings": len(buildings),
		"total_groups":      totalGroups,
	}).Debug("Completed duplicate scan")

	return resp, nil
}

// Invalidate orphans every cached scan result. Mutating callers (merge,
// revert, exclusion changes, ingest) invoke this after commit.
func (f *Finder) Invalidate(ctx context.Context) {
	if f.cache == nil {
		return
	}
	if err := f.cache.Bump(ctx); err != nil {
		f.log.WithContext(ctx).WithError(err).Warn("Failed to invalidate duplicate scan cache")
	}
}

// loadExcludedPairs loads every exclusion among the scanned buildings in one
// query and indexes them by normalized pair.
func (f *Finder) loadExcludedPairs(ctx context.Context, buildings []models.Building) (map[[2]int64]struct{}, error) {
	excluded := make(map[[2]int64]struct{})
	if len(buildings) < 2 {
		return excluded, nil
	}

	ids := make([]int64, 0, len(buildings))
	for i := range buildings {
		ids = append(ids, buildings[i].ID)
	}

	pairs, err := f.exclusionRepo.ListPairsAmong(ctx, ids)
	if err != nil {
		return nil, err
	}

	for _, p := range pairs {
		excluded[pairKey(p.Building1ID, p.Building2ID)] = struct{}{}
	}
	return excluded, nil
}

// groupBuildings clusters scanned buildings into duplicate candidate groups.
//
// Buildings are considered as primaries in descending property-count order
// (ties broken by ascending id), so every group's primary is the member with
// the most properties. Each unclaimed building scoring at or above
// minSimilarity against the prospective primary joins as a candidate, unless
// an exclusion covers it against any member already in the group. A building
// belongs to at most one group per scan; groups come out already ordered by
// primary property count.
func groupBuildings(buildings []models.Building, excluded map[[2]int64]struct{}, minSimilarity float64, scorer *similarity.Scorer) []models.DuplicateGroup {
	groups := make([]models.DuplicateGroup, 0)
	if len(buildings) < 2 {
		return groups
	}

	ordered := make([]*models.Building, len(buildings))
	for i := range buildings {
		ordered[i] = &buildings[i]
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].PropertyCount != ordered[j].PropertyCount {
			return ordered[i].PropertyCount > ordered[j].PropertyCount
		}
		return ordered[i].ID < ordered[j].ID
	})

	claimed := make(map[int64]bool, len(ordered))

	for _, primary := range ordered {
		if claimed[primary.ID] {
			continue
		}

		matches := scoreAgainst(primary, ordered, claimed, minSimilarity, scorer)
		if len(matches) == 0 {
			continue
		}

		// Admit the closest matches first so that when two candidates are
		// excluded against each other, the closer one keeps the slot and the
		// other stays free for a later group.
		sort.Slice(matches, func(i, j int) bool {
			if matches[i].score != matches[j].score {
				return matches[i].score > matches[j].score
			}
			return matches[i].building.ID < matches[j].building.ID
		})

		group := models.DuplicateGroup{
			Primary:    *primary,
			Candidates: make([]models.DuplicateCandidate, 0, len(matches)),
		}
		memberIDs := []int64{primary.ID}

		for _, m := range matches {
			if excludedAgainstAny(excluded, m.building.ID, memberIDs) {
				continue
			}
			group.Candidates = append(group.Candidates, models.DuplicateCandidate{
				Building:   *m.building,
				Similarity: m.score,
				Breakdown:  m.breakdown,
			})
			memberIDs = append(memberIDs, m.building.ID)
		}

		if len(group.Candidates) == 0 {
			continue
		}

		for _, id := range memberIDs {
			claimed[id] = true
		}
		groups = append(groups, group)
	}

	return groups
}

// scoredMatch pairs a building with its similarity against a prospective
// group primary.
type scoredMatch struct {
	building  *models.Building
	score     float64
	breakdown models.SimilarityBreakdown
}

// scoreAgainst scores every unclaimed building against the prospective
// primary and keeps those at or above the threshold.
func scoreAgainst(primary *models.Building, ordered []*models.Building, claimed map[int64]bool, minSimilarity float64, scorer *similarity.Scorer) []scoredMatch {
	matches := make([]scoredMatch, 0)
	for _, other := range ordered {
		if other.ID == primary.ID || claimed[other.ID] {
			continue
		}
		score, breakdown := scorer.Compare(primary, other)
		if score >= minSimilarity {
			matches = append(matches, scoredMatch{building: other, score: score, breakdown: breakdown})
		}
	}
	return matches
}

// excludedAgainstAny reports whether an exclusion covers the candidate
// against any current group member.
func excludedAgainstAny(excluded map[[2]int64]struct{}, candidateID int64, memberIDs []int64) bool {
	for _, id := range memberIDs {
		if _, ok := excluded[pairKey(candidateID, id)]; ok {
			return true
		}
	}
	return false
}

// pairKey normalizes two building ids into the map key form used for
// exclusion lookups.
func pairKey(a, b int64) [2]int64 {
	b1, b2 := exclusion.NormalizePair(a, b)
	return [2]int64{b1, b2}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
