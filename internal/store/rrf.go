package store

import (
	"sort"
)

const rrfK = 60.0

// ReciprocalRankFusion combines multiple lists of search results into a single ranked list.
// Score = Sum(1 / (k + rank))
func ReciprocalRankFusion(resultLists ...[]SearchResult) []SearchResult {
	type docScore struct {
		result SearchResult
		score  float64
	}
	scores := make(map[string]*docScore)

	for _, list := range resultLists {
		for rank, result := range list {
			// rank is 0-indexed here, so we use rank + 1
			rrfScore := 1.0 / (rrfK + float64(rank+1))

			if existing, ok := scores[result.Filepath]; ok {
				existing.score += rrfScore
				// A result coming from vector search carries no line matches;
				// if the FTS copy has them, keep those.
				if len(existing.result.Matches) == 0 && len(result.Matches) > 0 {
					existing.result.Matches = result.Matches
					existing.result.Snippet = result.Snippet
				}
			} else {
				scores[result.Filepath] = &docScore{
					result: result,
					score:  rrfScore,
				}
			}
		}
	}

	var fused []SearchResult
	for _, ds := range scores {
		ds.result.Score = ds.score
		fused = append(fused, ds.result)
	}

	sort.Slice(fused, func(i, j int) bool {
		return fused[i].Score > fused[j].Score
	})

	return fused
}
