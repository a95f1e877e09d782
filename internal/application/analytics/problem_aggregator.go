package analytics

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/tf-oj/student-analytics/internal/domain/problem"
	"github.com/tf-oj/student-analytics/internal/domain/stats"
	"github.com/tf-oj/student-analytics/internal/domain/submission"
)

// DefaultTopTags caps the tag histogram when the caller does not say
// otherwise.
const DefaultTopTags = 20

// ProblemAggregation is everything derived from the user's cumulative
// attempt-status rows joined against problem metadata.
type ProblemAggregation struct {
	Completion stats.Completion
	Difficulty []stats.DifficultyCount
	Tags       []stats.TagCount
}

// ProblemAggregator joins a user's attempt-status rows against problem
// metadata fetched in one batch per domain, all domains in parallel.
type ProblemAggregator struct {
	statuses problem.StatusSource
	metadata problem.MetadataSource
}

// NewProblemAggregator creates a ProblemAggregator over the given sources.
func NewProblemAggregator(statuses problem.StatusSource, metadata problem.MetadataSource) *ProblemAggregator {
	return &ProblemAggregator{statuses: statuses, metadata: metadata}
}

// Aggregate computes completion counts, the difficulty histogram and the
// capped tag histogram. A user with no attempt rows yields zero-valued
// completion and empty histograms, not an error. Attempted problems with
// no metadata row stay in the completion totals but are dropped from the
// difficulty and tag histograms.
func (a *ProblemAggregator) Aggregate(ctx context.Context, userID int64, topTags int) (*ProblemAggregation, error) {
	if topTags <= 0 {
		topTags = DefaultTopTags
	}

	rows, err := a.statuses.StatusesByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("analytics: aggregate problems for user %d: %w", userID, err)
	}
	if len(rows) == 0 {
		return &ProblemAggregation{
			Difficulty: []stats.DifficultyCount{},
			Tags:       []stats.TagCount{},
		}, nil
	}

	solvedByRef := make(map[submission.ProblemRef]bool, len(rows))
	byDomain := make(map[string][]int64)
	agg := &ProblemAggregation{}

	for _, row := range rows {
		solved := row.Solved()
		if solved {
			agg.Completion.Solved++
		}
		if row.Starred {
			agg.Completion.Starred++
		}
		solvedByRef[row.Ref()] = solved
		byDomain[row.Domain] = append(byDomain[row.Domain], row.ProblemID)
	}

	agg.Completion.Attempted = len(rows)
	agg.Completion.CompletionRate = round2(float64(agg.Completion.Solved) / float64(agg.Completion.Attempted) * 100)

	// One batched metadata fetch per domain, all domains concurrently.
	domains := make([]string, 0, len(byDomain))
	for d := range byDomain {
		domains = append(domains, d)
	}
	results := make([][]problem.Metadata, len(domains))

	g, gctx := errgroup.WithContext(ctx)
	for i, d := range domains {
		i, d := i, d
		g.Go(func() error {
			metas, err := a.metadata.MetadataBatch(gctx, d, byDomain[d])
			if err != nil {
				return fmt.Errorf("analytics: metadata batch for domain %q: %w", d, err)
			}
			results[i] = metas
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	type counter struct{ attempted, solved int }
	byDifficulty := make(map[int]*counter)
	byTag := make(map[string]*counter)

	for _, metas := range results {
		for _, meta := range metas {
			solved, attempted := solvedByRef[meta.Ref()]
			if !attempted {
				continue
			}

			c := byDifficulty[meta.Difficulty]
			if c == nil {
				c = &counter{}
				byDifficulty[meta.Difficulty] = c
			}
			c.attempted++
			if solved {
				c.solved++
			}

			for _, tag := range meta.Tags {
				if tag == "" {
					continue
				}
				tc := byTag[tag]
				if tc == nil {
					tc = &counter{}
					byTag[tag] = tc
				}
				tc.attempted++
				if solved {
					tc.solved++
				}
			}
		}
	}

	agg.Difficulty = make([]stats.DifficultyCount, 0, len(byDifficulty))
	for difficulty, c := range byDifficulty {
		agg.Difficulty = append(agg.Difficulty, stats.DifficultyCount{
			Difficulty: difficulty,
			Attempted:  c.attempted,
			Solved:     c.solved,
		})
	}
	sort.Slice(agg.Difficulty, func(i, j int) bool {
		return agg.Difficulty[i].Difficulty < agg.Difficulty[j].Difficulty
	})

	agg.Tags = make([]stats.TagCount, 0, len(byTag))
	for tag, c := range byTag {
		agg.Tags = append(agg.Tags, stats.TagCount{Tag: tag, Attempted: c.attempted, Solved: c.solved})
	}
	sort.Slice(agg.Tags, func(i, j int) bool {
		if agg.Tags[i].Attempted != agg.Tags[j].Attempted {
			return agg.Tags[i].Attempted > agg.Tags[j].Attempted
		}
		return agg.Tags[i].Tag < agg.Tags[j].Tag
	})
	if len(agg.Tags) > topTags {
		agg.Tags = agg.Tags[:topTags]
	}

	return agg, nil
}
