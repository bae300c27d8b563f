package fusion

import (
	"sort"

	"github.com/mealscan/mealscan/internal/geometry"
)

// Aggregation selects how a cluster's score is derived from its members.
type Aggregation int

const (
	// AggregateMax takes the highest member score.
	AggregateMax Aggregation = iota
	// AggregateWeightedMean takes the score-weighted mean of member scores.
	AggregateWeightedMean
)

// Options contains tunable parameters for weighted box fusion.
type Options struct {
	IoUThreshold float64     // members must overlap the seed above this
	ScoreFloor   float64     // clusters and seeds below this are dropped
	Aggregation  Aggregation // cluster score policy
}

// DefaultOptions returns the default fusion parameters.
func DefaultOptions() Options {
	return Options{
		IoUThreshold: 0.55,
		ScoreFloor:   0.20,
		Aggregation:  AggregateMax,
	}
}

// Cluster is the consensus for one physical object: detections from any
// source whose boxes overlap above the IoU threshold, reduced to one fused
// box, the highest-score member's label, and an aggregated score.
type Cluster struct {
	Box       geometry.Box
	Score     float64
	Label     string
	ClassID   int
	TopSource Source
	Members   []NormalizedDetection
}

// Fuse clusters detections from all sources by spatial overlap. It greedily
// seeds a cluster with the highest-remaining-score detection, absorbs every
// unclustered detection overlapping the seed above opts.IoUThreshold, and
// reduces each cluster to a score-weighted average box. Clusters whose
// aggregated score falls below opts.ScoreFloor are discarded. Empty input
// yields an empty (non-nil) result.
func Fuse(perSource [][]NormalizedDetection, opts Options) []Cluster {
	var all []NormalizedDetection
	for _, dets := range perSource {
		all = append(all, dets...)
	}
	if len(all) == 0 {
		return []Cluster{}
	}

	// Deterministic greedy order: score descending, larger area first on
	// ties so equal-score duplicates order stably.
	order := make([]int, len(all))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		da, db := all[order[a]], all[order[b]]
		if da.Score != db.Score {
			return da.Score > db.Score
		}
		return da.Box.Area() > db.Box.Area()
	})

	clustered := make([]bool, len(all))
	clusters := []Cluster{}

	for _, seedIdx := range order {
		if clustered[seedIdx] {
			continue
		}
		seed := all[seedIdx]
		if seed.Score < opts.ScoreFloor {
			// Remaining candidates are all below the floor.
			break
		}

		members := []NormalizedDetection{seed}
		clustered[seedIdx] = true
		for _, j := range order {
			if clustered[j] {
				continue
			}
			if geometry.IoU(seed.Box, all[j].Box) > opts.IoUThreshold {
				members = append(members, all[j])
				clustered[j] = true
			}
		}

		c := reduceCluster(members, opts.Aggregation)
		if c.Score >= opts.ScoreFloor {
			clusters = append(clusters, c)
		}
	}

	return clusters
}

// reduceCluster computes the fused box, score, and consensus label for a set
// of member detections. Members are ordered best-first.
func reduceCluster(members []NormalizedDetection, agg Aggregation) Cluster {
	top := members[0]

	var weight, sumX1, sumY1, sumX2, sumY2 float64
	var weightedScores float64
	maxScore := 0.0
	for _, m := range members {
		w := m.Score
		weight += w
		sumX1 += m.Box.MinX * w
		sumY1 += m.Box.MinY * w
		sumX2 += m.Box.MaxX * w
		sumY2 += m.Box.MaxY * w
		weightedScores += m.Score * w
		if m.Score > maxScore {
			maxScore = m.Score
		}
	}

	box := top.Box
	if weight > 0 {
		box = geometry.Box{
			MinX: sumX1 / weight,
			MinY: sumY1 / weight,
			MaxX: sumX2 / weight,
			MaxY: sumY2 / weight,
		}
	}

	score := maxScore
	if agg == AggregateWeightedMean && weight > 0 {
		score = weightedScores / weight
	}

	return Cluster{
		Box:       box,
		Score:     score,
		Label:     top.Label,
		ClassID:   top.ClassID,
		TopSource: top.Source,
		Members:   members,
	}
}
