package paths

import "fmt"

// MergePathData folds a slice of per-file PathData results into one,
// using the pairwise tree reduction from spec.md §4.4: each round
// merges (v[0],v[1]), (v[2],v[3]), ... into the even-indexed slot and
// physically drops the odd-indexed half before the next round, so
// peak memory is bounded by roughly one round's worth of inputs
// rather than the sum of all of them ("monotonic memory"). A trailing
// unpaired element carries over to the next round untouched.
//
// Returns ErrEmptyMerge if data is empty.
func MergePathData(data []*PathData) (*PathData, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("paths: merge path data: %w", ErrEmptyMerge)
	}

	round := make([]*PathData, len(data))
	copy(round, data)

	for len(round) > 1 {
		next := make([]*PathData, 0, (len(round)+1)/2)
		for i := 0; i+1 < len(round); i += 2 {
			if err := round[i].MergeFrom(round[i+1]); err != nil {
				return nil, err
			}
			next = append(next, round[i])
			round[i+1] = nil // release absorbed half before the next round
		}
		if len(round)%2 == 1 {
			next = append(next, round[len(round)-1])
		}
		round = next
	}

	return round[0], nil
}
