package partition

import (
	"fmt"
	"math"
	"math/rand"
)

// ParallelShuffle shuffles n-element sequences in lockstep. Every swap
// function is driven by its own generator seeded with seed, so all
// sequences receive the same permutation.
func ParallelShuffle(seed int64, n int, swaps ...func(i, j int)) {
	if seed == 0 {
		seed = DefaultSeed
	}
	for _, swap := range swaps {
		rand.New(rand.NewSource(seed)).Shuffle(n, swap)
	}
}

// TrainTestSplit shuffles every data set in lockstep and splits each into
// a leading train part of floor((1-testFraction)*N) rows and a trailing
// test part. All data sets must have the same row count. The returned
// parts alias the shuffled inputs.
func TrainTestSplit(seed int64, testFraction float64, data ...*Data) (train, test []Data, err error) {
	if len(data) == 0 {
		return nil, nil, fmt.Errorf("partition: nothing to split")
	}
	if testFraction < 0 || testFraction > 1 {
		return nil, nil, fmt.Errorf("partition: test fraction %v outside [0, 1]", testFraction)
	}
	n := data[0].Rows()
	swaps := make([]func(i, j int), 0, len(data))
	for i, d := range data {
		if err := d.validate(); err != nil {
			return nil, nil, fmt.Errorf("data %d: %w", i, err)
		}
		if d.Rows() != n {
			return nil, nil, fmt.Errorf("partition: data %d has %d rows, want %d", i, d.Rows(), n)
		}
		swaps = append(swaps, d.swapper())
	}
	ParallelShuffle(seed, n, swaps...)

	cut := int(math.Floor((1 - testFraction) * float64(n)))
	for _, d := range data {
		train = append(train, d.slice(0, cut))
		test = append(test, d.slice(cut, n))
	}
	return train, test, nil
}
