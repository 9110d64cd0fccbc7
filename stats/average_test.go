package stats

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFold(t *testing.T) {
	require := require.New(t)

	agg := Aggregate{}.Fold(10)
	require.Equal(Aggregate{Average: 10, Count: 1}, agg)

	agg = agg.Fold(20)
	require.Equal(Aggregate{Average: 15, Count: 2}, agg)

	agg = agg.Fold(0)
	require.Equal(int64(3), agg.Count)
	require.InDelta(10, agg.Average, 1e-9)
}

func TestFoldOrderIndependence(t *testing.T) {
	require := require.New(t)

	values := []float64{3, 1, 4, 1.5, 9, 2.6, 5, 3.5}
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	orders := [][]int{
		{0, 1, 2, 3, 4, 5, 6, 7},
		{7, 6, 5, 4, 3, 2, 1, 0},
		{3, 0, 7, 1, 5, 2, 6, 4},
	}
	for _, order := range orders {
		agg := Aggregate{}
		for _, i := range order {
			agg = agg.Fold(values[i])
		}
		require.EqualValues(len(values), agg.Count)
		require.InDelta(mean, agg.Average, 1e-9)
	}
}

func TestRunningAverages(t *testing.T) {
	require := require.New(t)

	averages := RunningAverages{}
	averages.Observe("monday 09:00", 10)
	averages.Observe("monday 09:15", 7)
	averages.Observe("monday 09:00", 20)

	require.Len(averages, 2)
	require.Equal(Aggregate{Average: 15, Count: 2}, averages["monday 09:00"])
	require.Equal(Aggregate{Average: 7, Count: 1}, averages["monday 09:15"])
}
