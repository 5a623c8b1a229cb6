package detect

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/harvest-cli/internal/detect/detecttest"
)

var _ Clock = (*detecttest.StepClock)(nil)

// growingList grows by one entry per nudge until it reaches limit (limit < 0 grows forever).
type growingList struct {
	size   int
	limit  int
	emptyN int // number of initial List calls that return nothing
	lists  int
	nudges int
}

func (g *growingList) probe() Probe[int] {
	return Probe[int]{
		List: func(context.Context) ([]int, error) {
			g.lists++
			if g.emptyN > 0 {
				g.emptyN--
				return nil, nil
			}
			out := make([]int, g.size)
			for i := range out {
				out[i] = i + 1
			}
			return out, nil
		},
		Nudge: func(_ context.Context, last int) error {
			g.nudges++
			if g.limit < 0 || g.size < g.limit {
				g.size++
			}
			return nil
		},
	}
}

func TestConverge_StopsGrowing(t *testing.T) {
	for _, k := range []int{1, 3, 10} {
		g := &growingList{size: 1, limit: 1 + k}
		res, err := Converge(context.Background(), detecttest.New(time.Unix(0, 0)), g.probe(), ConvergeOptions{
			MaxIterations: 100,
			Settle:        1200 * time.Millisecond,
		})
		require.NoError(t, err)
		assert.True(t, res.Converged)
		assert.LessOrEqual(t, res.Iterations, k+1, "k=%d", k)
		assert.Len(t, res.Entries, 1+k)
	}
}

func TestConverge_GrowsForeverHitsCap(t *testing.T) {
	g := &growingList{size: 1, limit: -1}
	res, err := Converge(context.Background(), detecttest.New(time.Unix(0, 0)), g.probe(), ConvergeOptions{MaxIterations: 7})
	require.NoError(t, err)
	assert.False(t, res.Converged)
	assert.Equal(t, 7, res.Iterations)
	assert.Len(t, res.Entries, 8)
}

func TestConverge_EmptyThenLoads(t *testing.T) {
	g := &growingList{size: 4, limit: 4, emptyN: 2}
	clock := detecttest.New(time.Unix(0, 0))
	res, err := Converge(context.Background(), clock, g.probe(), ConvergeOptions{
		MaxIterations: 10,
		EmptyWait:     time.Second,
		Settle:        time.Second,
	})
	require.NoError(t, err)
	assert.True(t, res.Converged)
	assert.Len(t, res.Entries, 4)
	assert.Equal(t, time.Second, clock.Slept()[0])
}

func TestConverge_NeverLoads(t *testing.T) {
	g := &growingList{emptyN: 1000}
	res, err := Converge(context.Background(), detecttest.New(time.Unix(0, 0)), g.probe(), ConvergeOptions{MaxIterations: 5})
	require.NoError(t, err)
	assert.False(t, res.Converged)
	assert.Empty(t, res.Entries)
	assert.Equal(t, 5, res.Iterations)
	assert.Zero(t, g.nudges)
}

func TestConverge_ListError(t *testing.T) {
	probe := Probe[int]{
		List:  func(context.Context) ([]int, error) { return nil, errors.New("session lost") },
		Nudge: func(context.Context, int) error { return nil },
	}
	_, err := Converge(context.Background(), detecttest.New(time.Unix(0, 0)), probe, ConvergeOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session lost")
}
