package boundedlog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPushKeepsNewestFirst(t *testing.T) {
	l := New[string](3)
	l.Push("a")
	l.Push("b")

	assert.Equal(t, []string{"b", "a"}, l.Items())
	assert.Equal(t, 2, l.Len())
}

func TestLengthIsMinOfPushesAndCapacity(t *testing.T) {
	for _, capacity := range []int{1, 5, 20} {
		l := New[int](capacity)
		for n := 1; n <= 50; n++ {
			l.Push(n)

			require.Equal(t, min(n, capacity), l.Len(), "capacity %d after %d pushes", capacity, n)
			require.Equal(t, n, l.Items()[0], "newest entry must be first")
		}
	}
}

func TestEvictsOldestEntries(t *testing.T) {
	l := New[int](5)
	for n := 1; n <= 8; n++ {
		l.Push(n)
	}

	assert.Equal(t, []int{8, 7, 6, 5, 4}, l.Items())
}

func TestDuplicatesAllowed(t *testing.T) {
	l := New[string](5)
	l.Push("Failed to place trade")
	l.Push("Failed to place trade")

	assert.Equal(t, []string{"Failed to place trade", "Failed to place trade"}, l.Items())
}

func TestItemsIsACopy(t *testing.T) {
	l := New[int](2)
	l.Push(1)
	items := l.Items()
	items[0] = 99

	assert.Equal(t, []int{1}, l.Items())
}

func TestNonPositiveCapacity(t *testing.T) {
	l := New[int](0)
	l.Push(1)
	l.Push(2)

	assert.Equal(t, 1, l.Cap())
	assert.Equal(t, []int{2}, l.Items())
}
