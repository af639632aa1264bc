package ring

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDropOldestKeepsMostRecent(t *testing.T) {
	r := New(3, DropOldest)
	for i := 1; i <= 10; i++ {
		r.Push(line(i))
	}
	assert.Equal(t, 3, r.Count())
	assert.Equal(t, uint64(7), r.Dropped())
	assert.Equal(t, []string{"M|producer|8", "M|producer|9", "M|producer|10"}, r.Snapshot())
}

func TestDropOldestCapacityOneHoldsOnlyLatest(t *testing.T) {
	r := New(1, DropOldest)
	r.Push("a")
	r.Push("b")
	r.Push("c")
	got, ok := r.PeekFront()
	require.True(t, ok)
	assert.Equal(t, "c", got)
	assert.Equal(t, 1, r.Count())
}

func TestDropNewestDiscardsIncoming(t *testing.T) {
	r := New(2, DropNewest)
	assert.Equal(t, Ok, r.Push("a"))
	assert.Equal(t, Ok, r.Push("b"))
	assert.Equal(t, Dropped, r.Push("c"))
	assert.Equal(t, []string{"a", "b"}, r.Snapshot())
	assert.Equal(t, uint64(1), r.Dropped())
}

func TestBlockReportsFullWithoutMutating(t *testing.T) {
	r := New(1, Block)
	assert.Equal(t, Ok, r.Push("a"))
	assert.Equal(t, Full, r.Push("b"))
	assert.Equal(t, []string{"a"}, r.Snapshot())
}

func TestPeekPopSeparation(t *testing.T) {
	r := New(2, DropOldest)
	r.Push("a")
	r.Push("b")

	front, ok := r.PeekFront()
	require.True(t, ok)
	assert.Equal(t, "a", front)
	assert.Equal(t, 2, r.Count(), "peek must not remove")

	r.PopFront()
	assert.Equal(t, 1, r.Count())
	assert.Equal(t, uint64(1), r.Delivered())
}

func TestPopFrontOnEmptyIsNoop(t *testing.T) {
	r := New(1, DropOldest)
	r.PopFront()
	assert.Equal(t, uint64(0), r.Delivered())
}

func line(n int) string {
	return "M|producer|" + strconv.Itoa(n)
}
