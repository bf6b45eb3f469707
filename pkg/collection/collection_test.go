package collection

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUniqueKeepsFirstOccurrenceOrder(t *testing.T) {
	assert.Equal(t, []string{"b", "a", "c"}, Unique([]string{"b", "a", "b", "c", "a"}))
	assert.Empty(t, Unique([]string(nil)))
}

func TestMapAndPluck(t *testing.T) {
	type row struct{ id int }
	rows := []row{{1}, {2}, {3}}

	assert.Equal(t, []string{"1", "2", "3"}, Map(rows, func(r row) string { return strconv.Itoa(r.id) }))
	assert.Equal(t, []int{1, 2, 3}, Pluck(rows, func(r row) int { return r.id }))
}

func TestContains(t *testing.T) {
	even := func(n int) bool { return n%2 == 0 }
	assert.True(t, Contains([]int{1, 3, 4}, even))
	assert.False(t, Contains([]int{1, 3}, even))
	assert.False(t, Contains(nil, even))
}
