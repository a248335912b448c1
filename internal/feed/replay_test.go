package feed

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReplayBuffer_Since(t *testing.T) {
	rb := NewReplayBuffer(10)
	for i := int64(1); i <= 5; i++ {
		rb.Push(i, []byte(fmt.Sprint(i)))
	}

	got := rb.Since(2)
	assert.Len(t, got, 3)
	assert.Equal(t, "3", string(got[0]))
	assert.Equal(t, "5", string(got[2]))
	assert.Empty(t, rb.Since(5))
}

func TestReplayBuffer_Wraparound(t *testing.T) {
	rb := NewReplayBuffer(3)
	for i := int64(1); i <= 7; i++ {
		rb.Push(i, []byte(fmt.Sprint(i)))
	}

	assert.Equal(t, 3, rb.Len())
	got := rb.Since(0)
	assert.Equal(t, [][]byte{[]byte("5"), []byte("6"), []byte("7")}, got)
}

func TestReplayBuffer_CopiesData(t *testing.T) {
	rb := NewReplayBuffer(2)
	data := []byte("abc")
	rb.Push(1, data)
	data[0] = 'x'

	assert.Equal(t, "abc", string(rb.Since(0)[0]))
}

func TestReplayBuffer_Empty(t *testing.T) {
	rb := NewReplayBuffer(0)
	assert.Equal(t, 0, rb.Len())
	assert.Nil(t, rb.Since(0))
}
