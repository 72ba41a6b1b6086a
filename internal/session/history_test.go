package session

import (
	"fmt"
	"testing"
	"time"

	assert_ "github.com/stretchr/testify/assert"
)

func TestHistory_NewestFirst(t *testing.T) {
	assert := assert_.New(t)

	h := NewHistory(10)
	h.Add(Record{SessionID: "a", FinishedAt: time.Now()})
	h.Add(Record{SessionID: "b", FinishedAt: time.Now()})
	h.Add(Record{SessionID: "c", FinishedAt: time.Now()})

	records := h.List()
	assert.Len(records, 3)
	assert.Equal(ID("c"), records[0].SessionID)
	assert.Equal(ID("a"), records[2].SessionID)
}

func TestHistory_Cap(t *testing.T) {
	assert := assert_.New(t)

	h := NewHistory(50)
	for i := 0; i < 60; i++ {
		h.Add(Record{SessionID: ID(fmt.Sprintf("s%d", i))})
	}
	records := h.List()
	assert.Len(records, 50, "history is bounded")
	assert.Equal(ID("s59"), records[0].SessionID, "newest record survives")
	assert.Equal(ID("s10"), records[49].SessionID, "oldest records are evicted")
}

func TestHistory_Clear(t *testing.T) {
	assert := assert_.New(t)

	h := NewHistory(10)
	h.Add(Record{SessionID: "a"})
	h.Clear()
	assert.Empty(h.List())

	// Usable after clearing
	h.Add(Record{SessionID: "b"})
	assert.Len(h.List(), 1)
}

func TestHistory_ListIsCopy(t *testing.T) {
	assert := assert_.New(t)

	h := NewHistory(10)
	h.Add(Record{SessionID: "a"})
	records := h.List()
	records[0].SessionID = "mutated"
	assert.Equal(ID("a"), h.List()[0].SessionID)
}
