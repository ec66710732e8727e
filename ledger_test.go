package main

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerAddAndContains(t *testing.T) {
	l := newLedger()

	assert.False(t, l.Contains("Marie Curie"))
	assert.True(t, l.Add(Entry{Name: "Marie Curie", Category: "Physicienne"}))
	assert.True(t, l.Contains("Marie Curie"))
	assert.Equal(t, 1, l.Count())
}

func TestLedgerContainsIsCaseInsensitive(t *testing.T) {
	l := newLedger()
	l.Add(Entry{Name: "Marie Curie"})

	assert.True(t, l.Contains("marie curie"))
	assert.True(t, l.Contains("MARIE CURIE"))
}

func TestLedgerRefusesDuplicates(t *testing.T) {
	l := newLedger()

	require.True(t, l.Add(Entry{Name: "Frida Kahlo"}))
	assert.False(t, l.Add(Entry{Name: "Frida Kahlo"}))
	assert.False(t, l.Add(Entry{Name: "frida kahlo"}))
	assert.Equal(t, 1, l.Count())
}

func TestLedgerEntriesPreservesOrderAndCopies(t *testing.T) {
	l := newLedger()
	l.Add(Entry{Name: "Ada Lovelace"})
	l.Add(Entry{Name: "Rosa Parks"})

	entries := l.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "Ada Lovelace", entries[0].Name)
	assert.Equal(t, "Rosa Parks", entries[1].Name)

	entries[0].Name = "mutated"
	assert.Equal(t, "Ada Lovelace", l.Entries()[0].Name)
}

func TestLedgerConcurrentAdds(t *testing.T) {
	l := newLedger()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Add(Entry{Name: "Simone Veil"})
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, l.Count())
}
