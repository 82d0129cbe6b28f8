package store

import (
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	Status string
	Fee    int
	Notes  []string
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func setStatus(v string) Patch[record] {
	return func(r record) record {
		r.Status = v
		return r
	}
}

func setFee(v int) Patch[record] {
	return func(r record) record {
		r.Fee = v
		return r
	}
}

func addNote(n string) Patch[record] {
	return func(r record) record {
		notes := make([]string, 0, len(r.Notes)+1)
		r.Notes = append(append(notes, r.Notes...), n)
		return r
	}
}

func TestCommitIsIdempotent(t *testing.T) {
	s := New("record", record{Status: "created"}, testLogger())
	v := record{Status: "paid", Fee: 7}

	s.Commit(v)
	s.Commit(v)

	assert.Equal(t, v, s.Read())
	assert.Equal(t, v, s.Committed())
	assert.Zero(t, s.Outstanding())
}

func TestSetOptimisticIsVisibleImmediately(t *testing.T) {
	s := New("record", record{Status: "created"}, testLogger())

	tok := s.SetOptimistic("status", setStatus("paid"))

	assert.True(t, tok.Valid())
	assert.Equal(t, "status", tok.Field())
	assert.Equal(t, "paid", s.Read().Status)
	assert.Equal(t, "created", s.Committed().Status)
	assert.Equal(t, 1, s.Outstanding())
}

func TestRollbackRestoresPriorValue(t *testing.T) {
	s := New("record", record{Status: "created", Fee: 5}, testLogger())

	tok := s.SetOptimistic("fee", setFee(9))
	require.Equal(t, 9, s.Read().Fee)

	assert.True(t, s.Rollback(tok))
	assert.Equal(t, record{Status: "created", Fee: 5}, s.Read())
	assert.Zero(t, s.Outstanding())
}

func TestRollbackTwiceIsNoop(t *testing.T) {
	s := New("record", record{Fee: 5}, testLogger())

	tok := s.SetOptimistic("fee", setFee(9))
	require.True(t, s.Rollback(tok))

	s.SetOptimistic("fee", setFee(11))
	assert.False(t, s.Rollback(tok))
	assert.Equal(t, 11, s.Read().Fee)
}

func TestCommitReplaysOutstandingPatches(t *testing.T) {
	s := New("record", record{Status: "created", Fee: 5}, testLogger())

	tok := s.SetOptimistic("fee", setFee(9))
	s.Commit(record{Status: "paid", Fee: 5})

	assert.Equal(t, record{Status: "paid", Fee: 9}, s.Read())
	assert.Equal(t, record{Status: "paid", Fee: 5}, s.Committed())
	assert.Equal(t, 1, s.Outstanding())

	require.True(t, s.Rollback(tok))
	assert.Equal(t, record{Status: "paid", Fee: 5}, s.Read())
}

func TestConfirmSupersedesRollback(t *testing.T) {
	s := New("record", record{Fee: 5}, testLogger())

	tok := s.SetOptimistic("fee", setFee(9))
	require.True(t, s.Confirm(tok, setFee(9)))

	assert.False(t, s.Rollback(tok))
	assert.Equal(t, 9, s.Read().Fee)
	assert.Equal(t, 9, s.Committed().Fee)
}

func TestRollbackKeepsConcurrentEditOfOtherField(t *testing.T) {
	s := New("record", record{Status: "created", Fee: 5}, testLogger())

	feeTok := s.SetOptimistic("fee", setFee(9))
	s.SetOptimistic("status", setStatus("paid"))

	require.True(t, s.Rollback(feeTok))

	assert.Equal(t, record{Status: "paid", Fee: 5}, s.Read())
}

func TestRollbackDoesNotOverwriteNewerEditOfSameField(t *testing.T) {
	s := New("record", record{Fee: 5}, testLogger())

	older := s.SetOptimistic("fee", setFee(9))
	newer := s.SetOptimistic("fee", setFee(12))

	require.True(t, s.Rollback(older))
	assert.Equal(t, 12, s.Read().Fee)

	require.True(t, s.Rollback(newer))
	assert.Equal(t, 5, s.Read().Fee)
}

func TestConfirmReplaysRemainingPatches(t *testing.T) {
	s := New("record", record{Status: "created", Fee: 5}, testLogger())

	statusTok := s.SetOptimistic("status", setStatus("paid"))
	s.SetOptimistic("fee", setFee(9))

	found := s.Confirm(statusTok, func(r record) record {
		r.Status = "paid"
		return r
	})

	assert.True(t, found)
	assert.Equal(t, record{Status: "paid", Fee: 5}, s.Committed())
	assert.Equal(t, record{Status: "paid", Fee: 9}, s.Read())
	assert.Equal(t, 1, s.Outstanding())
	assert.False(t, s.Rollback(statusTok))
}

func TestConfirmOfResolvedTokenSkipsReconcile(t *testing.T) {
	s := New("record", record{Notes: []string{"a"}}, testLogger())

	tok := s.SetOptimistic("notes", addNote("b"))
	require.True(t, s.Confirm(tok, addNote("b")))

	assert.False(t, s.Confirm(tok, addNote("b")))
	assert.Equal(t, []string{"a", "b"}, s.Committed().Notes)
	assert.Equal(t, []string{"a", "b"}, s.Read().Notes)
}

func TestPatchesDoNotShareSlices(t *testing.T) {
	s := New("record", record{Notes: []string{"a"}}, testLogger())

	first := s.SetOptimistic("notes", addNote("b"))
	s.SetOptimistic("notes", addNote("c"))
	require.Equal(t, []string{"a", "b", "c"}, s.Read().Notes)

	require.True(t, s.Rollback(first))

	assert.Equal(t, []string{"a", "c"}, s.Read().Notes)
	assert.Equal(t, []string{"a"}, s.Committed().Notes)
}

func TestZeroTokenIsIgnored(t *testing.T) {
	s := New("record", record{Fee: 1}, testLogger())
	s.SetOptimistic("fee", setFee(2))

	assert.False(t, s.Rollback(Token{}))
	assert.Equal(t, 2, s.Read().Fee)
}

func TestConcurrentPatchesAndRollbacks(t *testing.T) {
	s := New("record", record{}, testLogger())

	const workers = 50
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tok := s.SetOptimistic(fmt.Sprintf("note-%d", i), addNote(fmt.Sprintf("n%d", i)))
			_ = s.Read()
			if i%2 == 0 {
				s.Rollback(tok)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, workers/2, s.Outstanding())
	assert.Len(t, s.Read().Notes, workers/2)
	assert.Empty(t, s.Committed().Notes)
}
