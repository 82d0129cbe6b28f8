// Package sequencer discards results of superseded asynchronous requests.
package sequencer

import (
	"sync"
	"sync/atomic"
)

// Channel names the stream of fetches and writes feeding one store of an
// order aggregate.
type Channel string

const (
	ChannelStatus      Channel = "status"
	ChannelNotes       Channel = "notes"
	ChannelItems       Channel = "items"
	ChannelAttachments Channel = "attachments"
	ChannelPayment     Channel = "payment"
	ChannelQuotes      Channel = "quotes"
	ChannelRates       Channel = "rates"
)

// Sequencer hands out increasing request numbers for one channel. Only the
// most recently issued number is current.
type Sequencer struct {
	latest atomic.Uint64
}

// Begin issues a new request number, making every earlier one stale.
func (s *Sequencer) Begin() uint64 {
	return s.latest.Add(1)
}

func (s *Sequencer) IsCurrent(seq uint64) bool {
	return seq != 0 && s.latest.Load() == seq
}

func (s *Sequencer) Latest() uint64 {
	return s.latest.Load()
}

// Set keeps one Sequencer per channel.
type Set struct {
	mutex      sync.Mutex
	sequencers map[Channel]*Sequencer
}

func NewSet() *Set {
	return &Set{sequencers: make(map[Channel]*Sequencer)}
}

func (s *Set) For(ch Channel) *Sequencer {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if seq, ok := s.sequencers[ch]; ok {
		return seq
	}
	seq := &Sequencer{}
	s.sequencers[ch] = seq
	return seq
}

func (s *Set) Begin(ch Channel) uint64 {
	return s.For(ch).Begin()
}

func (s *Set) IsCurrent(ch Channel, seq uint64) bool {
	return s.For(ch).IsCurrent(seq)
}
