package ledger

import (
	"sync"
	"time"

	"slack-taskbot/internal/timewindow"
)

// Record is a message the bot itself posted.
type Record struct {
	MessageID string
	ChannelID string
	PostedAt  time.Time
}

// Ledger keeps bot-authored messages for the lifetime of the process so they
// can be retracted later. It is never persisted and never evicts.
type Ledger struct {
	mu      sync.RWMutex
	records []Record
}

func New() *Ledger {
	return &Ledger{}
}

func (l *Ledger) Record(messageID, channelID string, postedAt time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, Record{MessageID: messageID, ChannelID: channelID, PostedAt: postedAt})
}

// MostRecent returns up to n records for the channel, newest first.
func (l *Ledger) MostRecent(channelID string, n int) []Record {
	if n <= 0 {
		return nil
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []Record
	for i := len(l.records) - 1; i >= 0 && len(out) < n; i-- {
		if l.records[i].ChannelID == channelID {
			out = append(out, l.records[i])
		}
	}
	return out
}

// OnChannelDay returns the channel's records posted inside the window, oldest first.
func (l *Ledger) OnChannelDay(channelID string, w *timewindow.Window) []Record {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []Record
	for _, r := range l.records {
		if r.ChannelID == channelID && w.Contains(r.PostedAt) {
			out = append(out, r)
		}
	}
	return out
}

// Remove deletes the record and reports whether it existed. Message IDs are
// only unique within a channel.
func (l *Ledger) Remove(channelID, messageID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, r := range l.records {
		if r.ChannelID == channelID && r.MessageID == messageID {
			l.records = append(l.records[:i], l.records[i+1:]...)
			return true
		}
	}
	return false
}

func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}
