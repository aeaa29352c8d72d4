// Package intent turns a free-text command into one structured action.
package intent

import "context"

type Kind string

const (
	KindListTasks      Kind = "list_tasks"
	KindDeleteMessages Kind = "delete_messages"
	KindSummarize      Kind = "summarize"
	KindConverse       Kind = "converse"
	KindUnknown        Kind = "unknown"
)

func (k Kind) valid() bool {
	switch k {
	case KindListTasks, KindDeleteMessages, KindSummarize, KindConverse, KindUnknown:
		return true
	}
	return false
}

// Intent is a tagged variant: Kind selects which of Date and Count apply.
// Date is a raw reference ("today", "monday", "2026-10-12"), empty when absent.
// Count is only meaningful for KindDeleteMessages; 0 means absent.
type Intent struct {
	Kind  Kind
	Date  string
	Count int
}

func ListTasks(date string) Intent { return Intent{Kind: KindListTasks, Date: date} }

func DeleteMessages(date string, count int) Intent {
	return Intent{Kind: KindDeleteMessages, Date: date, Count: count}
}

func Summarize(date string) Intent { return Intent{Kind: KindSummarize, Date: date} }

func Converse() Intent { return Intent{Kind: KindConverse} }

func Unknown() Intent { return Intent{Kind: KindUnknown} }

// Classifier is the single source of truth for action selection.
type Classifier interface {
	Classify(ctx context.Context, command string) Intent
}
