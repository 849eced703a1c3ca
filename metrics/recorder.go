// Package metrics records generation, chat and streaming metrics.
//
// Components receive a Recorder; NoopRecorder is used when metrics are not
// configured so callers never need nil checks.
package metrics

import "time"

// Kind names the generation request a metric belongs to.
type Kind string

const (
	KindGuide Kind = "guide"
	KindPlan  Kind = "plan"
	KindChat  Kind = "chat"
)

type Recorder interface {
	ObserveGeneration(kind Kind, d time.Duration, success bool)
	IncChatMessage(fallback bool)
	ObserveRenderedBlocks(n int)
	SetStreamClients(n int)
}

type NoopRecorder struct{}

func (NoopRecorder) ObserveGeneration(Kind, time.Duration, bool) {}
func (NoopRecorder) IncChatMessage(bool)                         {}
func (NoopRecorder) ObserveRenderedBlocks(int)                   {}
func (NoopRecorder) SetStreamClients(int)                        {}

func resultLabel(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
