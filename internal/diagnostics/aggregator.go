package diagnostics

import "fmt"

// Stage names a pipeline stage that contributes diagnostics.
type Stage string

const (
	StageParser     Stage = "parser"
	StageExtraction Stage = "extraction"
	StageConversion Stage = "conversion"
	StageProcessing Stage = "processing"
)

// StageOrder is the fixed order in which stage diagnostics are concatenated.
var StageOrder = []Stage{StageParser, StageExtraction, StageConversion, StageProcessing}

// MaxStages is the number of stages an Aggregator accepts
const MaxStages = 4

func stageRank(stage Stage) int {
	for i, s := range StageOrder {
		if s == stage {
			return i
		}
	}
	return -1
}

// Merged holds the diagnostics of all stages by index. Every slice has one
// entry per index in [0, count) and every entry is non-nil.
type Merged struct {
	Messages [][]string `json:"messages"`
	Warnings [][]string `json:"warnings"`
	Errors   [][]string `json:"errors"`
}

// Empty returns merged diagnostics with no slots
func Empty() *Merged {
	return &Merged{
		Messages: [][]string{},
		Warnings: [][]string{},
		Errors:   [][]string{},
	}
}

// Count returns the number of index slots
func (m *Merged) Count() int {
	return len(m.Errors)
}

// Summary counts lines per kind
func (m *Merged) Summary() Summary {
	return Summary{
		Messages: countLines(m.Messages),
		Warnings: countLines(m.Warnings),
		Errors:   countLines(m.Errors),
	}
}

// Aggregator merges stage collectors.
type Aggregator struct {
	stages [MaxStages]*Collector
}

// NewAggregator creates an empty aggregator
func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// Register adds the collector of one stage. A stage can be registered once.
func (a *Aggregator) Register(c *Collector) error {
	if c == nil {
		return fmt.Errorf("collector cannot be nil")
	}

	rank := stageRank(c.Stage())
	if rank < 0 {
		return fmt.Errorf("unknown stage: %s", c.Stage())
	}
	if a.stages[rank] != nil {
		return fmt.Errorf("stage %s is already registered", c.Stage())
	}

	a.stages[rank] = c
	return nil
}

// Merge produces the per-index diagnostics for indices [0, count).
// Lines at an index are concatenated in StageOrder and never deduplicated.
// Indices outside the range are dropped.
func (a *Aggregator) Merge(count int) *Merged {
	if count < 0 {
		count = 0
	}

	return &Merged{
		Messages: a.merge(KindMessage, count),
		Warnings: a.merge(KindWarning, count),
		Errors:   a.merge(KindError, count),
	}
}

func (a *Aggregator) merge(kind Kind, count int) [][]string {
	out := make([][]string, count)
	for i := range out {
		out[i] = []string{}
	}

	for _, c := range a.stages {
		if c == nil {
			continue
		}
		for index, lines := range c.Kind(kind) {
			if index < 0 || index >= count {
				continue
			}
			out[index] = append(out[index], lines...)
		}
	}
	return out
}

func countLines(slots [][]string) int {
	total := 0
	for _, lines := range slots {
		total += len(lines)
	}
	return total
}
