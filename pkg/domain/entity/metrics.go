package entity

import "time"

// Phase names one pipeline stage
type Phase string

const (
	PhaseExtract   Phase = "extract"
	PhaseNormalize Phase = "normalize"
	PhasePrefilter Phase = "prefilter"
	PhaseResolve   Phase = "resolve"
	PhaseProbe     Phase = "probe"
	PhaseEnrich    Phase = "enrich"
	PhaseDedup     Phase = "dedup"
	PhaseSort      Phase = "sort"
	PhaseEmit      Phase = "emit"
)

// Phases lists the stages in execution order
var Phases = []Phase{
	PhaseExtract,
	PhaseNormalize,
	PhaseResolve,
	PhasePrefilter,
	PhaseProbe,
	PhaseEnrich,
	PhaseDedup,
	PhaseSort,
	PhaseEmit,
}

// PhaseCount records how many items entered and survived a stage
type PhaseCount struct {
	Phase    Phase `json:"phase"`
	Entered  int   `json:"entered"`
	Survived int   `json:"survived"`
}

// RunReport is the caller visible outcome of one run
type RunReport struct {
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Phases     []PhaseCount   `json:"phases"`
	PerProto   map[string]int `json:"per_protocol"`
	Buckets    int            `json:"buckets"`
	Files      int            `json:"files"`
}

// Record appends the counts of a stage
func (r *RunReport) Record(phase Phase, entered, survived int) {
	r.Phases = append(r.Phases, PhaseCount{Phase: phase, Entered: entered, Survived: survived})
}

// Count returns the counts of a stage
func (r *RunReport) Count(phase Phase) (PhaseCount, bool) {
	for _, c := range r.Phases {
		if c.Phase == phase {
			return c, true
		}
	}
	return PhaseCount{}, false
}

// Survivors returns the number of descriptors that reached the output
func (r *RunReport) Survivors() int {
	if c, ok := r.Count(PhaseSort); ok {
		return c.Survived
	}
	return 0
}

// Metrics represents live pipeline metrics
type Metrics struct {
	Phase          Phase
	Candidates     int64
	Normalized     int64
	ProbeTotal     int64
	ProbesDone     int64
	ProbesAlive    int64
	Resolved       int64
	Enriched       int64
	Survivors      int64
	FilesWritten   int64
	ErrorCount     int64
	QueueLength    int
	ActiveWorkers  int
	TotalWorkers   int
	StartTime      time.Time
	LastUpdateTime time.Time
	ActiveTargets  []string
}
