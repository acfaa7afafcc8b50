package domain

// RunSummary reports what one pipeline invocation did. Per-item failures are
// counted here instead of aborting the run; the external scheduler reads the
// summary to judge pipeline health.
type RunSummary struct {
	RunID                string               `json:"run_id"`
	Ingested             int                  `json:"ingested"`
	Rejected             map[RejectReason]int `json:"rejected,omitempty"`
	ScoredByModel        map[Model]int        `json:"scored_by_model,omitempty"`
	ScoringFailures      int                  `json:"scoring_failures"`
	Fallbacks            int                  `json:"fallbacks"`
	Deferred             int                  `json:"deferred"`
	AggregatesRecomputed int                  `json:"aggregates_recomputed"`
	BucketsFailed        int                  `json:"buckets_failed"`
}

// NewRunSummary returns an initialized summary for a run.
func NewRunSummary(runID string) *RunSummary {
	return &RunSummary{
		RunID:         runID,
		Rejected:      make(map[RejectReason]int),
		ScoredByModel: make(map[Model]int),
	}
}

// AddRejected counts one rejected record.
func (s *RunSummary) AddRejected(reason RejectReason) {
	if s.Rejected == nil {
		s.Rejected = make(map[RejectReason]int)
	}
	s.Rejected[reason]++
}

// AddScored counts one stored score under the model that produced it.
func (s *RunSummary) AddScored(model Model) {
	if s.ScoredByModel == nil {
		s.ScoredByModel = make(map[Model]int)
	}
	s.ScoredByModel[model]++
}

// TotalRejected sums rejections across reasons.
func (s *RunSummary) TotalRejected() int {
	total := 0
	for _, n := range s.Rejected {
		total += n
	}
	return total
}

// Merge folds another summary into this one, keeping this run's ID.
func (s *RunSummary) Merge(other *RunSummary) {
	if other == nil {
		return
	}
	s.Ingested += other.Ingested
	for reason, n := range other.Rejected {
		if s.Rejected == nil {
			s.Rejected = make(map[RejectReason]int)
		}
		s.Rejected[reason] += n
	}
	for model, n := range other.ScoredByModel {
		if s.ScoredByModel == nil {
			s.ScoredByModel = make(map[Model]int)
		}
		s.ScoredByModel[model] += n
	}
	s.ScoringFailures += other.ScoringFailures
	s.Fallbacks += other.Fallbacks
	s.Deferred += other.Deferred
	s.AggregatesRecomputed += other.AggregatesRecomputed
	s.BucketsFailed += other.BucketsFailed
}
