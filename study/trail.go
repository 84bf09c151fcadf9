package study

import "go.uber.org/zap"

// Trail is the submission and posting history of a record.
type Trail struct {
	StudyFirstSubmitted         *VariableDate `json:"study_first_submitted,omitempty"`
	StudyFirstSubmittedQC       *VariableDate `json:"study_first_submitted_qc,omitempty"`
	StudyFirstPosted            *VariableDate `json:"study_first_posted,omitempty"`
	LastUpdateSubmitted         *VariableDate `json:"last_update_submitted,omitempty"`
	LastUpdateSubmittedQC       *VariableDate `json:"last_update_submitted_qc,omitempty"`
	LastUpdatePosted            *VariableDate `json:"last_update_posted,omitempty"`
	ResultsFirstSubmitted       *VariableDate `json:"results_first_submitted,omitempty"`
	ResultsFirstSubmittedQC     *VariableDate `json:"results_first_submitted_qc,omitempty"`
	ResultsFirstPosted          *VariableDate `json:"results_first_posted,omitempty"`
	DispositionFirstSubmitted   *VariableDate `json:"disposition_first_submitted,omitempty"`
	DispositionFirstSubmittedQC *VariableDate `json:"disposition_first_submitted_qc,omitempty"`
	DispositionFirstPosted      *VariableDate `json:"disposition_first_posted,omitempty"`
}

func newTrail(doc Fragment, log *zap.Logger) *Trail {
	date := func(key string) *VariableDate { return ParseDate(doc.Get(key), log) }
	return &Trail{
		StudyFirstSubmitted:         date("study_first_submitted"),
		StudyFirstSubmittedQC:       date("study_first_submitted_qc"),
		StudyFirstPosted:            date("study_first_posted"),
		LastUpdateSubmitted:         date("last_update_submitted"),
		LastUpdateSubmittedQC:       date("last_update_submitted_qc"),
		LastUpdatePosted:            date("last_update_posted"),
		ResultsFirstSubmitted:       date("results_first_submitted"),
		ResultsFirstSubmittedQC:     date("results_first_submitted_qc"),
		ResultsFirstPosted:          date("results_first_posted"),
		DispositionFirstSubmitted:   date("disposition_first_submitted"),
		DispositionFirstSubmittedQC: date("disposition_first_submitted_qc"),
		DispositionFirstPosted:      date("disposition_first_posted"),
	}
}

// HasResults reports whether results were ever submitted.
func (t *Trail) HasResults() bool {
	return t.ResultsFirstSubmitted != nil
}
