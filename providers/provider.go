package providers

import "github.com/glow-mdsol/clinical-trials/study"

// Registry ist das Interface, das jede Register-Anbindung (z.B. ClinicalTrials.gov) implementieren muss.
type Registry interface {
	// GetStudy liefert das rohe XML einer Studie.
	study.Source

	// GetStudyDocuments liefert die auf der Studienseite verlinkten Dokumente (Titel -> relative URL).
	study.DocumentLister

	// Name gibt den eindeutigen Namen des Registers zurück (z.B. "clinicaltrials").
	Name() string
}
