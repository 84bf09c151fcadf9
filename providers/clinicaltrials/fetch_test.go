package clinicaltrials

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/glow-mdsol/clinical-trials/config"
	"github.com/glow-mdsol/clinical-trials/study"
)

const studyXML = `<clinical_study><id_info><nct_id>NCT03741543</nct_id></id_info></clinical_study>`

const studyPage = `<html><body>
<div class="tr-indent2">
  <a href="/ProvidedDocs/43/NCT03741543/Prot_000.pdf">Study Protocol</a>
  <a href="/ProvidedDocs/43/NCT03741543/ICF_001.pdf">
    Informed Consent Form
  </a>
  <a href="/ct2/about-site/disclaimer">Disclaimer</a>
</div>
</body></html>`

func newTestFetcher(t *testing.T, handler http.HandlerFunc) *Fetcher {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewFetcher(&config.Registry{RegistryBaseURL: srv.URL}, zap.NewNop())
}

func TestGetStudy(t *testing.T) {
	f := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ct2/show/NCT03741543", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("displayxml"))
		w.Write([]byte(studyXML))
	})

	raw, err := f.GetStudy(context.Background(), "NCT03741543")
	require.NoError(t, err)
	assert.Equal(t, studyXML, string(raw))
}

func TestGetStudyFailure(t *testing.T) {
	f := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := f.GetStudy(context.Background(), "NCT10000000")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unable to load study NCT10000000")
	assert.ErrorIs(t, err, study.ErrRetrieval)
}

func TestGetStudyNotFound(t *testing.T) {
	f := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	_, err := f.GetStudy(context.Background(), "NCT10000000")
	assert.ErrorIs(t, err, study.ErrRetrieval)
	assert.ErrorIs(t, err, study.ErrNotFound)
}

func TestCircuitOpensAfterRepeatedFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)
	f := NewFetcher(&config.Registry{RegistryBaseURL: srv.URL, RegistryMaxFails: 2}, zap.NewNop())

	for i := 0; i < 2; i++ {
		_, err := f.GetStudy(context.Background(), "NCT10000000")
		require.Error(t, err)
	}
	_, err := f.GetStudy(context.Background(), "NCT10000000")
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.ErrorIs(t, err, study.ErrRetrieval)
	assert.Equal(t, int32(2), calls.Load())
}

func TestGetStudyDocuments(t *testing.T) {
	f := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ct2/show/NCT03741543", r.URL.Path)
		assert.Empty(t, r.URL.RawQuery)
		w.Write([]byte(studyPage))
	})

	docs, err := f.GetStudyDocuments(context.Background(), "NCT03741543")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"Study Protocol":        "/ProvidedDocs/43/NCT03741543/Prot_000.pdf",
		"Informed Consent Form": "/ProvidedDocs/43/NCT03741543/ICF_001.pdf",
	}, docs)
}

func TestGetStudyDocumentsEmptyPage(t *testing.T) {
	f := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(""))
	})

	docs, err := f.GetStudyDocuments(context.Background(), "NCT03741543")
	require.NoError(t, err)
	assert.Empty(t, docs)
	assert.NotNil(t, docs)
}

func TestFetcherFeedsStudy(t *testing.T) {
	f := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(studyXML))
	})

	s, err := study.FromNCTID(context.Background(), "NCT03741543", f)
	require.NoError(t, err)
	assert.Equal(t, "NCT03741543", s.NCTID())
	assert.Equal(t, "clinicaltrials", f.Name())
}
