package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/glow-mdsol/clinical-trials/config"
	"github.com/glow-mdsol/clinical-trials/providers/clinicaltrials"
	"github.com/glow-mdsol/clinical-trials/services"
	"github.com/glow-mdsol/clinical-trials/study"
)

const registryXML = `<clinical_study>
  <id_info><nct_id>NCT03741543</nct_id></id_info>
  <brief_title>Test</brief_title>
  <eligibility>
    <criteria><textblock>
Inclusion Criteria:
A

</textblock></criteria>
    <gender>All</gender>
  </eligibility>
  <overall_contact><last_name>Jones</last_name></overall_contact>
</clinical_study>`

const registryPage = `<a href="/ProvidedDocs/43/NCT03741543/Prot_000.pdf">Study Protocol</a>`

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path != "/ct2/show/NCT03741543":
			http.NotFound(w, r)
		case r.URL.Query().Get("displayxml") == "true":
			w.Write([]byte(registryXML))
		default:
			w.Write([]byte(registryPage))
		}
	}))
	t.Cleanup(upstream.Close)

	cfg := &config.Config{Registry: config.Registry{RegistryBaseURL: upstream.URL}, APISecretKey: "s3cret"}
	registry := clinicaltrials.NewFetcher(&cfg.Registry, zap.NewNop())
	svc := services.NewSyncService(cfg, nil, registry, nil, zap.NewNop())

	router := gin.New()
	router.Use(apiKeyAuthMiddleware(cfg))
	setupStudyRoutes(router, svc, zap.NewNop())
	return router
}

func get(t *testing.T, router *gin.Engine, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("X-API-KEY", "s3cret")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestStudyRoute(t *testing.T) {
	router := newTestRouter(t)

	w := get(t, router, "/studies/nct03741543")
	require.Equal(t, http.StatusOK, w.Code)

	var summary services.StudySummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	assert.Equal(t, "NCT03741543", summary.NCTID)
	assert.Equal(t, "Test", summary.BriefTitle)
}

func TestStudyRouteNotFound(t *testing.T) {
	router := newTestRouter(t)

	w := get(t, router, "/studies/NCT10000000")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestEligibilityRoute(t *testing.T) {
	router := newTestRouter(t)

	w := get(t, router, "/studies/NCT03741543/eligibility")
	require.Equal(t, http.StatusOK, w.Code)

	var e struct {
		Inclusion []string `json:"inclusion_criteria"`
		Exclusion []string `json:"exclusion_criteria"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &e))
	assert.Equal(t, []string{"A"}, e.Inclusion)
	assert.Equal(t, []string{}, e.Exclusion)
}

func TestPeopleRoute(t *testing.T) {
	router := newTestRouter(t)

	w := get(t, router, "/studies/NCT03741543/people")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"last_name":"Jones"`)
}

func TestDocumentsRouteFallsBackToStudyPage(t *testing.T) {
	router := newTestRouter(t)

	w := get(t, router, "/studies/NCT03741543/documents")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		StudyDocuments []study.StudyDocument `json:"study_documents"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.StudyDocuments, 1)
	assert.Equal(t, "Study Protocol", body.StudyDocuments[0].Type)
	assert.True(t, body.StudyDocuments[0].HasProtocol)
}

func TestAPIKeyRequired(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/studies/NCT03741543", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRegistryStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("x: %w", study.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("x: %w", study.ErrRetrieval), http.StatusBadGateway},
		{fmt.Errorf("x: %w", study.ErrDefinitionInvalid), http.StatusUnprocessableEntity},
		{&study.CoercionError{Type: "int"}, http.StatusUnprocessableEntity},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, registryStatus(tt.err), tt.err.Error())
	}
}
