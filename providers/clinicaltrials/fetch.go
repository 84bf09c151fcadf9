package clinicaltrials

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/time/rate"

	"github.com/glow-mdsol/clinical-trials/config"
	"github.com/glow-mdsol/clinical-trials/study"
)

// ErrCircuitOpen wird zurückgegeben, solange das Register nach wiederholten Fehlern gesperrt ist.
var ErrCircuitOpen = errors.New("registry circuit breaker is open")

// Fetcher kapselt den Zugriff auf ClinicalTrials.gov.
type Fetcher struct {
	Config *config.Registry
	Logger *zap.Logger

	client  *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
}

// NewFetcher erstellt einen neuen ClinicalTrials.gov-Fetcher.
func NewFetcher(cfg *config.Registry, logger *zap.Logger) *Fetcher {
	timeout := cfg.RegistryTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	limit := rate.Inf
	if cfg.RegistryRateLimit > 0 {
		limit = rate.Limit(cfg.RegistryRateLimit)
	}
	maxFails := cfg.RegistryMaxFails
	if maxFails == 0 {
		maxFails = 5
	}

	f := &Fetcher{
		Config:  cfg,
		Logger:  logger,
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(limit, 1),
	}
	f.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "clinicaltrials",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFails
		},
		// Ein 404 oder eine fehlende Studie ist kein Ausfall des Registers.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, study.ErrNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Register-Circuit-Breaker hat den Zustand gewechselt",
				zap.String("from", from.String()), zap.String("to", to.String()))
		},
	})
	return f
}

// Name gibt den Namen des Registers zurück.
func (f *Fetcher) Name() string {
	return "clinicaltrials"
}

// GetStudy lädt das XML einer Studie.
func (f *Fetcher) GetStudy(ctx context.Context, nctID string) ([]byte, error) {
	studyURL := f.buildURL(nctID, url.Values{"displayxml": {"true"}})
	log := f.Logger.With(zap.String("nct_id", nctID), zap.String("url", studyURL))
	log.Debug("Rufe Studien-XML ab.")

	body, err := f.get(ctx, studyURL)
	if err != nil {
		log.Error("Studie konnte nicht geladen werden", zap.Error(err))
		return nil, fmt.Errorf("unable to load study %s: %w", nctID, err)
	}
	return body, nil
}

// GetStudyDocuments liest die Studienseite und sammelt alle Links auf hochgeladene Dokumente.
func (f *Fetcher) GetStudyDocuments(ctx context.Context, nctID string) (map[string]string, error) {
	pageURL := f.buildURL(nctID, nil)
	log := f.Logger.With(zap.String("nct_id", nctID), zap.String("url", pageURL))
	log.Debug("Rufe Studienseite für Dokumente ab.")

	body, err := f.get(ctx, pageURL)
	if err != nil {
		log.Error("Studienseite konnte nicht geladen werden", zap.Error(err))
		return nil, fmt.Errorf("unable to load study page %s: %w", nctID, err)
	}

	doc, err := html.Parse(strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("parse study page %s: %w", nctID, err)
	}
	docs := collectDocuments(doc)
	log.Debug("Dokumente auf Studienseite gefunden", zap.Int("count", len(docs)))
	return docs, nil
}

func (f *Fetcher) buildURL(nctID string, query url.Values) string {
	u := strings.TrimRight(f.Config.RegistryBaseURL, "/") + "/ct2/show/" + url.PathEscape(nctID)
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// get führt einen GET durch Rate-Limiter und Circuit-Breaker aus.
func (f *Fetcher) get(ctx context.Context, target string) ([]byte, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	result, err := f.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return nil, err
		}
		resp, err := f.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return nil, fmt.Errorf("%w: %w: status %d", study.ErrRetrieval, study.ErrNotFound, resp.StatusCode)
		case resp.StatusCode != http.StatusOK:
			return nil, fmt.Errorf("%w: status %d", study.ErrRetrieval, resp.StatusCode)
		}
		return io.ReadAll(resp.Body)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %w", study.ErrRetrieval, ErrCircuitOpen)
	}
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil
}
