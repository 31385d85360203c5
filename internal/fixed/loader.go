package fixed

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/curbz/skytrace/internal/config"
	"github.com/curbz/skytrace/internal/errs"
	"github.com/sirupsen/logrus"
)

// Loader fetches and assembles the full reference dataset from the
// configured feeds. Runway/geonames feeds are large and slow-changing,
// so they go through a local byte-blob cache; the reference data file
// and boundaries are fetched directly.
type Loader struct {
	cfg    *config.Config
	client *http.Client
	log    *logrus.Logger
}

// NewLoader builds a Loader whose HTTP client uses a fixed five-minute
// timeout, independent of the snapshot API timeout.
func NewLoader(cfg *config.Config, log *logrus.Logger) *Loader {
	return &Loader{
		cfg: cfg,
		client: &http.Client{
			Timeout: 5 * time.Minute, // reference blobs are tens of MB
		},
		log: log,
	}
}

// Load fetches every reference feed and parses them into an indexed
// dataset.
func (l *Loader) Load() (*Data, error) {
	boundariesBody, err := l.fetch(l.cfg.Fixed.BoundariesURL)
	if err != nil {
		return nil, err
	}
	boundaries, err := ParseBoundaries(bytes.NewReader(boundariesBody), l.log)
	if err != nil {
		return nil, err
	}
	l.log.WithField("count", len(boundaries)).Info("fixed: boundaries loaded")

	runwaysPath, err := l.cachedFetch(l.cfg.Fixed.RunwaysURL, l.cfg.Cache.Runways)
	if err != nil {
		return nil, err
	}
	runwaysFile, err := os.Open(runwaysPath)
	if err != nil {
		return nil, fmt.Errorf("open runways cache: %w", err)
	}
	defer runwaysFile.Close()
	runways, err := ParseRunways(runwaysFile, l.log)
	if err != nil {
		return nil, err
	}
	l.log.WithField("airports", len(runways)).Info("fixed: runways loaded")

	geonames, err := l.loadGeonames()
	if err != nil {
		return nil, err
	}

	dataBody, err := l.fetch(l.cfg.Fixed.DataURL)
	if err != nil {
		return nil, err
	}
	data, err := Parse(bytes.NewReader(dataBody), boundaries, runways, geonames, l.log)
	if err != nil {
		return nil, err
	}
	l.log.WithFields(logrus.Fields{
		"countries": len(data.Countries),
		"airports":  len(data.Airports),
		"firs":      len(data.FIRs),
		"uirs":      len(data.UIRs),
	}).Info("fixed: reference data loaded")
	return data, nil
}

func (l *Loader) loadGeonames() (*Geonames, error) {
	countriesPath, err := l.cachedFetch(l.cfg.Fixed.GeonamesCountryURL, l.cfg.Cache.GeonamesCountries)
	if err != nil {
		return nil, err
	}
	countriesFile, err := os.Open(countriesPath)
	if err != nil {
		return nil, fmt.Errorf("open geonames countries cache: %w", err)
	}
	defer countriesFile.Close()

	shapesPath, err := l.cachedFetch(l.cfg.Fixed.GeonamesShapesURL, l.cfg.Cache.GeonamesShapes)
	if err != nil {
		return nil, err
	}
	shapesFile, err := os.Open(shapesPath)
	if err != nil {
		return nil, fmt.Errorf("open geonames shapes cache: %w", err)
	}
	defer shapesFile.Close()
	info, err := shapesFile.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat geonames shapes cache: %w", err)
	}

	return ParseGeonames(countriesFile, shapesFile, info.Size(), l.log)
}

// fetch downloads a URL into memory.
func (l *Loader) fetch(url string) ([]byte, error) {
	resp, err := l.client.Get(url)
	if err != nil {
		return nil, errs.Wrap(errs.ErrFetch, err.Error())
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errs.Wrap(errs.ErrFetch, fmt.Sprintf("%s: %s", url, resp.Status))
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.Wrap(errs.ErrFetch, err.Error())
	}
	return body, nil
}

// cachedFetch downloads a URL into cachePath unless the file already
// exists, then returns the local path.
func (l *Loader) cachedFetch(url, cachePath string) (string, error) {
	if cachePath == "" {
		cachePath = "./" + strings.ReplaceAll(strings.TrimPrefix(strings.TrimPrefix(url, "https://"), "http://"), "/", "_")
	}
	if _, err := os.Stat(cachePath); err == nil {
		l.log.WithField("path", cachePath).Debug("fixed: cache hit, skipping fetch")
		return cachePath, nil
	}

	l.log.WithField("url", url).Info("fixed: fetching reference blob")
	body, err := l.fetch(url)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(cachePath, body, 0o644); err != nil {
		return "", fmt.Errorf("write cache file: %w", err)
	}
	return cachePath, nil
}
