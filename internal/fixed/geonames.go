package fixed

import (
	"archive/zip"
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/curbz/skytrace/internal/errs"
	"github.com/curbz/skytrace/internal/geo"
	"github.com/curbz/skytrace/internal/spatial"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/sirupsen/logrus"
)

// shapesFileName is the single GeoJSON entry inside the geonames
// shapes ZIP archive.
const shapesFileName = "shapes_simplified_low.json"

// Geonames joins the countryInfo TSV with the country-shape polygons:
// countries are keyed by geoname id, shapes are indexed for
// point-in-polygon lookup.
type Geonames struct {
	countries map[string]GeonamesCountry
	refIDs    []string
	shapes    *spatial.CountryIndex
}

// CountryByID returns the country for a geoname id, or nil.
func (g *Geonames) CountryByID(id string) *GeonamesCountry {
	c, ok := g.countries[id]
	if !ok {
		return nil
	}
	return &c
}

// CountryByPosition locates the country whose shape contains p, or nil.
func (g *Geonames) CountryByPosition(p geo.Point) *GeonamesCountry {
	if g.shapes == nil {
		return nil
	}
	idx, ok := g.shapes.Locate(p)
	if !ok {
		return nil
	}
	return g.CountryByID(g.refIDs[idx])
}

// ParseGeonames builds a Geonames set from the countryInfo TSV and the
// shapes ZIP archive. shapesZip may be nil, leaving position lookups
// always-miss.
func ParseGeonames(countriesTSV io.Reader, shapesZip io.ReaderAt, shapesZipSize int64, log *logrus.Logger) (*Geonames, error) {
	countries, err := parseGeonamesCountries(countriesTSV, log)
	if err != nil {
		return nil, err
	}
	g := &Geonames{countries: countries}
	if shapesZip != nil {
		if err := g.loadShapes(shapesZip, shapesZipSize, log); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// parseGeonamesCountries reads the Geonames countryInfo file: a
// tab-separated table with no header row and '#'-prefixed comments.
func parseGeonamesCountries(r io.Reader, log *logrus.Logger) (map[string]GeonamesCountry, error) {
	reader := csv.NewReader(r)
	reader.Comma = '\t'
	reader.Comment = '#'
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	countries := make(map[string]GeonamesCountry)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errs.Wrap(errs.ErrParse, err.Error())
		}
		if len(record) < 17 {
			log.WithField("fields", len(record)).Warn("fixed: short geonames country row, skipping")
			continue
		}
		area, _ := strconv.ParseFloat(strings.TrimSpace(record[6]), 64)
		population, _ := strconv.ParseInt(strings.TrimSpace(record[7]), 10, 64)
		c := GeonamesCountry{
			ISO:        record[0],
			ISO3:       record[1],
			ISONumeric: record[2],
			FIPS:       record[3],
			Name:       record[4],
			Capital:    record[5],
			Area:       area,
			Population: population,
			Continent:  record[8],
			TLD:        record[9],
			GeonameID:  record[16],
		}
		countries[c.GeonameID] = c
	}
	return countries, nil
}

// loadShapes reads the single GeoJSON file inside the geonames shapes
// archive and indexes every polygon under its feature's geoNameId.
func (g *Geonames) loadShapes(zr io.ReaderAt, size int64, log *logrus.Logger) error {
	archive, err := zip.NewReader(zr, size)
	if err != nil {
		return errs.Wrap(errs.ErrParse, err.Error())
	}
	f, err := archive.Open(shapesFileName)
	if err != nil {
		return errs.Wrap(errs.ErrParse, err.Error())
	}
	defer f.Close()

	raw, err := io.ReadAll(f)
	if err != nil {
		return errs.Wrap(errs.ErrParse, err.Error())
	}
	fc, err := geojson.UnmarshalFeatureCollection(raw)
	if err != nil {
		return errs.Wrap(errs.ErrParse, err.Error())
	}

	g.shapes = spatial.NewCountryIndex()
	for _, feat := range fc.Features {
		geoID, ok := feat.Properties["geoNameId"].(string)
		if !ok {
			log.Warn("fixed: geonames shape without geoNameId, skipping")
			continue
		}
		switch geom := feat.Geometry.(type) {
		case orb.Polygon:
			g.addShape(geoID, geom)
		case orb.MultiPolygon:
			for _, poly := range geom {
				g.addShape(geoID, poly)
			}
		default:
			log.WithField("geoNameId", geoID).Warn("fixed: unsupported geonames shape geometry, skipping")
		}
	}
	return nil
}

func (g *Geonames) addShape(geoID string, poly orb.Polygon) {
	rings := make([]geo.Ring, 0, len(poly))
	for _, inner := range poly {
		ring := make(geo.Ring, 0, len(inner))
		for _, pt := range inner {
			ring = append(ring, geo.Point{Lat: pt[1], Lng: pt[0]})
		}
		rings = append(rings, ring)
	}
	idx := len(g.refIDs)
	g.refIDs = append(g.refIDs, geoID)
	g.shapes.Add(idx, rings)
}
