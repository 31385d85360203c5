package fixed

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/curbz/skytrace/internal/errs"
	"github.com/curbz/skytrace/internal/geo"
	"github.com/curbz/skytrace/internal/moving"
	"github.com/sirupsen/logrus"
)

type section int

const (
	sectionNone section = iota
	sectionCountries
	sectionAirports
	sectionFIRs
	sectionUIRs
)

// Parse reads the pipe-delimited sectioned reference file: [Countries],
// [Airports], [FIRs], [UIRs] sections, [IDL] ends the file,
// ';'-prefixed lines are comments. Malformed lines are logged and
// skipped, never fatal.
//
// boundaries maps boundary ids to parsed FIR boundary shapes; runways
// maps airport ICAO to its runway ends; geonames supplies
// country-by-position enrichment. Any of the three may be empty.
func Parse(r io.Reader, boundaries map[string]*Boundaries, runways map[string][]*Runway, geonames *Geonames, log *logrus.Logger) (*Data, error) {
	d := &Data{geonames: geonames}
	cur := sectionNone

	scanner := bufio.NewScanner(r)
	lineNo := 0
scan:
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, ";") {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			switch line[1 : len(line)-1] {
			case "Countries":
				cur = sectionCountries
			case "Airports":
				cur = sectionAirports
			case "FIRs":
				cur = sectionFIRs
			case "UIRs":
				cur = sectionUIRs
			case "IDL":
				break scan
			default:
				cur = sectionNone
			}
			continue
		}

		fields := strings.Split(line, "|")
		switch cur {
		case sectionCountries:
			if len(fields) != 3 {
				log.WithField("line", lineNo).Warn("fixed: malformed country line, skipping")
				continue
			}
			d.Countries = append(d.Countries, Country{
				Name:        strings.TrimSpace(fields[0]),
				Prefix:      strings.ToUpper(strings.TrimSpace(fields[1])),
				ControlName: strings.TrimSpace(fields[2]),
			})
		case sectionAirports:
			if len(fields) != 7 {
				log.WithField("line", lineNo).Warn("fixed: malformed airport line, skipping")
				continue
			}
			lat, errLat := strconv.ParseFloat(strings.TrimSpace(fields[2]), 64)
			lng, errLng := strconv.ParseFloat(strings.TrimSpace(fields[3]), 64)
			if errLat != nil || errLng != nil {
				log.WithFields(logrus.Fields{"line": lineNo, "icao": fields[0]}).
					Warn("fixed: malformed airport coordinates, skipping")
				continue
			}
			icao := strings.ToUpper(strings.TrimSpace(fields[0]))
			position := geo.Point{Lat: lat, Lng: lng}.Clamp()

			rwys := make(map[string]*Runway)
			for _, rwy := range runways[icao] {
				rwys[rwy.Ident] = rwy
			}

			var country *GeonamesCountry
			if geonames != nil {
				country = geonames.CountryByPosition(position)
			}

			d.Airports = append(d.Airports, Airport{
				ICAO:     icao,
				Name:     strings.TrimSpace(fields[1]),
				Position: position,
				IATA:     strings.ToUpper(strings.TrimSpace(fields[4])),
				FIRID:    strings.ToUpper(strings.TrimSpace(fields[5])),
				IsPseudo: strings.TrimSpace(fields[6]) == "1",
				Runways:  rwys,
				Country:  country,
			})
		case sectionFIRs:
			if len(fields) != 4 {
				log.WithField("line", lineNo).Warn("fixed: malformed FIR line, skipping")
				continue
			}
			icao := strings.ToUpper(strings.TrimSpace(fields[0]))
			boundaryID := strings.TrimSpace(fields[3])
			// Some FIRs lack a boundary region id; the corresponding
			// boundary exists under the FIR's own ICAO instead.
			if boundaryID == "" {
				boundaryID = icao
			}
			b, ok := boundaries[boundaryID]
			if !ok {
				log.WithFields(logrus.Fields{"fir": icao, "boundary": boundaryID}).
					Warn("fixed: no boundaries for FIR, skipping")
				continue
			}
			var country *GeonamesCountry
			if geonames != nil {
				country = geonames.CountryByPosition(b.Center)
			}
			d.FIRs = append(d.FIRs, FIR{
				ICAO:        icao,
				Name:        strings.TrimSpace(fields[1]),
				Prefix:      strings.ToUpper(strings.TrimSpace(fields[2])),
				Boundary:    *b,
				Country:     country,
				Controllers: make(map[string]moving.Controller),
			})
		case sectionUIRs:
			if len(fields) != 3 {
				log.WithField("line", lineNo).Warn("fixed: malformed UIR line, skipping")
				continue
			}
			firList := strings.Split(strings.TrimSpace(fields[2]), ",")
			for i := range firList {
				firList[i] = strings.ToUpper(strings.TrimSpace(firList[i]))
			}
			d.UIRs = append(d.UIRs, UIR{
				ICAO: strings.ToUpper(strings.TrimSpace(fields[0])),
				Name: strings.TrimSpace(fields[1]),
				FIRs: firList,
			})
		default:
			log.WithField("line", lineNo).Debug("fixed: line outside any section, skipping")
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errs.Wrap(errs.ErrParse, err.Error())
	}

	d.build()
	return d, nil
}
