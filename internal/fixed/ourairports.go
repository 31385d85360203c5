package fixed

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/curbz/skytrace/internal/errs"
	"github.com/sirupsen/logrus"
)

// ParseRunways reads the OurAirports runways CSV. Each data row
// describes one physical runway and yields two Runway records, one per
// end. Numeric fields default to zero when malformed, and short rows
// are logged and skipped; a row the CSV reader cannot parse aborts the
// whole parse with ErrParse.
func ParseRunways(r io.Reader, log *logrus.Logger) (map[string][]*Runway, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	result := make(map[string][]*Runway)
	row := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errs.Wrap(errs.ErrParse, err.Error())
		}
		row++
		if row == 1 && len(record) > 2 && record[2] == "airport_ident" {
			continue
		}
		if len(record) < 19 {
			log.WithField("row", row).Warn("fixed: short runway row, skipping")
			continue
		}

		icao := strings.ToUpper(strings.TrimSpace(record[2]))
		lengthFt := atoiOr0(record[3])
		widthFt := atoiOr0(record[4])
		surface := record[5]
		lighted := record[6] == "1"
		closed := record[7] == "1"

		low := &Runway{
			ICAO:        icao,
			LengthFt:    lengthFt,
			WidthFt:     widthFt,
			Surface:     surface,
			Lighted:     lighted,
			Closed:      closed,
			Ident:       strings.ToUpper(strings.TrimSpace(record[8])),
			Lat:         atofOr0(record[9]),
			Lng:         atofOr0(record[10]),
			ElevationFt: atoiOr0(record[11]),
			HeadingDeg:  int(atofOr0(record[12])),
		}
		high := &Runway{
			ICAO:        icao,
			LengthFt:    lengthFt,
			WidthFt:     widthFt,
			Surface:     surface,
			Lighted:     lighted,
			Closed:      closed,
			Ident:       strings.ToUpper(strings.TrimSpace(record[14])),
			Lat:         atofOr0(record[15]),
			Lng:         atofOr0(record[16]),
			ElevationFt: atoiOr0(record[17]),
			HeadingDeg:  int(atofOr0(record[18])),
		}

		if low.Ident != "" {
			result[icao] = append(result[icao], low)
		}
		if high.Ident != "" {
			result[icao] = append(result[icao], high)
		}
	}
	return result, nil
}

func atoiOr0(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}

func atofOr0(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}
