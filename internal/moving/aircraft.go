package moving

import "strings"

// aircraftDB is a static lookup table from ICAO aircraft type
// designator to its type info.
var aircraftDB = map[string]AircraftTypeInfo{
	"A20N": {Designator: "A20N", Name: "Airbus A320neo", Engines: "2J", WakeCat: "M"},
	"A21N": {Designator: "A21N", Name: "Airbus A321neo", Engines: "2J", WakeCat: "M"},
	"A319": {Designator: "A319", Name: "Airbus A319", Engines: "2J", WakeCat: "M"},
	"A320": {Designator: "A320", Name: "Airbus A320", Engines: "2J", WakeCat: "M"},
	"A321": {Designator: "A321", Name: "Airbus A321", Engines: "2J", WakeCat: "M"},
	"A332": {Designator: "A332", Name: "Airbus A330-200", Engines: "2J", WakeCat: "H"},
	"A333": {Designator: "A333", Name: "Airbus A330-300", Engines: "2J", WakeCat: "H"},
	"A359": {Designator: "A359", Name: "Airbus A350-900", Engines: "2J", WakeCat: "H"},
	"A388": {Designator: "A388", Name: "Airbus A380-800", Engines: "4J", WakeCat: "J"},
	"B737": {Designator: "B737", Name: "Boeing 737", Engines: "2J", WakeCat: "M"},
	"B738": {Designator: "B738", Name: "Boeing 737-800", Engines: "2J", WakeCat: "M"},
	"B739": {Designator: "B739", Name: "Boeing 737-900", Engines: "2J", WakeCat: "M"},
	"B38M": {Designator: "B38M", Name: "Boeing 737 MAX 8", Engines: "2J", WakeCat: "M"},
	"B744": {Designator: "B744", Name: "Boeing 747-400", Engines: "4J", WakeCat: "H"},
	"B772": {Designator: "B772", Name: "Boeing 777-200", Engines: "2J", WakeCat: "H"},
	"B77W": {Designator: "B77W", Name: "Boeing 777-300ER", Engines: "2J", WakeCat: "H"},
	"B788": {Designator: "B788", Name: "Boeing 787-8", Engines: "2J", WakeCat: "H"},
	"B789": {Designator: "B789", Name: "Boeing 787-9", Engines: "2J", WakeCat: "H"},
	"C172": {Designator: "C172", Name: "Cessna 172", Engines: "1P", WakeCat: "L"},
	"C208": {Designator: "C208", Name: "Cessna 208 Caravan", Engines: "1T", WakeCat: "L"},
	"E170": {Designator: "E170", Name: "Embraer 170", Engines: "2J", WakeCat: "M"},
	"E190": {Designator: "E190", Name: "Embraer 190", Engines: "2J", WakeCat: "M"},
	"PC12": {Designator: "PC12", Name: "Pilatus PC-12", Engines: "1T", WakeCat: "L"},
}

// GuessAircraftType looks up a type record from a flight-plan aircraft
// string by progressively truncating it to 5, 4, 3, 2, then 1
// characters until a match is found.
func GuessAircraftType(raw string) *AircraftTypeInfo {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if s == "" {
		return nil
	}
	for length := 5; length >= 1; length-- {
		if len(s) < length {
			continue
		}
		candidate := s[:length]
		if info, ok := aircraftDB[candidate]; ok {
			return &info
		}
	}
	return nil
}
