// Package naming holds the district/state normalization shared by the weather
// acquisition tooling and the pipeline join. Both sides must produce the same
// bytes for the same pair or the join silently misses.
package naming

import (
	"path/filepath"
	"strings"
)

// WeatherFileExt is the suffix of per-district weather series files.
const WeatherFileExt = ".csv"

// SafeName returns lower(replace(" ", "_", district + "_" + state)).
func SafeName(district, state string) string {
	return strings.ToLower(strings.ReplaceAll(district+"_"+state, " ", "_"))
}

// WeatherFileName returns the weather series file name for a district/state pair.
func WeatherFileName(district, state string) string {
	return SafeName(district, state) + WeatherFileExt
}

// WeatherFilePath joins dir with the weather series file name for the pair.
func WeatherFilePath(dir, district, state string) string {
	return filepath.Join(dir, WeatherFileName(district, state))
}
