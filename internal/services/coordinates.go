package services

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"agrifusion/internal/models"
)

// CoordinateIndex records which districts the geocoding step resolved. It is
// used only to explain why a weather file is absent.
type CoordinateIndex struct {
	available bool
	resolved  map[string]bool
}

// CoordinateStatus classifies a district in the mapping.
type CoordinateStatus int

const (
	CoordinatesUnknown CoordinateStatus = iota
	CoordinatesResolved
	CoordinatesUnresolved
)

// LoadCoordinateIndex reads the district mapping CSV
// (state_name, district_name, latitude, longitude). An absent file yields an
// empty index and no error.
func LoadCoordinateIndex(path string) (*CoordinateIndex, error) {
	idx := &CoordinateIndex{resolved: make(map[string]bool)}
	if path == "" {
		return idx, nil
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return idx, nil
		}
		return nil, fmt.Errorf("failed to open district mapping: %w", err)
	}
	defer f.Close()

	if err := idx.read(f); err != nil {
		return nil, fmt.Errorf("failed to read district mapping %s: %w", path, err)
	}
	idx.available = true
	return idx, nil
}

func (c *CoordinateIndex) read(src io.Reader) error {
	reader := csv.NewReader(src)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return err
	}
	col := map[string]int{}
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, name := range []string{"state_name", "district_name", "latitude", "longitude"} {
		if _, ok := col[name]; !ok {
			return fmt.Errorf("missing column %s", name)
		}
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		key := coordinateKey(field(record, col["district_name"]), field(record, col["state_name"]))
		lat := models.ParseMetricValue(field(record, col["latitude"]))
		lon := models.ParseMetricValue(field(record, col["longitude"]))
		c.resolved[key] = c.resolved[key] || (lat != nil && lon != nil)
	}
}

// Available reports whether a mapping file was read.
func (c *CoordinateIndex) Available() bool {
	return c != nil && c.available
}

// Status returns the geocoding outcome for a district.
func (c *CoordinateIndex) Status(district, state string) CoordinateStatus {
	if !c.Available() {
		return CoordinatesUnknown
	}
	resolved, ok := c.resolved[coordinateKey(district, state)]
	switch {
	case !ok:
		return CoordinatesUnknown
	case resolved:
		return CoordinatesResolved
	default:
		return CoordinatesUnresolved
	}
}

func coordinateKey(district, state string) string {
	return strings.ToLower(models.NormalizeName(district)) + "|" + strings.ToLower(models.NormalizeName(state))
}
