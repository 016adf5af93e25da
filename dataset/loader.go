// Package dataset loads the UCI student performance CSV files used by the
// offline training pipeline.
package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/charmap"

	"gradecast/schema"
)

// Sample is one labeled training row: the raw feature record plus the grade
// band derived from the final grade.
type Sample struct {
	Record schema.Record
	Grade  string
}

// Grade band thresholds over the 0-20 final grade (G3).
const (
	gradeAThreshold = 15
	gradeBThreshold = 12
	gradeCThreshold = 10
)

// GradeBand maps a final grade to its letter band.
func GradeBand(g3 int) string {
	switch {
	case g3 >= gradeAThreshold:
		return "A"
	case g3 >= gradeBThreshold:
		return "B"
	case g3 >= gradeCThreshold:
		return "C"
	default:
		return "F"
	}
}

// Load reads one or more student CSV files (semicolon separated, ISO-8859-1
// encoded), concatenates them, and drops exact duplicate rows. The interim
// grades G1/G2 and the target G3 never become features.
func Load(paths ...string) ([]Sample, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("dataset: no input files")
	}

	var samples []Sample
	seen := make(map[string]bool)

	for _, path := range paths {
		rows, err := loadFile(path)
		if err != nil {
			return nil, err
		}
		for _, s := range rows {
			key := dedupKey(s)
			if seen[key] {
				continue
			}
			seen[key] = true
			samples = append(samples, s)
		}
	}
	return samples, nil
}

func loadFile(path string) ([]Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parse(charmap.ISO8859_1.NewDecoder().Reader(f), path)
}

func parse(r io.Reader, path string) ([]Sample, error) {
	reader := csv.NewReader(r)
	reader.Comma = ';'

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("dataset: %s: reading header: %w", path, err)
	}

	g3Col := -1
	for i, name := range header {
		if name == "G3" {
			g3Col = i
		}
	}
	if g3Col == -1 {
		return nil, fmt.Errorf("dataset: %s: no G3 column", path)
	}

	var samples []Sample
	line := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("dataset: %s: line %d: %w", path, line+1, err)
		}
		line++

		g3, err := strconv.Atoi(strings.TrimSpace(row[g3Col]))
		if err != nil {
			return nil, fmt.Errorf("dataset: %s: line %d: bad G3 value %q", path, line, row[g3Col])
		}

		rec := make(schema.Record, len(header))
		for i, name := range header {
			if name == "G1" || name == "G2" || name == "G3" {
				continue
			}
			rec[name] = row[i]
		}
		samples = append(samples, Sample{Record: rec, Grade: GradeBand(g3)})
	}
	return samples, nil
}

func dedupKey(s Sample) string {
	keys := make([]string, 0, len(s.Record))
	for k := range s.Record {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s=%v;", k, s.Record[k])
	}
	b.WriteString("grade=" + s.Grade)
	return b.String()
}
