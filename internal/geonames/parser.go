// Package geonames reads GeoNames dump files and fetches per-country archives
// from the export server.
package geonames

import (
	"bufio"
	"fmt"
	"io"
	"iter"
	"strings"

	"geonames-importer/internal/models"
)

// maxLineSize bounds a single dump line. alternatenames can get long.
const maxLineSize = 1 << 20

// ParseLine maps one tab separated line onto a record following models.Fields.
// Missing trailing fields stay empty and extra fields are ignored.
func ParseLine(line string) models.LocationRecord {
	var rec models.LocationRecord

	values := strings.Split(line, "\t")
	for i, v := range values {
		if i >= len(models.Fields) {
			break
		}
		models.Fields[i].Set(&rec, v)
	}

	return rec
}

// Records yields one record per non-blank line of r. The sequence pulls the
// next line only when the consumer asks for it. A read error is yielded once
// and ends the sequence.
func Records(r io.Reader) iter.Seq2[models.LocationRecord, error] {
	return func(yield func(models.LocationRecord, error) bool) {
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

		for scanner.Scan() {
			line := strings.TrimRight(scanner.Text(), "\r")
			if strings.TrimSpace(line) == "" {
				continue
			}
			if !yield(ParseLine(line), nil) {
				return
			}
		}

		if err := scanner.Err(); err != nil {
			yield(models.LocationRecord{}, fmt.Errorf("geonames: read line: %w", err))
		}
	}
}
