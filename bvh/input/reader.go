// Package input loads the flat box and query-point arrays consumed by the
// index from whitespace-separated text files. One record per line, '#'
// starts a comment; boxes list the min corner then the max corner per axis,
// points list one coordinate per axis.
package input

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ReadBoxes parses a box file of the given dimension and returns the flat
// coordinate array together with the number of boxes read.
func ReadBoxes(fileName string, dim int) ([]float32, int, error) {
	records, err := readRecords(fileName, 2*dim)
	if err != nil {
		return nil, 0, err
	}
	if len(records) == 0 {
		return nil, 0, fmt.Errorf("input: no boxes in %s", fileName)
	}

	boxes := make([]float32, 0, len(records)*2*dim)
	for _, rec := range records {
		boxes = append(boxes, rec...)
	}
	return boxes, len(records), nil
}

// ReadPoints parses a query-point file of the given dimension into parallel
// coordinate arrays. z is nil for 2D files.
func ReadPoints(fileName string, dim int) (x, y, z []float32, err error) {
	records, err := readRecords(fileName, dim)
	if err != nil {
		return nil, nil, nil, err
	}

	x = make([]float32, len(records))
	y = make([]float32, len(records))
	if dim == 3 {
		z = make([]float32, len(records))
	}
	for i, rec := range records {
		x[i] = rec[0]
		y[i] = rec[1]
		if dim == 3 {
			z[i] = rec[2]
		}
	}
	return x, y, z, nil
}

func readRecords(fileName string, valuesPerLine int) ([][]float32, error) {
	f, err := os.Open(fileName)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return parseRecords(f, fileName, valuesPerLine)
}

func parseRecords(r io.Reader, fileName string, valuesPerLine int) ([][]float32, error) {
	var records [][]float32

	scanner := bufio.NewScanner(r)
	for lineNum := 1; scanner.Scan(); lineNum++ {
		line := scanner.Text()
		if idx := strings.IndexByte(line, '#'); idx != -1 {
			line = line[:idx]
		}

		tokens := strings.Fields(line)
		if len(tokens) == 0 {
			continue
		}
		if len(tokens) != valuesPerLine {
			return nil, fmt.Errorf("input: %s:%d: expected %d values per line; got %d", fileName, lineNum, valuesPerLine, len(tokens))
		}

		rec := make([]float32, valuesPerLine)
		for i, tok := range tokens {
			v, err := strconv.ParseFloat(tok, 32)
			if err != nil {
				return nil, fmt.Errorf("input: %s:%d: %v", fileName, lineNum, err)
			}
			rec[i] = float32(v)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return records, nil
}
