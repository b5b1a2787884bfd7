// Package history builds the exact-match historical index from the training
// dataset.
package history

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/cityflow/traffic-insight-service/internal/domain"
)

// Index maps normalized incident text to the mean congestion score over all
// dataset rows with identical normalized text. It is built once at startup
// and read-only thereafter, so it is safe to share across concurrent
// resolver calls.
type Index struct {
	means map[string]float64
}

// Load reads the dataset CSV and precomputes per-text means. The file needs
// a header row with "text" and "trafficflow" columns; other columns are
// ignored. Duplicate rows are dropped before averaging. Rows with an
// unparseable score are skipped.
func Load(path string, logger *slog.Logger) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	idx, err := build(csv.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("load dataset %s: %w", path, err)
	}

	logger.Info("historical index loaded", "path", path, "distinct_texts", len(idx.means))
	return idx, nil
}

func build(reader *csv.Reader) (*Index, error) {
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	textCol, scoreCol := -1, -1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "text":
			textCol = i
		case "trafficflow":
			scoreCol = i
		}
	}
	if textCol < 0 || scoreCol < 0 {
		return nil, fmt.Errorf("header missing text/trafficflow columns: %v", header)
	}

	sums := make(map[string]float64)
	counts := make(map[string]int)
	seen := make(map[string]struct{})

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		if textCol >= len(row) || scoreCol >= len(row) {
			continue
		}

		rawText := row[textCol]
		rawScore := strings.TrimSpace(row[scoreCol])
		score, err := strconv.ParseFloat(rawScore, 64)
		if err != nil {
			continue
		}

		// Drop exact duplicate rows before averaging.
		dupKey := rawText + "|" + rawScore
		if _, dup := seen[dupKey]; dup {
			continue
		}
		seen[dupKey] = struct{}{}

		text := domain.Normalize(rawText)
		sums[text] += score
		counts[text]++
	}

	means := make(map[string]float64, len(sums))
	for text, sum := range sums {
		means[text] = sum / float64(counts[text])
	}
	return &Index{means: means}, nil
}

// MeanScore returns the mean congestion score for text, which must already
// be normalized. Matching is exact byte equality; near-duplicates do not
// contribute.
func (i *Index) MeanScore(text string) (float64, bool) {
	mean, ok := i.means[text]
	return mean, ok
}

// Size reports the number of distinct normalized texts in the index.
func (i *Index) Size() int {
	return len(i.means)
}
