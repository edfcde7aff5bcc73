package embeddings

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
)

// StaticWordModel is an in-memory word-vector table, typically loaded
// from a word2vec text file. It needs no network, which keeps the
// engine usable fully offline.
type StaticWordModel struct {
	dims    int
	vectors map[string][]float64
}

// NewStaticWordModel creates an empty model with fixed dimensions.
func NewStaticWordModel(dims int) *StaticWordModel {
	return &StaticWordModel{
		dims:    dims,
		vectors: make(map[string][]float64),
	}
}

// Add stores a vector for a word. The word is lowercased; dimensions
// must match the model.
func (m *StaticWordModel) Add(word string, vec []float64) error {
	if len(vec) != m.dims {
		return fmt.Errorf("vector for %q has dimension %d, expected %d", word, len(vec), m.dims)
	}
	m.vectors[strings.ToLower(word)] = vec
	return nil
}

// Vector returns the vector for a word, if present.
func (m *StaticWordModel) Vector(word string) ([]float64, bool) {
	v, ok := m.vectors[word]
	return v, ok
}

// Dimensions returns the model's vector dimensions.
func (m *StaticWordModel) Dimensions() int {
	return m.dims
}

// Size returns the number of words in the model.
func (m *StaticWordModel) Size() int {
	return len(m.vectors)
}

// LoadWordVectors reads a word2vec text-format file: an optional
// "<count> <dims>" header line followed by "word v1 v2 ..." lines.
// Dimensions are taken from the header or inferred from the first
// vector line.
func LoadWordVectors(path string) (*StaticWordModel, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open word vectors: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var model *StaticWordModel
	line := 0
	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		if line == 1 && len(fields) == 2 {
			if _, countErr := strconv.Atoi(fields[0]); countErr == nil {
				if dims, dimsErr := strconv.Atoi(fields[1]); dimsErr == nil {
					model = NewStaticWordModel(dims)
					continue
				}
			}
		}

		if len(fields) < 2 {
			return nil, fmt.Errorf("malformed vector on line %d", line)
		}

		vec := make([]float64, len(fields)-1)
		for i, field := range fields[1:] {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("malformed vector on line %d: %w", line, err)
			}
			vec[i] = v
		}

		if model == nil {
			model = NewStaticWordModel(len(vec))
		}
		if err := model.Add(fields[0], vec); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read word vectors: %w", err)
	}

	if model == nil || model.Size() == 0 {
		return nil, fmt.Errorf("no word vectors found in %s", path)
	}

	log.Debug("loaded word vectors", "path", path, "words", model.Size(), "dimensions", model.Dimensions())
	return model, nil
}
