// Package catalogue indexes the synthetic scene records by category and
// draws categories and sequence ids for the sampler.
package catalogue

import (
	"fmt"
	"math/rand/v2"
	"path/filepath"
	"strconv"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/ivlev/trajclip/internal/scene"
)

// Layout holds the dataset roots records are resolved against.
type Layout struct {
	VideoRoot    string
	MaskRoot     string
	LabelRoot    string
	TrajMetaRoot string
}

// Catalogue is read-only after New and safe for concurrent use.
type Catalogue struct {
	layout  Layout
	counts  [4]int
	seqMax  [4]int
	weights []float64 // indexed by scene.Category
	total   int
}

// New builds a catalogue from the mixture counts and per-category id bounds.
func New(counts, seqMax map[scene.Category]int, layout Layout) (*Catalogue, error) {
	c := &Catalogue{layout: layout, weights: make([]float64, len(scene.Categories))}

	for _, cat := range scene.Categories {
		n := counts[cat]
		if n < 0 {
			return nil, fmt.Errorf("%s count must not be negative, got %d", cat, n)
		}
		limit := seqMax[cat]
		if n > 0 && limit <= 0 {
			return nil, fmt.Errorf("%s has count %d but seq_id_max %d", cat, n, limit)
		}
		c.counts[cat] = n
		c.seqMax[cat] = limit
		c.weights[cat] = float64(n)
		c.total += n
	}

	if c.total == 0 {
		return nil, scene.ErrCategoryExhausted
	}
	return c, nil
}

// PickCategory draws a category with probability proportional to its count.
// Categories with count zero are never returned.
func (c *Catalogue) PickCategory(rng *rand.Rand) scene.Category {
	return scene.Category(distuv.NewCategorical(c.weights, rng).Rand())
}

// PickSequenceID draws uniformly from [0, seq_id_max) of the category.
func (c *Catalogue) PickSequenceID(rng *rand.Rand, cat scene.Category) int {
	return rng.IntN(c.seqMax[cat])
}

// Pick draws a category and a sequence id and resolves the record.
func (c *Catalogue) Pick(rng *rand.Rand) (scene.Record, error) {
	cat := c.PickCategory(rng)
	return c.Record(cat, c.PickSequenceID(rng, cat))
}

// Record resolves the files of one scene.
func (c *Catalogue) Record(cat scene.Category, id int) (scene.Record, error) {
	if !cat.Valid() {
		return scene.Record{}, fmt.Errorf("invalid category %d", int(cat))
	}
	if id < 0 || id >= c.seqMax[cat] {
		return scene.Record{}, fmt.Errorf("%s sequence id %d out of range [0, %d)", cat, id, c.seqMax[cat])
	}

	dir := cat.String()
	name := strconv.Itoa(id)
	return scene.Record{
		Category:     cat,
		SequenceID:   id,
		FrameDir:     filepath.Join(c.layout.VideoRoot, dir, name),
		MaskDir:      filepath.Join(c.layout.MaskRoot, dir, name),
		LabelFile:    filepath.Join(c.layout.LabelRoot, dir, name+".yaml"),
		TrajMetaFile: filepath.Join(c.layout.TrajMetaRoot, dir, name+".yaml"),
	}, nil
}

// Len is the nominal epoch length: the sum of the mixture counts.
func (c *Catalogue) Len() int {
	return c.total
}

// Count returns the configured mixture count of a category.
func (c *Catalogue) Count(cat scene.Category) int {
	return c.counts[cat]
}

// SeqMax returns the id bound of a category.
func (c *Catalogue) SeqMax(cat scene.Category) int {
	return c.seqMax[cat]
}

// Share returns the probability of drawing the category.
func (c *Catalogue) Share(cat scene.Category) float64 {
	return float64(c.counts[cat]) / float64(c.total)
}
