// Package prompt builds text conditions: per-example captions and the
// validation prompt set.
package prompt

import (
	"errors"
	"math/rand/v2"
	"slices"
	"strings"

	"github.com/ivlev/trajclip/internal/config"
	"github.com/ivlev/trajclip/internal/loader"
	"github.com/ivlev/trajclip/internal/scene"
)

var ErrNoAssets = errors.New("no assets to build prompts from")

// Builder is read-only after New and safe for concurrent use.
type Builder struct {
	assets []scene.Asset
	envs   []scene.Environment
}

// New snapshots the metadata tables in name order so that prompts drawn
// with the same RNG are reproducible.
func New(assets map[string]scene.Asset, envs map[string]scene.Environment) *Builder {
	b := &Builder{}
	for _, name := range sortedKeys(assets) {
		b.assets = append(b.assets, assets[name])
	}
	for _, name := range sortedKeys(envs) {
		b.envs = append(b.envs, envs[name])
	}
	return b
}

// Caption describes a loaded scene. A caption in the label file wins;
// otherwise objects are listed with their motion, followed by the setting.
func (b *Builder) Caption(sd *loader.SceneData) string {
	if sd.Caption != "" {
		return sd.Caption
	}
	parts := make([]string, 0, len(sd.Objects))
	for _, obj := range sd.Objects {
		phrase := describe(obj.Asset)
		if sd.Record.Category.Dynamic() && obj.Motion != "" {
			phrase += " " + obj.Motion
		}
		parts = append(parts, phrase)
	}
	return withSetting(strings.Join(parts, " and "), sd.Environment.Description)
}

// ValidationPrompts draws n prompts of 1..maxObj objects each. Synthetic
// prompts use the asset descriptions, the others only the class names.
func (b *Builder) ValidationPrompts(rng *rand.Rand, n int, synthetic bool, maxObj int) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}
	if len(b.assets) == 0 {
		return nil, ErrNoAssets
	}
	if maxObj < 1 {
		maxObj = 1
	}

	out := make([]string, 0, n)
	for range n {
		k := 1 + rng.IntN(maxObj)
		parts := make([]string, k)
		for i := range parts {
			a := b.assets[rng.IntN(len(b.assets))]
			if synthetic {
				parts[i] = describe(a)
			} else {
				parts[i] = withArticle(a.Class)
			}
		}
		var setting string
		if len(b.envs) > 0 {
			setting = b.envs[rng.IntN(len(b.envs))].Description
		}
		out = append(out, withSetting(strings.Join(parts, " and "), setting))
	}
	return out, nil
}

// Validation assembles the full validation set: fixed prompts first, then
// num/2 class prompts, then the rest synthetic.
func (b *Builder) Validation(rng *rand.Rand, v config.Validation) ([]string, error) {
	plain, err := b.ValidationPrompts(rng, v.Num/2, false, v.MaxObjNum)
	if err != nil {
		return nil, err
	}
	synth, err := b.ValidationPrompts(rng, v.Num-v.Num/2, true, v.MaxObjNum)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(v.Prompts)+len(plain)+len(synth))
	out = append(out, v.Prompts...)
	out = append(out, plain...)
	return append(out, synth...), nil
}

func describe(a scene.Asset) string {
	if a.Description != "" {
		return a.Description
	}
	return withArticle(a.Class)
}

func withArticle(noun string) string {
	if noun == "" {
		return "an object"
	}
	if strings.ContainsRune("aeiou", rune(strings.ToLower(noun)[0])) {
		return "an " + noun
	}
	return "a " + noun
}

func withSetting(subject, setting string) string {
	switch {
	case setting == "":
		return subject
	case subject == "":
		return setting
	}
	return subject + ", " + setting
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
