// Package seed loads the initial factions and entities of a world from a
// JSON or YAML file.
package seed

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/jwebster45206/fractured-truths/pkg/storage"
	"github.com/jwebster45206/fractured-truths/pkg/world"
)

// ErrInvalidSeed is wrapped by every validation failure.
var ErrInvalidSeed = errors.New("invalid seed")

type FactionSeed struct {
	ID   string         `koanf:"id"`
	Name string         `koanf:"name"`
	Data map[string]any `koanf:"data"`
}

type EntitySeed struct {
	ID   string         `koanf:"id"`
	Kind string         `koanf:"kind"`
	Data map[string]any `koanf:"data"`
}

// Seed is the initial canonical world.
type Seed struct {
	Factions []FactionSeed `koanf:"factions"`
	Entities []EntitySeed  `koanf:"entities"`
}

// LoadFile parses a seed file. JSON is read through the YAML parser, which
// accepts it unchanged.
func LoadFile(path string) (*Seed, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to read seed %s: %w", path, err)
	}

	var s Seed
	if err := k.UnmarshalWithConf("", &s, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidSeed, path, err)
	}
	return &s, nil
}

var validIDRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9_:\-]*$`)

// Validate checks ids are present, well formed and unique per collection,
// that factions are named and entities have a kind. Every problem is
// reported.
func (s *Seed) Validate() error {
	var errs []error
	addErr := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidSeed}, args...)...))
	}

	seen := make(map[string]bool, len(s.Factions))
	for i, f := range s.Factions {
		switch {
		case f.ID == "":
			addErr("faction %d has no id", i)
		case !validIDRegex.MatchString(f.ID):
			addErr("faction id %q should be lowercase with _ : or - separators", f.ID)
		case seen[f.ID]:
			addErr("duplicate faction id %q", f.ID)
		}
		seen[f.ID] = true
		if f.Name == "" {
			addErr("faction %q has no name", f.ID)
		}
	}

	seen = make(map[string]bool, len(s.Entities))
	for i, e := range s.Entities {
		switch {
		case e.ID == "":
			addErr("entity %d has no id", i)
		case !validIDRegex.MatchString(e.ID):
			addErr("entity id %q should be lowercase with _ : or - separators", e.ID)
		case seen[e.ID]:
			addErr("duplicate entity id %q", e.ID)
		}
		seen[e.ID] = true
		if e.Kind == "" {
			addErr("entity %q has no kind", e.ID)
		}
	}
	return errors.Join(errs...)
}

// Apply upserts the seed into the canonical store. Re-applying the same seed
// is harmless.
func (s *Seed) Apply(ctx context.Context, store storage.CanonicalStore) error {
	for _, f := range s.Factions {
		if err := store.UpsertFaction(ctx, world.Faction{ID: f.ID, Name: f.Name, Data: world.Document(f.Data)}); err != nil {
			return fmt.Errorf("failed to seed faction %s: %w", f.ID, err)
		}
	}
	for _, e := range s.Entities {
		if err := store.UpsertEntity(ctx, world.Entity{ID: e.ID, Kind: e.Kind, Data: world.Document(e.Data)}); err != nil {
			return fmt.Errorf("failed to seed entity %s: %w", e.ID, err)
		}
	}
	return nil
}
