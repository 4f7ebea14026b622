package config

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/nstehr/vimy/prospector/nav"
	"github.com/nstehr/vimy/prospector/rules"
)

// File is a doctrine file: a set of named bot variants and the one to play
// when a game does not ask for a specific variant.
type File struct {
	Default string        `yaml:"default"`
	Entries []DoctrineDoc `yaml:"doctrines"`
}

// DoctrineDoc is the on-disk form of rules.Doctrine.
type DoctrineDoc struct {
	Name               string        `yaml:"name"`
	SpawnUntilTurn     int           `yaml:"spawn_until_turn"`
	SpawnUntilFraction float64       `yaml:"spawn_until_fraction"`
	LowYieldFraction   float64       `yaml:"low_yield_fraction"`
	SearchRadius       int           `yaml:"search_radius"`
	CrowdThreshold     int           `yaml:"crowd_threshold"`
	ReturnFraction     float64       `yaml:"return_fraction"`
	EndgameTurns       int           `yaml:"endgame_turns"`
	LeaveBase          bool          `yaml:"leave_base"`
	FuelCheck          bool          `yaml:"fuel_check"`
	Navigation         NavigationDoc `yaml:"navigation"`
}

type NavigationDoc struct {
	Travel    string `yaml:"travel"`
	Return    string `yaml:"return"`
	Explore   string `yaml:"explore"`
	Endgame   string `yaml:"endgame"`
	LeaveBase string `yaml:"leave_base"`
}

// Load reads, validates and decodes a doctrine file.
func Load(path string) (*File, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f, err := Parse(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Parse validates raw YAML against the doctrine schema and decodes it.
func Parse(b []byte) (*File, error) {
	if err := validate(b); err != nil {
		return nil, err
	}
	var f File
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("decode doctrines: %w", err)
	}
	seen := make(map[string]bool, len(f.Entries))
	for _, d := range f.Entries {
		if seen[d.Name] {
			return nil, fmt.Errorf("duplicate doctrine %q", d.Name)
		}
		seen[d.Name] = true
	}
	if f.Default != "" && !seen[f.Default] {
		return nil, fmt.Errorf("default doctrine %q is not defined", f.Default)
	}
	return &f, nil
}

// validate checks YAML against the schema. The document goes through JSON
// first so the validator only ever sees JSON-native types.
func validate(b []byte) error {
	var doc any
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return fmt.Errorf("parse yaml: %w", err)
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("convert yaml: %w", err)
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("convert yaml: %w", err)
	}

	s, err := schema()
	if err != nil {
		return err
	}
	if err := s.Validate(v); err != nil {
		return fmt.Errorf("invalid doctrines: %w", err)
	}
	return nil
}

// Doctrines converts every entry, merged over the built-in doctrines so a
// file may override "registry" or "rush" or add new variants.
func (f *File) Doctrines() (map[string]rules.Doctrine, error) {
	out := rules.BuiltinDoctrines()
	for _, doc := range f.Entries {
		d, err := doc.Doctrine()
		if err != nil {
			return nil, fmt.Errorf("doctrine %q: %w", doc.Name, err)
		}
		out[d.Name] = d
	}
	return out, nil
}

// Doctrine converts the document, parsing strategy names.
func (doc DoctrineDoc) Doctrine() (rules.Doctrine, error) {
	var plan rules.NavigationPlan
	fields := []struct {
		name string
		dst  *nav.Strategy
		def  nav.Strategy
	}{
		{doc.Navigation.Travel, &plan.Travel, nav.Safe},
		{doc.Navigation.Return, &plan.Return, nav.Safe},
		{doc.Navigation.Explore, &plan.Explore, nav.Safe},
		{doc.Navigation.Endgame, &plan.Endgame, nav.Rush},
		{doc.Navigation.LeaveBase, &plan.LeaveBase, nav.Evasive},
	}
	for _, f := range fields {
		if f.name == "" {
			*f.dst = f.def
			continue
		}
		s, err := nav.ParseStrategy(f.name)
		if err != nil {
			return rules.Doctrine{}, err
		}
		*f.dst = s
	}

	d := rules.Doctrine{
		Name:               doc.Name,
		SpawnUntilTurn:     doc.SpawnUntilTurn,
		SpawnUntilFraction: doc.SpawnUntilFraction,
		LowYieldFraction:   doc.LowYieldFraction,
		SearchRadius:       doc.SearchRadius,
		CrowdThreshold:     doc.CrowdThreshold,
		ReturnFraction:     doc.ReturnFraction,
		EndgameTurns:       doc.EndgameTurns,
		LeaveBase:          doc.LeaveBase,
		FuelCheck:          doc.FuelCheck,
		Navigation:         plan,
	}
	if d.SearchRadius == 0 {
		d.SearchRadius = 5
	}
	if d.CrowdThreshold == 0 {
		d.CrowdThreshold = 2
	}
	d.Validate()
	return d, nil
}

// Resolve picks the doctrine to play: name if given, else the file default,
// else fallback.
func Resolve(doctrines map[string]rules.Doctrine, name, fileDefault, fallback string) (rules.Doctrine, error) {
	for _, n := range []string{name, fileDefault, fallback} {
		if n == "" {
			continue
		}
		d, ok := doctrines[n]
		if !ok {
			return rules.Doctrine{}, fmt.Errorf("unknown doctrine %q", n)
		}
		return d, nil
	}
	return rules.Doctrine{}, fmt.Errorf("no doctrine selected")
}
