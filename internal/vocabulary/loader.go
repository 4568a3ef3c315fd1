// Package vocabulary loads word packs and serves them to the quiz.
package vocabulary

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/parlance/internal/domain"
)

//go:embed data/*.yaml
var builtin embed.FS

// PackFile represents the YAML structure for a vocabulary pack
type PackFile struct {
	ID       string      `yaml:"id"`
	Name     string      `yaml:"name"`
	Language string      `yaml:"language"`
	Entries  []EntryFile `yaml:"entries"`
}

// EntryFile represents one word in a pack file
type EntryFile struct {
	Word         string `yaml:"word"`
	Level        string `yaml:"level"`
	Definition   string `yaml:"definition"`
	Example      string `yaml:"example"`
	PartOfSpeech string `yaml:"part_of_speech"`
}

// Pack is a loaded, validated vocabulary pack
type Pack struct {
	ID       string
	Name     string
	Language string
	Entries  []domain.VocabularyEntry
}

// ParsePack decodes and validates a pack. Invalid entries fail the whole pack.
func ParsePack(data []byte) (*Pack, error) {
	var file PackFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse pack file: %w", err)
	}

	pack := &Pack{
		ID:       file.ID,
		Name:     file.Name,
		Language: file.Language,
		Entries:  make([]domain.VocabularyEntry, 0, len(file.Entries)),
	}

	for i, ef := range file.Entries {
		level, err := domain.ParseLevel(ef.Level)
		if err != nil {
			return nil, fmt.Errorf("entry %d (%s): %w", i, ef.Word, err)
		}
		entry := domain.VocabularyEntry{
			SurfaceForm:     strings.TrimSpace(ef.Word),
			Level:           level,
			Definition:      strings.TrimSpace(ef.Definition),
			ExampleSentence: strings.TrimSpace(ef.Example),
			PartOfSpeech:    strings.ToLower(strings.TrimSpace(ef.PartOfSpeech)),
		}
		if err := entry.Validate(); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		pack.Entries = append(pack.Entries, entry)
	}

	return pack, nil
}

// DefaultPack returns the pack compiled into the binary
func DefaultPack() (*Pack, error) {
	data, err := builtin.ReadFile("data/default.yaml")
	if err != nil {
		return nil, fmt.Errorf("read builtin pack: %w", err)
	}
	return ParsePack(data)
}

// Loader handles loading vocabulary packs from YAML files
type Loader struct {
	basePath string
}

// NewLoader creates a new pack loader rooted at basePath
func NewLoader(basePath string) *Loader {
	return &Loader{basePath: basePath}
}

// LoadFile loads a single pack file
func (l *Loader) LoadFile(path string) (*Pack, error) {
	if !filepath.IsAbs(path) && l.basePath != "" {
		path = filepath.Join(l.basePath, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pack file: %w", err)
	}
	pack, err := ParsePack(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return pack, nil
}

// LoadAll loads every *.yaml pack under basePath in name order.
// A missing directory yields no packs.
func (l *Loader) LoadAll() ([]*Pack, error) {
	entries, err := os.ReadDir(l.basePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read packs dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		if ext == ".yaml" || ext == ".yml" {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	packs := make([]*Pack, 0, len(names))
	for _, name := range names {
		pack, err := l.LoadFile(filepath.Join(l.basePath, name))
		if err != nil {
			return nil, err
		}
		packs = append(packs, pack)
	}
	return packs, nil
}
