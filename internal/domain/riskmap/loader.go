package riskmap

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// File names of the four catalogs inside the data directory.
const (
	risksFile          = "risks.yaml"
	controlsFile       = "controls.yaml"
	personasFile       = "personas.yaml"
	selfAssessmentFile = "self-assessment.yaml"
)

type risksDocument struct {
	Risks []Risk `yaml:"risks"`
}

type controlsDocument struct {
	Controls []Control `yaml:"controls"`
}

type personasDocument struct {
	Personas []Persona `yaml:"personas"`
}

type selfAssessmentDocument struct {
	SelfAssessment struct {
		Personas  PersonaPrompt `yaml:"personas"`
		Questions []Question    `yaml:"questions"`
	} `yaml:"selfAssessment"`
}

// Load reads the four YAML catalogs from dir and builds a validated Store.
// Any parse failure or inconsistent reference is fatal to startup.
func Load(dir string) (*Store, error) {
	var risks risksDocument
	if err := readYAML(filepath.Join(dir, risksFile), &risks); err != nil {
		return nil, err
	}

	var controls controlsDocument
	if err := readYAML(filepath.Join(dir, controlsFile), &controls); err != nil {
		return nil, err
	}

	var personas personasDocument
	if err := readYAML(filepath.Join(dir, personasFile), &personas); err != nil {
		return nil, err
	}

	var sa selfAssessmentDocument
	if err := readYAML(filepath.Join(dir, selfAssessmentFile), &sa); err != nil {
		return nil, err
	}

	store, err := NewStore(risks.Risks, controls.Controls, personas.Personas,
		sa.SelfAssessment.Personas, sa.SelfAssessment.Questions)
	if err != nil {
		return nil, fmt.Errorf("risk map configuration invalid: %w", err)
	}

	return store, nil
}

func readYAML(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", filepath.Base(path), err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	return nil
}
