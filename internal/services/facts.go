package services

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ClinicFacts is the static business information rendered into every
// prompt. Slices keep their file order so prompts are stable.
type ClinicFacts struct {
	Name     string        `yaml:"name"`
	Persona  string        `yaml:"persona"`
	Currency string        `yaml:"currency"`
	Hours    []string      `yaml:"hours"`
	Services []ServiceItem `yaml:"services"`
	Notes    []string      `yaml:"notes"`
}

type ServiceItem struct {
	Name  string `yaml:"name"`
	Price int    `yaml:"price"`
	// Detail is free text such as "desde" or "por pieza".
	Detail string `yaml:"detail,omitempty"`
}

func DefaultClinicFacts() ClinicFacts {
	return ClinicFacts{
		Name:     "Clínica Dental",
		Persona:  "Eres el asistente de una clínica dental en México. Responde en español, de forma breve, cálida y útil.",
		Currency: "MXN",
		Hours: []string{
			"Lunes a viernes: 9:00 a 19:00",
			"Sábado: 9:00 a 14:00",
			"Domingo: cerrado",
		},
		Services: []ServiceItem{
			{Name: "Consulta de valoración", Price: 300},
			{Name: "Limpieza dental", Price: 600},
			{Name: "Resina (empaste)", Price: 800, Detail: "por pieza"},
			{Name: "Extracción simple", Price: 900},
			{Name: "Blanqueamiento", Price: 3500},
			{Name: "Endodoncia", Price: 4500, Detail: "desde"},
		},
	}
}

// LoadClinicFacts reads a YAML facts file. An empty path returns the
// compiled-in defaults; fields missing from the file keep their defaults.
func LoadClinicFacts(path string) (ClinicFacts, error) {
	facts := DefaultClinicFacts()
	path = strings.TrimSpace(path)
	if path == "" {
		return facts, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return ClinicFacts{}, fmt.Errorf("read clinic facts: %w", err)
	}
	if err := yaml.Unmarshal(raw, &facts); err != nil {
		return ClinicFacts{}, fmt.Errorf("parse clinic facts %s: %w", path, err)
	}
	if err := facts.Validate(); err != nil {
		return ClinicFacts{}, fmt.Errorf("clinic facts %s: %w", path, err)
	}
	return facts, nil
}

func (f ClinicFacts) Validate() error {
	if strings.TrimSpace(f.Persona) == "" {
		return fmt.Errorf("persona required")
	}
	for i, s := range f.Services {
		if strings.TrimSpace(s.Name) == "" {
			return fmt.Errorf("services[%d]: name required", i)
		}
		if s.Price < 0 {
			return fmt.Errorf("services[%d]: negative price", i)
		}
	}
	return nil
}
