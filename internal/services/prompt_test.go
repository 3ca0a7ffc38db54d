package services

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/yungbote/clinic-concierge/internal/domain/conversation"
)

func snapshotWithTurns(n int) conversation.Snapshot {
	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	snap := conversation.Snapshot{
		SenderKey: "whatsapp:+521000",
		Identity:  conversation.Identity{Name: "Ana", FirstSeen: base},
		History:   []conversation.Turn{},
	}
	for i := 0; i < n; i++ {
		snap.History = append(snap.History, conversation.Turn{
			Utterance: fmt.Sprintf("pregunta %d", i),
			Reply:     fmt.Sprintf("respuesta %d", i),
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		})
	}
	return snap
}

func TestBuildPromptDeterministic(t *testing.T) {
	snap := snapshotWithTurns(7)
	facts := DefaultClinicFacts()
	a := BuildPrompt(snap, snap.SenderKey, "hola", facts, 5)
	b := BuildPrompt(snap, snap.SenderKey, "hola", facts, 5)
	if a != b {
		t.Fatalf("prompts differ:\n%s\n---\n%s", a.System, b.System)
	}
	if len(snap.History) != 7 || snap.History[0].Utterance != "pregunta 0" {
		t.Fatalf("snapshot mutated")
	}
}

func TestBuildPromptRecentWindow(t *testing.T) {
	snap := snapshotWithTurns(7)
	p := BuildPrompt(snap, snap.SenderKey, "¿y el sábado?", DefaultClinicFacts(), 5)

	for i := 0; i < 2; i++ {
		if strings.Contains(p.System, fmt.Sprintf("pregunta %d\n", i)) {
			t.Fatalf("turn %d outside the window rendered", i)
		}
	}
	last := -1
	for i := 2; i < 7; i++ {
		idx := strings.Index(p.System, fmt.Sprintf("Paciente: pregunta %d\n", i))
		if idx < 0 {
			t.Fatalf("turn %d missing:\n%s", i, p.System)
		}
		if idx < last {
			t.Fatalf("turn %d out of order", i)
		}
		last = idx
		if !strings.Contains(p.System, fmt.Sprintf("Asistente: respuesta %d\n", i)) {
			t.Fatalf("reply %d missing", i)
		}
	}
	if p.User != "¿y el sábado?" {
		t.Fatalf("user = %q", p.User)
	}
}

func TestBuildPromptEmptyHistoryAndUnknownName(t *testing.T) {
	snap := conversation.Snapshot{SenderKey: "whatsapp:+521999", History: []conversation.Turn{}}
	p := BuildPrompt(snap, snap.SenderKey, "hola", DefaultClinicFacts(), 5)

	for _, want := range []string{
		"Conversación reciente:\n" + emptyHistory + "\n",
		"- Nombre: " + unknownName + "\n",
		"- Teléfono: whatsapp:+521999\n",
		"- Limpieza dental: $600 MXN\n",
		"- Endodoncia: desde $4500 MXN\n",
		"Lunes a viernes: 9:00 a 19:00",
	} {
		if !strings.Contains(p.System, want) {
			t.Fatalf("prompt missing %q:\n%s", want, p.System)
		}
	}
	if strings.Contains(p.System, "Perfil de WhatsApp") {
		t.Fatalf("profile line rendered without profile name")
	}
}

func TestBuildPromptFlattensMultilineTurns(t *testing.T) {
	snap := conversation.Snapshot{History: []conversation.Turn{{Utterance: "línea uno\nlínea dos", Reply: "ok"}}}
	p := BuildPrompt(snap, "k", "x", DefaultClinicFacts(), 5)
	if !strings.Contains(p.System, "Paciente: línea uno línea dos\n") {
		t.Fatalf("multiline utterance not flattened:\n%s", p.System)
	}
}

func TestLoadClinicFacts(t *testing.T) {
	def, err := LoadClinicFacts("")
	if err != nil || def.Persona == "" || len(def.Services) == 0 {
		t.Fatalf("defaults = %+v, %v", def, err)
	}

	path := filepath.Join(t.TempDir(), "facts.yaml")
	raw := `name: Sonrisa Feliz
hours:
  - "Lunes a sábado: 8:00 a 20:00"
services:
  - name: Limpieza dental
    price: 550
  - name: Ortodoncia
    price: 15000
    detail: desde
`
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	facts, err := LoadClinicFacts(path)
	if err != nil {
		t.Fatalf("LoadClinicFacts: %v", err)
	}
	if facts.Name != "Sonrisa Feliz" || len(facts.Hours) != 1 || len(facts.Services) != 2 {
		t.Fatalf("facts = %+v", facts)
	}
	if facts.Persona != DefaultClinicFacts().Persona || facts.Currency != "MXN" {
		t.Fatalf("defaults not kept for missing fields")
	}

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	_ = os.WriteFile(bad, []byte("services:\n  - price: 10\n"), 0o600)
	if _, err := LoadClinicFacts(bad); err == nil {
		t.Fatalf("expected validation error")
	}
	if _, err := LoadClinicFacts(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected read error")
	}
}

func TestMockProvider(t *testing.T) {
	p := NewMockProvider()
	a, err := p.GenerateText(t.Context(), "sys", "hola")
	if err != nil {
		t.Fatalf("GenerateText: %v", err)
	}
	b, _ := p.GenerateText(t.Context(), "sys", "hola")
	if a != b || !strings.Contains(a, "hola") {
		t.Fatalf("mock reply = %q / %q", a, b)
	}
}
