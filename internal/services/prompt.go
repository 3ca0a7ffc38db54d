package services

import (
	"strconv"
	"strings"

	"github.com/yungbote/clinic-concierge/internal/domain/conversation"
)

const (
	unknownName  = "(desconocido)"
	emptyHistory = "(sin mensajes previos)"
)

// Prompt is the provider input for one reply.
type Prompt struct {
	System string
	User   string
}

type PromptBuilder struct {
	facts       ClinicFacts
	recentTurns int
}

func NewPromptBuilder(facts ClinicFacts, recentTurns int) *PromptBuilder {
	if recentTurns <= 0 {
		recentTurns = conversation.DefaultRecentTurns
	}
	return &PromptBuilder{facts: facts, recentTurns: recentTurns}
}

func (b *PromptBuilder) Build(snap conversation.Snapshot, senderKey string, utterance string) Prompt {
	return BuildPrompt(snap, senderKey, utterance, b.facts, b.recentTurns)
}

// BuildPrompt renders the system prompt from the session snapshot and the
// clinic facts, with the new utterance as the user message. It is a pure
// function of its arguments.
func BuildPrompt(snap conversation.Snapshot, senderKey string, utterance string, facts ClinicFacts, recentTurns int) Prompt {
	var b strings.Builder

	b.WriteString(strings.TrimSpace(facts.Persona))
	b.WriteString("\n\n")

	b.WriteString("Datos del paciente:\n")
	name := snap.Identity.Name
	if name == "" {
		name = unknownName
	}
	b.WriteString("- Nombre: " + name + "\n")
	if p := strings.TrimSpace(snap.Identity.ProfileName); p != "" {
		b.WriteString("- Perfil de WhatsApp: " + p + "\n")
	}
	b.WriteString("- Teléfono: " + senderKey + "\n\n")

	writeFacts(&b, facts)

	b.WriteString("Conversación reciente:\n")
	recent := conversation.RecentSlice(snap.History, recentTurns)
	if len(recent) == 0 {
		b.WriteString(emptyHistory + "\n")
	}
	for _, t := range recent {
		b.WriteString("Paciente: " + oneLine(t.Utterance) + "\n")
		b.WriteString("Asistente: " + oneLine(t.Reply) + "\n")
	}
	b.WriteString("\n")

	b.WriteString("Instrucciones:\n")
	if snap.Identity.Name != "" {
		b.WriteString("- Llama al paciente por su nombre (" + snap.Identity.Name + ").\n")
	} else {
		b.WriteString("- Si es natural, pregunta amablemente el nombre del paciente.\n")
	}
	b.WriteString("- Usa solo la información de la clínica indicada arriba; no inventes precios ni horarios.\n")
	b.WriteString("- Responde en español en pocas frases, apto para WhatsApp.\n")

	return Prompt{System: b.String(), User: strings.TrimSpace(utterance)}
}

func writeFacts(b *strings.Builder, facts ClinicFacts) {
	title := "Información de la clínica"
	if n := strings.TrimSpace(facts.Name); n != "" {
		title += " (" + n + ")"
	}
	b.WriteString(title + ":\n")
	if len(facts.Hours) > 0 {
		b.WriteString("Horario:\n")
		for _, h := range facts.Hours {
			b.WriteString("- " + h + "\n")
		}
	}
	if len(facts.Services) > 0 {
		b.WriteString("Servicios y precios:\n")
		for _, s := range facts.Services {
			b.WriteString("- " + s.Name + ": " + formatPrice(s, facts.Currency) + "\n")
		}
	}
	for _, n := range facts.Notes {
		b.WriteString("Nota: " + n + "\n")
	}
	b.WriteString("\n")
}

func formatPrice(s ServiceItem, currency string) string {
	out := "$" + strconv.Itoa(s.Price)
	if currency != "" {
		out += " " + currency
	}
	if d := strings.TrimSpace(s.Detail); d == "desde" {
		out = "desde " + out
	} else if d != "" {
		out += " " + d
	}
	return out
}

// oneLine keeps each history turn on its own prompt line.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
