package conversation

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Session is the persisted per-sender conversation state. There is exactly
// one row per SenderKey.
type Session struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SenderKey string    `gorm:"type:text;not null;uniqueIndex" json:"sender_key"`

	Identity datatypes.JSON `gorm:"not null" json:"identity"`
	History  datatypes.JSON `gorm:"not null" json:"history"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;index" json:"updated_at"`
}

func (Session) TableName() string { return "conversation_session" }

// Identity holds facts learned about a sender. Facts are merged, never
// cleared.
type Identity struct {
	Name        string    `json:"name,omitempty"`
	ProfileName string    `json:"profile_name,omitempty"`
	FirstSeen   time.Time `json:"first_seen"`
}

// Turn is one immutable utterance/reply exchange.
type Turn struct {
	Utterance string    `json:"utterance"`
	Reply     string    `json:"reply"`
	Timestamp time.Time `json:"timestamp"`
}

// Merge overlays facts from next onto id without replacing anything id
// already knows.
func (id Identity) Merge(next Identity) Identity {
	if id.Name == "" {
		id.Name = next.Name
	}
	if id.ProfileName == "" {
		id.ProfileName = next.ProfileName
	}
	if id.FirstSeen.IsZero() {
		id.FirstSeen = next.FirstSeen
	}
	return id
}

func (id Identity) HasName() bool { return id.Name != "" }

// NewSession builds an unsaved session seeded with a first-seen timestamp.
func NewSession(senderKey string, now time.Time) (*Session, error) {
	now = now.UTC()
	s := &Session{
		ID:        uuid.New(),
		SenderKey: senderKey,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.SetIdentity(Identity{FirstSeen: now}); err != nil {
		return nil, err
	}
	if err := s.SetHistory(nil); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Session) DecodeIdentity() (Identity, error) {
	var id Identity
	if s == nil || isEmptyJSON(s.Identity) {
		return id, nil
	}
	if err := json.Unmarshal(s.Identity, &id); err != nil {
		return Identity{}, fmt.Errorf("decode identity: %w", err)
	}
	return id, nil
}

func (s *Session) DecodeHistory() ([]Turn, error) {
	if s == nil || isEmptyJSON(s.History) {
		return []Turn{}, nil
	}
	var out []Turn
	if err := json.Unmarshal(s.History, &out); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	if out == nil {
		out = []Turn{}
	}
	return out, nil
}

func (s *Session) SetIdentity(id Identity) error {
	raw, err := json.Marshal(id)
	if err != nil {
		return fmt.Errorf("encode identity: %w", err)
	}
	s.Identity = datatypes.JSON(raw)
	return nil
}

func (s *Session) SetHistory(h []Turn) error {
	if h == nil {
		h = []Turn{}
	}
	raw, err := json.Marshal(h)
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	s.History = datatypes.JSON(raw)
	return nil
}

// Snapshot is a decoded, request-scoped copy of a session.
type Snapshot struct {
	SenderKey string
	Identity  Identity
	History   []Turn
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (s *Session) Snapshot() (Snapshot, error) {
	id, err := s.DecodeIdentity()
	if err != nil {
		return Snapshot{}, err
	}
	h, err := s.DecodeHistory()
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{
		SenderKey: s.SenderKey,
		Identity:  id,
		History:   h,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}, nil
}

func isEmptyJSON(raw datatypes.JSON) bool {
	switch string(raw) {
	case "", "null", "{}", "[]":
		return true
	}
	return false
}
