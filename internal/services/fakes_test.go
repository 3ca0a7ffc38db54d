package services

import (
	"context"
	"errors"
	"sync"

	sessionrepo "github.com/yungbote/clinic-concierge/internal/data/repos/conversation"
	"github.com/yungbote/clinic-concierge/internal/domain/conversation"
	"github.com/yungbote/clinic-concierge/internal/platform/dbctx"
)

type fakeLLM struct {
	mu      sync.Mutex
	reply   string
	err     error
	block   bool
	prompts []Prompt
}

func (f *fakeLLM) GenerateText(ctx context.Context, system string, user string) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, Prompt{System: system, User: user})
	reply, err, block := f.reply, f.err, f.block
	f.mu.Unlock()
	if block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return reply, err
}

func (f *fakeLLM) Name() string { return "fake" }

func (f *fakeLLM) calls() []Prompt {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Prompt(nil), f.prompts...)
}

type sentMessage struct {
	To   string
	Body string
}

type fakeSender struct {
	mu   sync.Mutex
	err  error
	sent []sentMessage
}

func (f *fakeSender) Send(ctx context.Context, to string, body string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{To: to, Body: body})
	if f.err != nil {
		return "", f.err
	}
	return "SM-fake", nil
}

func (f *fakeSender) messages() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMessage(nil), f.sent...)
}

// flakyRepo wraps a real repo and fails selected operations.
type flakyRepo struct {
	sessionrepo.SessionRepo
	loadErr error
	saveErr error
	saves   int
}

func (r *flakyRepo) GetOrCreate(dbc dbctx.Context, key string) (*conversation.Session, error) {
	if r.loadErr != nil {
		return nil, r.loadErr
	}
	return r.SessionRepo.GetOrCreate(dbc, key)
}

func (r *flakyRepo) Save(dbc dbctx.Context, key string, identity conversation.Identity, turn *conversation.Turn) error {
	r.saves++
	if r.saveErr != nil {
		return r.saveErr
	}
	return r.SessionRepo.Save(dbc, key, identity, turn)
}

type memDeduper struct {
	mu      sync.Mutex
	claimed map[string]bool
}

func newMemDeduper() *memDeduper { return &memDeduper{claimed: map[string]bool{}} }

func (d *memDeduper) Claim(ctx context.Context, id string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.claimed[id] {
		return false, nil
	}
	d.claimed[id] = true
	return true, nil
}

func (d *memDeduper) Release(ctx context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.claimed, id)
	return nil
}

var errBoom = errors.New("boom")
