package service

import (
	"context"
	"sort"
	"sync"

	"ai-chat-be/internal/entity"
	"ai-chat-be/internal/repository/contract"
	"ai-chat-be/internal/repository/specification"
	"ai-chat-be/internal/repository/unitofwork"
	"ai-chat-be/pkg/events"
	"ai-chat-be/pkg/llm"

	"github.com/google/uuid"
)

// In-memory repositories interpreting the same specifications the
// GORM implementations apply, so service logic can be exercised
// without a database.

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*entity.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uuid.UUID]*entity.User)}
}

func (r *fakeUserRepo) Create(_ context.Context, user *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.Id] = user
	return nil
}

func (r *fakeUserRepo) FindOne(_ context.Context, specs ...specification.Specification) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if matchUser(u, specs) {
			return u, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) Count(_ context.Context, specs ...specification.Specification) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, u := range r.users {
		if matchUser(u, specs) {
			n++
		}
	}
	return n, nil
}

func matchUser(u *entity.User, specs []specification.Specification) bool {
	for _, spec := range specs {
		switch s := spec.(type) {
		case specification.ByID:
			if u.Id != s.ID {
				return false
			}
		case specification.ByEmail:
			if u.Email != s.Email {
				return false
			}
		}
	}
	return true
}

type fakeConversationRepo struct {
	mu            sync.Mutex
	conversations map[uuid.UUID]*entity.Conversation
	touched       []uuid.UUID
}

func newFakeConversationRepo() *fakeConversationRepo {
	return &fakeConversationRepo{conversations: make(map[uuid.UUID]*entity.Conversation)}
}

func (r *fakeConversationRepo) Create(_ context.Context, c *entity.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *c
	r.conversations[c.Id] = &cp
	return nil
}

func (r *fakeConversationRepo) FindOne(_ context.Context, specs ...specification.Specification) (*entity.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.conversations {
		if matchConversation(c, specs) {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeConversationRepo) FindAll(_ context.Context, specs ...specification.Specification) ([]*entity.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.Conversation
	for _, c := range r.conversations {
		if matchConversation(c, specs) {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeConversationRepo) Count(_ context.Context, specs ...specification.Specification) (int64, error) {
	all, _ := r.FindAll(context.Background(), specs...)
	return int64(len(all)), nil
}

func (r *fakeConversationRepo) Touch(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.touched = append(r.touched, id)
	return nil
}

func matchConversation(c *entity.Conversation, specs []specification.Specification) bool {
	for _, spec := range specs {
		switch s := spec.(type) {
		case specification.ByID:
			if c.Id != s.ID {
				return false
			}
		case specification.ByUserID:
			if c.UserId != s.UserID {
				return false
			}
		}
	}
	return true
}

type fakeMessageRepo struct {
	mu       sync.Mutex
	messages []*entity.ConversationMessage
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{}
}

func (r *fakeMessageRepo) Create(_ context.Context, m *entity.ConversationMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *m
	r.messages = append(r.messages, &cp)
	return nil
}

func (r *fakeMessageRepo) FindAll(_ context.Context, specs ...specification.Specification) ([]*entity.ConversationMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.ConversationMessage
	for _, m := range r.messages {
		if matchMessage(m, specs) {
			cp := *m
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeMessageRepo) Count(_ context.Context, specs ...specification.Specification) (int64, error) {
	all, _ := r.FindAll(context.Background(), specs...)
	return int64(len(all)), nil
}

func matchMessage(m *entity.ConversationMessage, specs []specification.Specification) bool {
	for _, spec := range specs {
		switch s := spec.(type) {
		case specification.ByConversationID:
			if m.ConversationId != s.ConversationID {
				return false
			}
		case specification.ByUserID:
			if m.UserId != s.UserID {
				return false
			}
		}
	}
	return true
}

type fakeUnitOfWork struct {
	users         *fakeUserRepo
	conversations *fakeConversationRepo
	messages      *fakeMessageRepo

	begun     int
	committed int
	rolled    int
}

func (u *fakeUnitOfWork) Begin(context.Context) error { u.begun++; return nil }
func (u *fakeUnitOfWork) Commit() error               { u.committed++; return nil }
func (u *fakeUnitOfWork) Rollback() error             { u.rolled++; return nil }

func (u *fakeUnitOfWork) UserRepository() contract.UserRepository { return u.users }
func (u *fakeUnitOfWork) ConversationRepository() contract.ConversationRepository {
	return u.conversations
}
func (u *fakeUnitOfWork) ConversationMessageRepository() contract.ConversationMessageRepository {
	return u.messages
}

type fakeFactory struct {
	uow *fakeUnitOfWork
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{uow: &fakeUnitOfWork{
		users:         newFakeUserRepo(),
		conversations: newFakeConversationRepo(),
		messages:      newFakeMessageRepo(),
	}}
}

func (f *fakeFactory) NewUnitOfWork(context.Context) unitofwork.UnitOfWork { return f.uow }

// recorderPublisher captures every published lifecycle event.
type recorderPublisher struct {
	mu     sync.Mutex
	events []events.ChatEvent
}

func (p *recorderPublisher) Publish(_ context.Context, event events.ChatEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recorderPublisher) byType(eventType string) []events.ChatEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []events.ChatEvent
	for _, e := range p.events {
		if e.EventType() == eventType {
			out = append(out, e)
		}
	}
	return out
}

// fakeLLM drives the stream callbacks from a script of partial
// chunks, or fails with a fixed error.
type fakeLLM struct {
	mu        sync.Mutex
	partials  []string
	toolCalls []string
	err       error
	histories [][]llm.Message
}

func (f *fakeLLM) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	return f.ChatStream(ctx, history, llm.StreamEvents{}, opts...)
}

func (f *fakeLLM) ChatStream(_ context.Context, history []llm.Message, stream llm.StreamEvents, _ ...llm.Option) (string, error) {
	f.mu.Lock()
	f.histories = append(f.histories, history)
	f.mu.Unlock()

	if f.err != nil {
		return "", f.err
	}

	for _, name := range f.toolCalls {
		if stream.OnToolCall != nil {
			stream.OnToolCall(name)
		}
		if stream.OnToolDone != nil {
			stream.OnToolDone(name)
		}
	}

	var full string
	for _, chunk := range f.partials {
		full += chunk
		if stream.OnPartial != nil {
			stream.OnPartial(chunk)
		}
	}
	return full, nil
}

func (f *fakeLLM) lastHistory() []llm.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.histories) == 0 {
		return nil
	}
	return f.histories[len(f.histories)-1]
}

type nopLogger struct{}

func (nopLogger) Debug(string, string, map[string]interface{}) {}
func (nopLogger) Info(string, string, map[string]interface{})  {}
func (nopLogger) Warn(string, string, map[string]interface{})  {}
func (nopLogger) Error(string, string, map[string]interface{}) {}
func (nopLogger) Sync() error                                  { return nil }
