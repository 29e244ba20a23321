package service

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/event-assistant/internal/model"
	"github.com/capitalize-ai/event-assistant/internal/orchestrator"
	"github.com/capitalize-ai/event-assistant/internal/session"
	"github.com/capitalize-ai/event-assistant/internal/store/memory"
	"github.com/capitalize-ai/event-assistant/pkg/logger"
)

func newTestService() (*ChatService, *memory.Store) {
	st := memory.New()
	sess := session.NewManager(st, st, session.Config{}, logger.Nop())
	orch := orchestrator.New(orchestrator.Config{}, orchestrator.Deps{
		Repo:     st,
		Sessions: sess,
		Log:      logger.Nop(),
	})
	return NewChatService(orch, sess, st, logger.Nop()), st
}

func TestKeyedMutexSerializesSameKey(t *testing.T) {
	k := newKeyedMutex()
	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := k.Lock("u1")
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), maxInside)
	assert.Zero(t, k.size())
}

func TestKeyedMutexIndependentKeys(t *testing.T) {
	k := newKeyedMutex()
	unlockA := k.Lock("a")
	done := make(chan struct{})
	go func() {
		unlock := k.Lock("b")
		unlock()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on b blocked behind a")
	}
	unlockA()
}

func TestChatValidation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Chat(ctx, "u1", &model.ChatRequest{Message: ""})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = svc.Chat(ctx, "u1", &model.ChatRequest{Action: "dance"})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = svc.Chat(ctx, "u1", &model.ChatRequest{Message: strings.Repeat("a", MaxMessageLength+1)})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = svc.Chat(ctx, "", &model.ChatRequest{Message: "oi"})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestChatAndContext(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	reply, err := svc.Chat(ctx, "u1", &model.ChatRequest{Message: "Churrasco para 20 pessoas"})
	require.NoError(t, err)
	assert.Equal(t, orchestrator.BranchAskDate, reply.Branch)

	resp, err := svc.Context(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, reply.EventID, resp.Context.EventID)
	assert.Len(t, resp.History, 2)

	events, err := svc.ListEvents(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, events.Total)

	require.NoError(t, svc.ClearHistory(ctx, "u1"))
	resp, err = svc.Context(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, resp.History)
	assert.Equal(t, reply.EventID, resp.Context.EventID)

	require.NoError(t, svc.ClearContext(ctx, "u1"))
	resp, err = svc.Context(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, resp.Context.EventID)
}

func TestConcurrentTurnsKeepHistoryOrdered(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Chat(ctx, "u1", &model.ChatRequest{Message: "oi"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	resp, err := svc.Context(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, resp.History, 10)
	for i := 0; i < len(resp.History); i += 2 {
		assert.Equal(t, model.RoleUser, resp.History[i].Role)
		assert.Equal(t, model.RoleAssistant, resp.History[i+1].Role)
	}
}

func TestNameAvailability(t *testing.T) {
	svc, st := newTestService()
	ctx := context.Background()
	require.NoError(t, st.Upsert(ctx, &model.Event{ID: "e1", UserID: "u1", Name: "Churrasco 12/12/2026", Status: model.EventStatusDraft}))

	res, err := svc.NameAvailability(ctx, "u1", "churrasco 12/12/2026")
	require.NoError(t, err)
	assert.False(t, res.Available)
	assert.False(t, res.Stale)

	res, err = svc.NameAvailability(ctx, "u1", "Pizza")
	require.NoError(t, err)
	assert.True(t, res.Available)

	_, err = svc.NameAvailability(ctx, "u1", "  ")
	assert.ErrorIs(t, err, ErrInvalidRequest)
}
