package history

import (
	"context"
	"sync"

	"voicerelay/core"
)

// Store implements core.History. The cache, once populated, is the writer of
// record for a conversation within the process lifetime; the durable store is
// the authority for cold reads and survives restarts.
type Store struct {
	durable core.DurableStore
	logger  *core.Logger

	mu    sync.Mutex // guards cache and locks
	cache map[string][]core.Turn
	locks map[string]*sync.Mutex
}

// NewStore creates a Store over the given durable tier. The cache starts
// empty and hydrates per conversation on first access.
func NewStore(durable core.DurableStore, logger *core.Logger) *Store {
	if logger == nil {
		logger = core.GetLogger()
	}
	return &Store{
		durable: durable,
		logger:  logger,
		cache:   make(map[string][]core.Turn),
		locks:   make(map[string]*sync.Mutex),
	}
}

// lockFor returns the mutex serializing operations on one conversation.
// Locks are created on demand and live for the process lifetime, like the
// cache entries they guard.
func (s *Store) lockFor(conversationID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[conversationID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[conversationID] = l
	}
	return l
}

// Append commits turn to the durable record first and only then extends the
// cached sequence, so the cache can never run ahead of durable state. On a
// durable failure neither tier changes.
func (s *Store) Append(ctx context.Context, conversationID string, turn core.Turn) error {
	l := s.lockFor(conversationID)
	l.Lock()
	defer l.Unlock()

	if err := s.durable.AppendTurn(ctx, conversationID, turn); err != nil {
		return &core.PersistenceError{Op: "append", ConversationID: conversationID, Err: err}
	}

	s.mu.Lock()
	s.cache[conversationID] = append(s.cache[conversationID], turn)
	s.mu.Unlock()

	s.logger.Debug("turn appended", "conversation_id", conversationID, "role", string(turn.Role))
	return nil
}

// Read returns the ordered turn sequence for a conversation. Resolution
// order: cache, then durable store (hydrating the cache), then lazy creation
// of an empty record in both tiers. Callers receive a copy and cannot alias
// the cached sequence.
func (s *Store) Read(ctx context.Context, conversationID string) ([]core.Turn, error) {
	l := s.lockFor(conversationID)
	l.Lock()
	defer l.Unlock()

	s.mu.Lock()
	turns, ok := s.cache[conversationID]
	s.mu.Unlock()
	if ok {
		return copyTurns(turns), nil
	}

	turns, found, err := s.durable.Load(ctx, conversationID)
	if err != nil {
		return nil, &core.PersistenceError{Op: "read", ConversationID: conversationID, Err: err}
	}
	if !found {
		if err := s.durable.Create(ctx, conversationID); err != nil {
			return nil, &core.PersistenceError{Op: "create", ConversationID: conversationID, Err: err}
		}
		turns = nil
		s.logger.Debug("conversation created", "conversation_id", conversationID)
	} else {
		s.logger.Debug("conversation hydrated", "conversation_id", conversationID, "turns", len(turns))
	}

	s.mu.Lock()
	s.cache[conversationID] = turns
	s.mu.Unlock()

	return copyTurns(turns), nil
}

// Reset deletes the durable record and drops the cache entry. Absence in
// either tier is a no-op; only durable-store unavailability fails. The
// durable delete runs first so a failure leaves the cache consistent with
// what still exists durably.
func (s *Store) Reset(ctx context.Context, conversationID string) error {
	l := s.lockFor(conversationID)
	l.Lock()
	defer l.Unlock()

	if err := s.durable.Delete(ctx, conversationID); err != nil {
		return &core.PersistenceError{Op: "reset", ConversationID: conversationID, Err: err}
	}

	s.mu.Lock()
	delete(s.cache, conversationID)
	s.mu.Unlock()

	s.logger.Info("conversation reset", "conversation_id", conversationID)
	return nil
}

func copyTurns(turns []core.Turn) []core.Turn {
	out := make([]core.Turn, len(turns))
	copy(out, turns)
	return out
}
