// Package swapstate implements the in-memory concurrent state store from
// the design: a swap_id -> SwapState map with per-key write serialization,
// snapshot reads, and subscriber notification on a state predicate match
// (used to gate HTTP long polling).
//
// Grounded on invoices/invoiceregistry.go's subscription-channel design: a
// dedicated dispatcher goroutine owns the registry state and the set of
// waiting subscribers, fed through control channels
// (newSubscriptions/subscriptionCancels) so no subscriber ever locks the
// registry directly. Subscriptions here are keyed on (swap_id, predicate)
// rather than invoiceregistry's (add_index, settle_index, hash), since a
// swap's "backlog" is just its current snapshot — there is no notion of
// catching a subscriber up across multiple missed states.
package swapstate

import (
	"fmt"
	"sync"
	"time"

	"github.com/breez/swapd/chainntnfs"
	"github.com/breez/swapd/swap"
	"github.com/breez/swapd/swapfsm"
	"github.com/breez/swapd/swapseed"
	"github.com/google/uuid"
)

// SwapState is the aggregate the design defines: {communication, alpha_state,
// beta_state, seed, failed}. Failed/Outcome live inside swapfsm.State
// rather than duplicated here, since swapfsm.State already carries exactly
// that bookkeeping.
type SwapState struct {
	ID            uuid.UUID
	Role          swap.Role
	Communication swap.Communication
	FSM           swapfsm.State
	Seed          swapseed.Seed
}

// Predicate reports whether a SwapState snapshot satisfies a subscriber's
// wait condition.
type Predicate func(SwapState) bool

// Store is the concurrent swap_id -> SwapState map.
type Store struct {
	mu     sync.RWMutex
	swaps  map[uuid.UUID]SwapState
	locks  map[uuid.UUID]*sync.Mutex
	lockMu sync.Mutex

	subMu         sync.Mutex
	nextSubID     uint64
	subscriptions map[uint64]*subscription

	newSubscriptions chan *subscription
	cancels          chan uint64
	events           chan SwapState

	persist func(SwapState) error

	wg   sync.WaitGroup
	quit chan struct{}
}

type subscription struct {
	id   uint64
	swap uuid.UUID
	pred Predicate

	ntfnQueue *chainntnfs.ConcurrentQueue
	result    chan SwapState

	cancelOnce sync.Once
	cancelChan chan struct{}
}

// New constructs an empty Store. persist is called, inside the per-swap
// write lock, on every Put and every Apply, whether or not the SwapState
// changed; daemon/main.go plugs persistCommunication into it, which writes
// through swapdb's PutRequest/PutAccept/PutDecline (the design "persists
// the resulting accept/decline/request tuple if newly arrived").
func New(persist func(SwapState) error) *Store {
	return &Store{
		swaps:            make(map[uuid.UUID]SwapState),
		locks:            make(map[uuid.UUID]*sync.Mutex),
		subscriptions:    make(map[uint64]*subscription),
		newSubscriptions: make(chan *subscription),
		cancels:          make(chan uint64),
		events:           make(chan SwapState, 64),
		persist:          persist,
		quit:             make(chan struct{}),
	}
}

// Start launches the dispatcher goroutine.
func (s *Store) Start() {
	s.wg.Add(1)
	go s.dispatcher()
}

// Stop signals the dispatcher to exit and waits for it.
func (s *Store) Stop() {
	close(s.quit)
	s.wg.Wait()
}

func (s *Store) dispatcher() {
	defer s.wg.Done()

	for {
		select {
		case sub := <-s.newSubscriptions:
			s.subscriptions[sub.id] = sub
			// Deliver the current snapshot immediately if it
			// already satisfies the predicate (the design's
			// subscriber semantics: gate on "awaiting a given
			// state predicate", not strictly future events).
			if st, ok := s.Get(sub.swap); ok && sub.pred(st) {
				s.deliver(sub, st)
			}

		case id := <-s.cancels:
			delete(s.subscriptions, id)

		case st := <-s.events:
			for _, sub := range s.subscriptions {
				if sub.swap != st.ID || !sub.pred(st) {
					continue
				}
				s.deliver(sub, st)
			}

		case <-s.quit:
			return
		}
	}
}

func (s *Store) deliver(sub *subscription, st SwapState) {
	select {
	case sub.ntfnQueue.ChanIn <- st:
	case <-s.quit:
	}
}

// lockFor returns the per-swap write-serialization mutex, creating it if
// this is the first time swapID has been seen.
func (s *Store) lockFor(swapID uuid.UUID) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()

	l, ok := s.locks[swapID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[swapID] = l
	}
	return l
}

// Put records a new SwapState snapshot for st.ID, serialized per swap id,
// persists it via the configured hook, and notifies any matching
// subscribers.
func (s *Store) Put(st SwapState) error {
	lock := s.lockFor(st.ID)
	lock.Lock()
	defer lock.Unlock()

	if s.persist != nil {
		if err := s.persist(st); err != nil {
			return fmt.Errorf("swapstate: persist %s: %w", st.ID, err)
		}
	}

	s.mu.Lock()
	s.swaps[st.ID] = st
	s.mu.Unlock()

	select {
	case s.events <- st:
	case <-s.quit:
	}

	return nil
}

// Get returns a consistent snapshot of the named swap.
func (s *Store) Get(swapID uuid.UUID) (SwapState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.swaps[swapID]
	return st, ok
}

// All returns a snapshot of every swap currently held, used by
// daemon/replay.go to re-spawn watcher pipelines on startup.
func (s *Store) All() []SwapState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]SwapState, 0, len(s.swaps))
	for _, st := range s.swaps {
		out = append(out, st)
	}
	return out
}

// Apply reads swapID's current state, applies an event through
// swapfsm.Transition, and Puts the result — the single entry point watcher
// goroutines use to advance a swap, keeping the state store the sole writer
// (the design "Event delivery goes through a message channel so the state
// store remains the single writer").
func (s *Store) Apply(swapID uuid.UUID, ev chainntnfs.Event) (SwapState, error) {
	lock := s.lockFor(swapID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.RLock()
	st, ok := s.swaps[swapID]
	s.mu.RUnlock()
	if !ok {
		return SwapState{}, fmt.Errorf("swapstate: unknown swap %s", swapID)
	}

	st.FSM = swapfsm.Transition(st.FSM, ev)
	log.Debugf("swap %s: %s on %s -> phase %s", swapID, ev.Kind, ev.Leg, st.FSM.Phase())

	if s.persist != nil {
		if err := s.persist(st); err != nil {
			return SwapState{}, fmt.Errorf("swapstate: persist %s: %w", swapID, err)
		}
	}

	s.mu.Lock()
	s.swaps[swapID] = st
	s.mu.Unlock()

	select {
	case s.events <- st:
	case <-s.quit:
	}

	return st, nil
}

// Subscription is returned by Subscribe; Wait blocks until the predicate
// matches or the subscription is cancelled.
type Subscription struct {
	store *Store
	sub   *subscription
}

// Subscribe registers interest in swapID reaching a state satisfying pred.
// Used by swaphttp's get_swap handler for its wait=terminal long poll.
func (s *Store) Subscribe(swapID uuid.UUID, pred Predicate) *Subscription {
	s.subMu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subMu.Unlock()

	sub := &subscription{
		id:         id,
		swap:       swapID,
		pred:       pred,
		ntfnQueue:  chainntnfs.NewConcurrentQueue(4),
		result:     make(chan SwapState, 1),
		cancelChan: make(chan struct{}),
	}
	sub.ntfnQueue.Start()

	go func() {
		select {
		case st := <-sub.ntfnQueue.ChanOut:
			select {
			case sub.result <- st.(SwapState):
			default:
			}
		case <-sub.cancelChan:
		}
	}()

	select {
	case s.newSubscriptions <- sub:
	case <-s.quit:
	}

	return &Subscription{store: s, sub: sub}
}

// Wait blocks until the subscription's predicate matches, returning the
// matching snapshot, or until timeout elapses.
func (sub *Subscription) Wait(timeout time.Duration) (SwapState, bool) {
	select {
	case st := <-sub.sub.result:
		return st, true
	case <-time.After(timeout):
		return SwapState{}, false
	}
}

// Cancel unregisters the subscription and releases its resources.
func (sub *Subscription) Cancel() {
	sub.sub.cancelOnce.Do(func() {
		close(sub.sub.cancelChan)
	})

	select {
	case sub.store.cancels <- sub.sub.id:
	case <-sub.store.quit:
	}

	sub.sub.ntfnQueue.Stop()
}
