package busipc

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// MaxSubscribers is the fan-out ceiling per service.
const MaxSubscribers = 8

// Subscription is a live handle on a Service. Receive drains Ch until
// Close is called; a subscriber that stops draining falls behind and
// eventually loses messages once the service's channel buffer fills, per
// the at-most-once delivery semantics in spec.md §4.6.
type Subscription[T any] struct {
	Ch   <-chan T
	ch   chan T
	svc  *Service[T]
	once sync.Once
}

// Close unregisters the subscription. Safe to call more than once.
func (s *Subscription[T]) Close() {
	s.once.Do(func() {
		s.svc.unsubscribe(s.ch)
	})
}

// Service is one named publish/subscribe channel: a bounded history ring
// for late joiners, and fan-out to at most MaxSubscribers live listeners.
// Publish never blocks: a subscriber whose buffer is full has its oldest
// pending message dropped rather than stalling the publisher.
type Service[T any] struct {
	mu        sync.Mutex
	name      string
	log       *zap.Logger
	history   []T
	histCap   int
	subs      map[chan T]struct{}
	published uint64
	dropped   uint64
}

func newService[T any](name string, historyCapacity int, log *zap.Logger) *Service[T] {
	if historyCapacity <= 0 {
		historyCapacity = 1
	}

	return &Service[T]{
		name:    name,
		log:     log,
		histCap: historyCapacity,
		subs:    make(map[chan T]struct{}),
	}
}

// Subscribe registers a new subscriber, returning its recent history
// (oldest first) alongside the live subscription. Fails once MaxSubscribers
// are already registered.
func (s *Service[T]) Subscribe(bufferSize int) (*Subscription[T], []T, error) {
	if bufferSize <= 0 {
		bufferSize = s.histCap
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.subs) >= MaxSubscribers {
		return nil, nil, fmt.Errorf("busipc: service %s already has %d subscribers", s.name, MaxSubscribers)
	}

	ch := make(chan T, bufferSize)
	s.subs[ch] = struct{}{}

	history := append([]T(nil), s.history...)

	return &Subscription[T]{Ch: ch, ch: ch, svc: s}, history, nil
}

func (s *Service[T]) unsubscribe(ch chan T) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.subs[ch]; ok {
		delete(s.subs, ch)
		close(ch)
	}
}

// Publish fans msg out to every live subscriber and appends it to history.
// It never blocks: a subscriber whose buffer is saturated loses its oldest
// queued message to make room, logged once as a dropped-message warning.
func (s *Service[T]) Publish(msg T) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.published++
	s.history = append(s.history, msg)
	if len(s.history) > s.histCap {
		s.history = s.history[len(s.history)-s.histCap:]
	}

	for ch := range s.subs {
		select {
		case ch <- msg:
		default:
			select {
			case <-ch:
			default:
			}

			select {
			case ch <- msg:
			default:
			}

			s.dropped++

			if s.log != nil {
				s.log.Warn("busipc: subscriber fell behind, dropped message", zap.String("service", s.name))
			}
		}
	}
}

// SubscriberCount reports the current live subscriber count.
func (s *Service[T]) SubscriberCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.subs)
}

// Stats reports cumulative publish/drop counters for diagnostics.
func (s *Service[T]) Stats() (published, dropped uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.published, s.dropped
}

// Bus wires up all eight fixed services. One Bus instance is shared by the
// server's dispatcher (publisher side) and every in-process client (the
// transport this repo ships; see package doc for the out-of-process note).
type Bus struct {
	Events        *Service[WindowEvent]
	WindowDetails *Service[WindowDetails]
	FocusEvents   *Service[WindowFocusEvent]
	Layout        *Service[LayoutMessage]
	Animation     *Service[AnimationCommand]
	Commands      *Service[WindowCommand]
	Responses     *Service[WindowResponse]
	Heartbeat     *Service[Heartbeat]
}

// BufferSizes configures the history ring capacity for each buffer tier
// named in spec.md §4.6 (large/medium/small).
type BufferSizes struct {
	Large  int
	Medium int
	Small  int
}

// NewBus constructs a Bus with all eight services initialized per sizes.
func NewBus(sizes BufferSizes, log *zap.Logger) *Bus {
	return &Bus{
		Events:        newService[WindowEvent](ServiceEvents, sizes.Large, log),
		WindowDetails: newService[WindowDetails](ServiceWindowDetails, sizes.Large, log),
		FocusEvents:   newService[WindowFocusEvent](ServiceFocusEvents, sizes.Large, log),
		Layout:        newService[LayoutMessage](ServiceLayout, sizes.Medium, log),
		Animation:     newService[AnimationCommand](ServiceAnimation, sizes.Medium, log),
		Commands:      newService[WindowCommand](ServiceCommands, sizes.Medium, log),
		Responses:     newService[WindowResponse](ServiceResponses, sizes.Medium, log),
		Heartbeat:     newService[Heartbeat](ServiceHeartbeat, sizes.Small, log),
	}
}

// Discoverable reports whether every fixed service currently exists on the
// bus, used by clients during the bounded startup-delay poll (spec.md §5).
func (b *Bus) Discoverable() bool {
	return b.Events != nil && b.WindowDetails != nil && b.FocusEvents != nil &&
		b.Layout != nil && b.Animation != nil && b.Commands != nil &&
		b.Responses != nil && b.Heartbeat != nil
}
