package pubsub

import (
	"errors"
	"sync"
)

const (
	DefaultPublisherBufSize  = 1
	DefaultSubscriberBufSize = 1
)

var (
	ErrPublisherClosed = errors.New("publisher closed")
)

type Publisher[T any] interface {
	SenderCloser[T]
	// AddSubscriber registers an existing sender as a subscriber. If close is
	// true, the sender is closed along with the publisher.
	AddSubscriber(s SenderCloser[T], close bool) error
	Subscribe() (ReceiverCloser[T], error)
	SubscribeBufSize(int) (ReceiverCloser[T], error)
}

type publisher[T any] struct {
	mu          sync.Mutex
	ch          Channel[T]
	running     sync.WaitGroup // Goroutines in progress
	pending     sync.WaitGroup // Messages not yet sent to all subscribers
	subMu       sync.Mutex
	subscribers map[SenderCloser[T]]bool // value: close subscriber with publisher
	closed      bool
}

func NewPublisher[T any]() Publisher[T] {
	return NewPublisherBufSize[T](DefaultPublisherBufSize)
}

func NewPublisherBufSize[T any](bufSize int) Publisher[T] {
	p := &publisher[T]{
		ch:          NewChannel[T](bufSize),
		subscribers: make(map[SenderCloser[T]]bool),
	}
	p.running.Add(1)
	go func() {
		defer p.running.Done()
		for v := range p.ch.Receive() {
			// Snapshot the subscriber set, to avoid holding a lock that
			// prevents adding new subscribers mid-broadcast
			p.subMu.Lock()
			subscriberSlice := make([]SenderCloser[T], 0, len(p.subscribers))
			for s := range p.subscribers {
				subscriberSlice = append(subscriberSlice, s)
			}
			p.subMu.Unlock()
			// Attempt to send to each subscriber, dropping any that have closed
			for _, s := range subscriberSlice {
				if ok := s.Send(v); !ok {
					p.unsubscribe(s)
				}
			}
			p.pending.Done()
		}
	}()
	return p
}

// Send will publish the value to all subscribers (non-blocking).
func (p *publisher[T]) Send(msg T) bool {
	p.pending.Add(1)
	if ok := p.ch.Send(msg); !ok {
		// Message was not sent, so don't wait for it
		p.pending.Done()
		return false
	}
	return true
}

func (p *publisher[T]) Subscribe() (ReceiverCloser[T], error) {
	return p.SubscribeBufSize(DefaultSubscriberBufSize)
}

func (p *publisher[T]) SubscribeBufSize(bufSize int) (ReceiverCloser[T], error) {
	s := NewChannel[T](bufSize)
	if err := p.AddSubscriber(s, true); err != nil {
		return nil, err
	}
	return s, nil
}

func (p *publisher[T]) AddSubscriber(s SenderCloser[T], close bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPublisherClosed
	}
	p.subMu.Lock()
	defer p.subMu.Unlock()
	p.subscribers[s] = close
	return nil
}

func (p *publisher[T]) unsubscribe(s SenderCloser[T]) {
	p.subMu.Lock()
	defer p.subMu.Unlock()
	delete(p.subscribers, s)
}

// Close idempotently shuts down the publisher, closing all subscribers that
// were registered with close=true.
func (p *publisher[T]) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	// Close the send channel, and wait for the channel to be flushed
	p.ch.Close()
	p.pending.Wait()
	p.running.Wait()
	p.subMu.Lock()
	subscribers := p.subscribers
	p.subscribers = make(map[SenderCloser[T]]bool)
	p.subMu.Unlock()
	for s, closeWith := range subscribers {
		if closeWith {
			s.Close()
		}
	}
	p.closed = true
}

func (p *publisher[T]) Closed() <-chan struct{} {
	return p.ch.Closed()
}
