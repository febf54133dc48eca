// Package pgpubsub carries auth-state events between replicas over
// PostgreSQL LISTEN/NOTIFY. Every replica LISTENs on one shared channel;
// a login or logout on any replica is published there so the others can
// push it to their own connected UI sessions.
package pgpubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

// authChannel is the NOTIFY channel shared by all replicas.
const authChannel = "scrum_auth_events"

// Broker listens on the auth event channel and hands each payload to the
// registered handlers.
type Broker struct {
	dsn      string
	listener *pq.Listener

	mu       sync.RWMutex
	handlers []func(payload string)

	cancel context.CancelFunc
	done   chan struct{}
}

// NewBroker builds a broker bound to the given PostgreSQL DSN. Register
// handlers with OnEvent, then call Start.
func NewBroker(dsn string) *Broker {
	return &Broker{
		dsn:  dsn,
		done: make(chan struct{}),
	}
}

// OnEvent registers a handler invoked for every auth event published by
// another replica. Handlers registered after Start still receive events.
func (b *Broker) OnEvent(handler func(payload string)) {
	b.mu.Lock()
	b.handlers = append(b.handlers, handler)
	b.mu.Unlock()
}

// Start opens the lib/pq listener on the auth channel and launches the
// dispatch loop.
func (b *Broker) Start() error {
	reportProblem := func(ev pq.ListenerEventType, err error) {
		if err != nil {
			log.Printf("[pgpubsub] listener event %d: %v", ev, err)
		}
	}

	b.listener = pq.NewListener(b.dsn, 10*time.Second, time.Minute, reportProblem)
	if err := b.listener.Listen(authChannel); err != nil {
		_ = b.listener.Close()
		return fmt.Errorf("pgpubsub: LISTEN %q: %w", authChannel, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel
	go b.dispatchLoop(ctx)

	return nil
}

// dispatchLoop fans notifications out to the handlers and pings the
// connection every 90 seconds so it does not go stale.
func (b *Broker) dispatchLoop(ctx context.Context) {
	defer close(b.done)

	keepAlive := time.NewTicker(90 * time.Second)
	defer keepAlive.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case n := <-b.listener.Notify:
			// 重连期间会收到 nil 通知, 跳过
			if n == nil {
				continue
			}
			b.mu.RLock()
			handlers := b.handlers
			b.mu.RUnlock()
			for _, h := range handlers {
				// Each handler runs in its own goroutine so a slow one
				// cannot hold up delivery to the rest.
				go h(n.Extra)
			}

		case <-keepAlive.C:
			if err := b.listener.Ping(); err != nil {
				log.Printf("[pgpubsub] keep-alive ping failed: %v", err)
			}
		}
	}
}

// Publish sends one auth event to every replica. The value is JSON-marshalled
// and delivered via pg_notify through GORM's connection.
func Publish(db *gorm.DB, event interface{}) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("pgpubsub: marshal event: %w", err)
	}
	tx := db.Exec("SELECT pg_notify(?, ?)", authChannel, string(data))
	if tx.Error != nil {
		return fmt.Errorf("pgpubsub: pg_notify: %w", tx.Error)
	}
	return nil
}

// Stop tears down the dispatch loop and closes the listener connection.
func (b *Broker) Stop() {
	if b.cancel != nil {
		b.cancel()
	}
	<-b.done
	if b.listener != nil {
		_ = b.listener.Close()
	}
}
