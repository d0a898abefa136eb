package bot

import (
	"context"
	"sync"
	"time"
)

const ingestWaitTimeout = 10 * time.Second

// pendingIngest tracks forwarded messages published to the ingest queue but
// not collected yet, by user and Telegram message id. Anything that reads or
// resets a user's batch waits for that user's set to drain first.
type pendingIngest struct {
	mu      sync.Mutex
	users   map[int64]*userIngest
	timeout time.Duration
}

type userIngest struct {
	ids  map[int]struct{}
	done chan struct{} // closed when ids becomes empty
}

func newPendingIngest(timeout time.Duration) *pendingIngest {
	return &pendingIngest{users: make(map[int64]*userIngest), timeout: timeout}
}

func (p *pendingIngest) add(userID int64, messageID int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	u := p.users[userID]
	if u == nil {
		u = &userIngest{ids: make(map[int]struct{}), done: make(chan struct{})}
		p.users[userID] = u
	}
	u.ids[messageID] = struct{}{}
}

// remove marks a message collected. Unknown ids, such as redeliveries from
// an earlier run, are ignored.
func (p *pendingIngest) remove(userID int64, messageID int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	u := p.users[userID]
	if u == nil {
		return
	}
	if _, ok := u.ids[messageID]; !ok {
		return
	}
	delete(u.ids, messageID)
	if len(u.ids) == 0 {
		close(u.done)
		delete(p.users, userID)
	}
}

func (p *pendingIngest) count(userID int64) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if u := p.users[userID]; u != nil {
		return len(u.ids)
	}
	return 0
}

// wait blocks until every message published for the user was collected. It
// reports false on timeout or cancellation; after a timeout the user's
// outstanding ids are forgotten so a lost message cannot block them forever.
func (p *pendingIngest) wait(ctx context.Context, userID int64) bool {
	p.mu.Lock()
	u := p.users[userID]
	p.mu.Unlock()
	if u == nil {
		return true
	}

	t := time.NewTimer(p.timeout)
	defer t.Stop()
	select {
	case <-u.done:
		return true
	case <-ctx.Done():
		return false
	case <-t.C:
		p.mu.Lock()
		if p.users[userID] == u {
			delete(p.users, userID)
		}
		p.mu.Unlock()
		return false
	}
}
