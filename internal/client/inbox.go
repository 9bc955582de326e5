package client

import (
	"context"
	"errors"
	"sync"

	"github.com/iliyamo/event-platform/internal/model"
)

// InboxAPI is what Inbox needs from Client.
type InboxAPI interface {
	Notifications(ctx context.Context, unreadOnly bool) ([]*model.Notification, error)
	SetRead(ctx context.Context, id uint64, isRead bool) (*model.Notification, error)
}

// ErrUnknownNotification is returned by Toggle for an id not in the inbox.
var ErrUnknownNotification = errors.New("notification not in inbox")

// Inbox keeps a local copy of the notification list.  Toggle updates the
// copy before the server answers; a failed call is undone by refetching.
type Inbox struct {
	api InboxAPI

	mu    sync.RWMutex
	items []model.Notification
}

func NewInbox(api InboxAPI) *Inbox {
	return &Inbox{api: api}
}

// Refresh replaces the local list with the server's.
func (in *Inbox) Refresh(ctx context.Context) error {
	list, err := in.api.Notifications(ctx, false)
	if err != nil {
		return err
	}
	items := make([]model.Notification, 0, len(list))
	for _, n := range list {
		items = append(items, *n)
	}
	in.mu.Lock()
	in.items = items
	in.mu.Unlock()
	return nil
}

// Items returns a copy of the local list.
func (in *Inbox) Items() []model.Notification {
	in.mu.RLock()
	defer in.mu.RUnlock()
	out := make([]model.Notification, len(in.items))
	copy(out, in.items)
	return out
}

// Unread counts the unread notifications of the local list.
func (in *Inbox) Unread() int {
	in.mu.RLock()
	defer in.mu.RUnlock()
	n := 0
	for _, it := range in.items {
		if !it.IsRead {
			n++
		}
	}
	return n
}

// Toggle flips is_read of id locally, then on the server.  When the server
// call fails the list is refetched and the call's error returned; if the
// refetch fails too the local flip is undone.
func (in *Inbox) Toggle(ctx context.Context, id uint64) error {
	in.mu.Lock()
	idx := -1
	for i := range in.items {
		if in.items[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		in.mu.Unlock()
		return ErrUnknownNotification
	}
	want := !in.items[idx].IsRead
	in.items[idx].IsRead = want
	in.mu.Unlock()

	n, err := in.api.SetRead(ctx, id, want)
	if err != nil {
		if rerr := in.Refresh(ctx); rerr != nil {
			in.set(id, func(it *model.Notification) { it.IsRead = !want })
			return errors.Join(err, rerr)
		}
		return err
	}
	in.set(id, func(it *model.Notification) { *it = *n })
	return nil
}

func (in *Inbox) set(id uint64, fn func(*model.Notification)) {
	in.mu.Lock()
	defer in.mu.Unlock()
	for i := range in.items {
		if in.items[i].ID == id {
			fn(&in.items[i])
		}
	}
}
