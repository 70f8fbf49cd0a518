// Package notify keeps the viewer's local notification feed: live arrivals
// prepend, fetched pages append, and both paths dedup by notification ID.
package notify

import (
	"sync"

	"sociogo/client/internal/models"
)

// Store is a plain shared store guarded by a mutex; unlike the chat session
// it has no ordering invariant beyond "newest first" and needs no actor.
type Store struct {
	mu            sync.Mutex
	notifications []models.Notification
	ids           map[int64]struct{}
	unread        bool
	page          int
	hasMore       bool
}

func NewStore() *Store {
	return &Store{
		ids:     make(map[int64]struct{}),
		hasMore: true,
	}
}

// Add prepends one live notification and raises the unread flag. Duplicates
// are dropped.
func (s *Store) Add(n models.Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, dup := s.ids[n.NotificationID]; dup {
		return
	}
	s.ids[n.NotificationID] = struct{}{}
	s.notifications = append([]models.Notification{n}, s.notifications...)
	s.unread = true
}

// Append unions one fetched page onto the end of the feed and advances the
// page counter.
func (s *Store) Append(page *models.NotificationPage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, n := range page.Content {
		if _, dup := s.ids[n.NotificationID]; dup {
			continue
		}
		s.ids[n.NotificationID] = struct{}{}
		s.notifications = append(s.notifications, n)
	}
	s.page++
	s.hasMore = !page.Last && len(page.Content) > 0
}

// Remove drops one notification by ID.
func (s *Store) Remove(notificationID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.ids[notificationID]; !ok {
		return
	}
	delete(s.ids, notificationID)
	for i, n := range s.notifications {
		if n.NotificationID == notificationID {
			s.notifications = append(s.notifications[:i], s.notifications[i+1:]...)
			break
		}
	}
}

// MarkRead marks a single notification read.
func (s *Store) MarkRead(notificationID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.notifications {
		if s.notifications[i].NotificationID == notificationID {
			s.notifications[i].IsRead = true
			return
		}
	}
}

// MarkAllRead clears the unread flag; called when the viewer opens the
// notification screen.
func (s *Store) MarkAllRead() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unread = false
	for i := range s.notifications {
		s.notifications[i].IsRead = true
	}
}

// Reset clears the feed so the next fetch starts from page zero.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications = nil
	s.ids = make(map[int64]struct{})
	s.page = 0
	s.hasMore = true
}

// HasUnread reports whether a live notification arrived since the viewer
// last opened the feed.
func (s *Store) HasUnread() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unread
}

// NextPage is the page index the next fetch should request.
func (s *Store) NextPage() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page
}

// HasMore reports whether older pages remain.
func (s *Store) HasMore() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasMore
}

// All returns a copy of the feed, newest first.
func (s *Store) All() []models.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Notification, len(s.notifications))
	copy(out, s.notifications)
	return out
}
