// Package notify merges the periodic authoritative notification fetch with
// push-delivered events into one deduplicated, read-tracked collection,
// filtered for the viewing user.
package notify

import (
	"context"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kdimtricp/streamguard/internal/models"
)

// API is the slice of the backend the reconciler mutates through.
type API interface {
	ListNotifications(ctx context.Context) ([]models.NotificationRecord, error)
	MarkNotificationRead(ctx context.Context, id string) error
	MarkAllNotificationsRead(ctx context.Context) error
	DeleteNotification(ctx context.Context, id string) error
	DeleteAllNotifications(ctx context.Context) error
	ForwardNotification(ctx context.Context, id, agentID string) error
}

// Viewer is the identity the projection is filtered for.
type Viewer struct {
	Username string
	Role     string
}

func (v Viewer) IsAdmin() bool {
	return strings.EqualFold(v.Role, "admin")
}

type Tab string

const (
	TabAll    Tab = "all"
	TabUnread Tab = "unread"
	TabVisual Tab = "visual"
	TabAudio  Tab = "audio"
	TabChat   Tab = "chat"
)

// tabEventType maps detection sub-tabs to exact event types.
var tabEventType = map[Tab]models.EventType{
	TabVisual: models.EventObjectDetection,
	TabAudio:  models.EventAudioDetection,
	TabChat:   models.EventChatDetection,
}

const defaultRefreshInterval = 60 * time.Second

// Reconciler owns the in-memory notification set keyed by id. It is the
// sole mutator of its collection. Full refreshes and push-triggered
// refetches may race; the last fetch to resolve wins, except that a read
// mark still in flight is never reverted.
type Reconciler struct {
	api      API
	viewer   Viewer
	interval time.Duration

	refreshCh chan struct{}

	mu           sync.Mutex
	records      map[string]models.NotificationRecord
	pendingReads map[string]struct{}
	tab          Tab
}

func NewReconciler(client API, viewer Viewer, refreshInterval time.Duration) *Reconciler {
	if refreshInterval <= 0 {
		refreshInterval = defaultRefreshInterval
	}
	return &Reconciler{
		api:          client,
		viewer:       viewer,
		interval:     refreshInterval,
		refreshCh:    make(chan struct{}, 1),
		records:      make(map[string]models.NotificationRecord),
		pendingReads: make(map[string]struct{}),
		tab:          TabAll,
	}
}

// Run drives the periodic full refresh and serves push-triggered refetch
// requests until ctx is cancelled.
func (r *Reconciler) Run(ctx context.Context) {
	if err := r.Refresh(ctx); err != nil {
		log.Printf("[NOTIF] initial refresh failed: %v", err)
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-r.refreshCh:
		}
		if err := r.Refresh(ctx); err != nil {
			log.Printf("[NOTIF] refresh failed: %v", err)
		}
	}
}

// Poke requests an immediate refetch; called when a push event signals a
// created or forwarded notification. Deltas are never applied directly.
func (r *Reconciler) Poke() {
	select {
	case r.refreshCh <- struct{}{}:
	default:
	}
}

// Refresh replaces the local set with the server's. Records whose read
// mark has not yet round-tripped keep read=true: read is monotonic until
// deletion.
func (r *Reconciler) Refresh(ctx context.Context) error {
	records, err := r.api.ListNotifications(ctx)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	next := make(map[string]models.NotificationRecord, len(records))
	for _, rec := range records {
		if _, pending := r.pendingReads[rec.ID]; pending {
			rec.Read = true
		}
		next[rec.ID] = rec
	}
	r.records = next

	// Pending marks for records the server no longer has are stale.
	for id := range r.pendingReads {
		if _, ok := next[id]; !ok {
			delete(r.pendingReads, id)
		}
	}
	return nil
}

func (r *Reconciler) SetTab(tab Tab) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tab = tab
}

// visibleLocked applies the role filter: non-admin viewers see only records
// assigned to them, compared case-insensitively.
func (r *Reconciler) visibleLocked() []models.NotificationRecord {
	var out []models.NotificationRecord
	for _, rec := range r.records {
		if !r.viewer.IsAdmin() && !strings.EqualFold(rec.AssignedAgent, r.viewer.Username) {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// Visible returns the projection for the current tab, newest first.
func (r *Reconciler) Visible() []models.NotificationRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []models.NotificationRecord
	for _, rec := range r.visibleLocked() {
		switch r.tab {
		case TabUnread:
			if rec.Read {
				continue
			}
		case TabVisual, TabAudio, TabChat:
			if rec.EventType != tabEventType[r.tab] {
				continue
			}
		}
		out = append(out, rec)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}

// UnreadCount counts unread records after the role filter only, so the
// badge stays meaningful across tab switches.
func (r *Reconciler) UnreadCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for _, rec := range r.visibleLocked() {
		if !rec.Read {
			count++
		}
	}
	return count
}

// MarkRead marks a record read: optimistic local apply, then a
// fire-and-forget backend call. Marking an already-read record is a no-op
// and issues no network call. Local state is never rolled back on network
// failure; the next refresh corrects any divergence.
func (r *Reconciler) MarkRead(ctx context.Context, id string) {
	r.mu.Lock()
	rec, ok := r.records[id]
	if !ok || rec.Read {
		r.mu.Unlock()
		return
	}
	rec.Read = true
	r.records[id] = rec
	r.pendingReads[id] = struct{}{}
	r.mu.Unlock()

	go func() {
		if err := r.api.MarkNotificationRead(ctx, id); err != nil {
			log.Printf("[NOTIF] mark read %s failed: %v", id, err)
		}
		r.mu.Lock()
		delete(r.pendingReads, id)
		r.mu.Unlock()
	}()
}

func (r *Reconciler) MarkAllRead(ctx context.Context) {
	r.mu.Lock()
	var marked []string
	for id, rec := range r.records {
		if !rec.Read {
			rec.Read = true
			r.records[id] = rec
			r.pendingReads[id] = struct{}{}
			marked = append(marked, id)
		}
	}
	r.mu.Unlock()

	go func() {
		if err := r.api.MarkAllNotificationsRead(ctx); err != nil {
			log.Printf("[NOTIF] mark all read failed: %v", err)
		}
		// Clear only the marks this call placed; a MarkRead round trip
		// still in flight keeps its own entry.
		r.mu.Lock()
		for _, id := range marked {
			delete(r.pendingReads, id)
		}
		r.mu.Unlock()
	}()
}

func (r *Reconciler) Delete(ctx context.Context, id string) {
	r.mu.Lock()
	delete(r.records, id)
	delete(r.pendingReads, id)
	r.mu.Unlock()

	go func() {
		if err := r.api.DeleteNotification(ctx, id); err != nil {
			log.Printf("[NOTIF] delete %s failed: %v", id, err)
		}
	}()
}

func (r *Reconciler) DeleteAll(ctx context.Context) {
	r.mu.Lock()
	r.records = make(map[string]models.NotificationRecord)
	r.pendingReads = make(map[string]struct{})
	r.mu.Unlock()

	go func() {
		if err := r.api.DeleteAllNotifications(ctx); err != nil {
			log.Printf("[NOTIF] delete all failed: %v", err)
		}
	}()
}

// Forward assigns a record to an agent. The read flag is untouched.
func (r *Reconciler) Forward(ctx context.Context, id, agentID string) {
	r.mu.Lock()
	if rec, ok := r.records[id]; ok {
		rec.AssignedAgent = agentID
		r.records[id] = rec
	}
	r.mu.Unlock()

	go func() {
		if err := r.api.ForwardNotification(ctx, id, agentID); err != nil {
			log.Printf("[NOTIF] forward %s to %s failed: %v", id, agentID, err)
		}
	}()
}
