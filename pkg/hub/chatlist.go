package hub

import (
	"sort"

	"github.com/ezchat/ezchat/pkg/models"
)

// ChatList is the ordered in-memory chat list one subscriber sees: newest
// message first. An auxiliary id-to-position map makes delta application a
// map lookup instead of a linear scan.
//
// ChatList is not safe for concurrent use; the hub mutates each client's
// list from its single run loop.
type ChatList struct {
	chats []models.Chat
	index map[string]int
}

// Change reports what a delta did to the list, so the subscriber can redraw
// only the affected positions. From or To is -1 when not applicable.
type Change struct {
	Type models.ChatDeltaType
	From int
	To   int
}

func NewChatList() *ChatList {
	return &ChatList{index: make(map[string]int)}
}

// Reset replaces the list with a fresh snapshot. An empty snapshot is a
// valid state and distinct from "never loaded": Chats() returns an empty,
// non-nil slice afterwards.
func (l *ChatList) Reset(chats []models.Chat) {
	l.index = make(map[string]int, len(chats))
	l.chats = make([]models.Chat, len(chats))
	copy(l.chats, chats)
	sort.SliceStable(l.chats, func(i, j int) bool {
		return chatBefore(l.chats[i], l.chats[j])
	})
	l.reindex(0)
}

// Apply reconciles one add/modify/remove delta. Deliveries are at least
// once, so a re-applied add degrades to a modify and a re-applied remove is
// a no-op.
func (l *ChatList) Apply(delta models.ChatDelta) Change {
	switch delta.Type {
	case models.ChatAdded, models.ChatModified:
		if pos, ok := l.index[delta.Chat.ID]; ok {
			to := l.move(pos, delta.Chat)
			return Change{Type: models.ChatModified, From: pos, To: to}
		}
		to := l.insert(delta.Chat)
		return Change{Type: models.ChatAdded, From: -1, To: to}

	case models.ChatRemoved:
		pos, ok := l.index[delta.Chat.ID]
		if !ok {
			return Change{Type: models.ChatRemoved, From: -1, To: -1}
		}
		l.removeAt(pos)
		return Change{Type: models.ChatRemoved, From: pos, To: -1}
	}

	return Change{From: -1, To: -1}
}

// Chats returns a copy of the current ordering. Never nil once Reset or
// Apply has run, so "empty" renders as an explicit empty list.
func (l *ChatList) Chats() []models.Chat {
	out := make([]models.Chat, len(l.chats))
	copy(out, l.chats)
	return out
}

func (l *ChatList) Len() int {
	return len(l.chats)
}

func (l *ChatList) insert(chat models.Chat) int {
	pos := sort.Search(len(l.chats), func(i int) bool {
		return !chatBefore(l.chats[i], chat)
	})
	l.chats = append(l.chats, models.Chat{})
	copy(l.chats[pos+1:], l.chats[pos:])
	l.chats[pos] = chat
	l.reindex(pos)
	return pos
}

func (l *ChatList) move(pos int, chat models.Chat) int {
	l.removeAt(pos)
	return l.insert(chat)
}

func (l *ChatList) removeAt(pos int) {
	delete(l.index, l.chats[pos].ID)
	l.chats = append(l.chats[:pos], l.chats[pos+1:]...)
	l.reindex(pos)
}

func (l *ChatList) reindex(from int) {
	for i := from; i < len(l.chats); i++ {
		l.index[l.chats[i].ID] = i
	}
}

// chatBefore orders by last-message time descending; chats without any
// message yet sort after all active ones, newest created first. Matches the
// store's "last_message_at DESC NULLS LAST, created_at DESC" ordering.
func chatBefore(a, b models.Chat) bool {
	if (a.LastMessageAt != nil) != (b.LastMessageAt != nil) {
		return a.LastMessageAt != nil
	}
	if a.LastMessageAt != nil && !a.LastMessageAt.Equal(*b.LastMessageAt) {
		return a.LastMessageAt.After(*b.LastMessageAt)
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID < b.ID
}
