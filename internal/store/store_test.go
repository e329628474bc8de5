// ABOUTME: Contract tests shared by every Store implementation
// ABOUTME: Covers conversation CRUD, newest-first listing, and atomic message sequence replacement

package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

// backend builds a fresh, empty store for a contract test
type backend struct {
	name string
	open func(t *testing.T) Store
}

func backends() []backend {
	return []backend{
		{name: "mock", open: func(t *testing.T) Store { return NewMockStore() }},
		{name: "bolt", open: func(t *testing.T) Store {
			s, err := NewBoltStore(filepath.Join(t.TempDir(), "chat.db"))
			if err != nil {
				t.Fatalf("NewBoltStore failed: %v", err)
			}
			t.Cleanup(func() { s.Close() })
			return s
		}},
		{name: "sqlite", open: func(t *testing.T) Store {
			return newTestStore(t)
		}},
	}
}

// newTestStore creates a SQLite store in a temp directory
func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testConversation(id int64, createdAt time.Time) *Conversation {
	return &Conversation{
		ID:        id,
		Title:     "New Chat",
		SpaceID:   DefaultSpaceID,
		Model:     "Flash",
		CreatedAt: createdAt,
	}
}

func TestStore_ConversationRoundTrip(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t)
			ctx := context.Background()

			want := &Conversation{
				ID:        1700000000123,
				Title:     "What is the tuition fee?",
				SpaceID:   3,
				Model:     "Flash",
				CreatedAt: time.Date(2026, 10, 15, 9, 30, 1, 123456789, time.UTC),
			}
			if err := s.CreateConversation(ctx, want); err != nil {
				t.Fatalf("CreateConversation failed: %v", err)
			}

			got, err := s.GetConversation(ctx, want.ID)
			if err != nil {
				t.Fatalf("GetConversation failed: %v", err)
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestStore_GetConversation_NotFound(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t)
			_, err := s.GetConversation(context.Background(), 42)
			if err != ErrNotFound {
				t.Errorf("expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestStore_CreateConversation_Duplicate(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t)
			ctx := context.Background()
			conv := testConversation(7, time.Now().UTC())

			if err := s.CreateConversation(ctx, conv); err != nil {
				t.Fatalf("first CreateConversation failed: %v", err)
			}
			if err := s.CreateConversation(ctx, conv); err != ErrDuplicateConversation {
				t.Errorf("expected ErrDuplicateConversation, got %v", err)
			}
		})
	}
}

func TestStore_UpdateConversation(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t)
			ctx := context.Background()
			created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
			conv := testConversation(10, created)
			if err := s.CreateConversation(ctx, conv); err != nil {
				t.Fatalf("CreateConversation failed: %v", err)
			}

			conv.Title = "Renamed"
			conv.CreatedAt = created.Add(time.Hour) // must be ignored
			if err := s.UpdateConversation(ctx, conv); err != nil {
				t.Fatalf("UpdateConversation failed: %v", err)
			}

			got, err := s.GetConversation(ctx, 10)
			if err != nil {
				t.Fatalf("GetConversation failed: %v", err)
			}
			if got.Title != "Renamed" {
				t.Errorf("Title = %q, want %q", got.Title, "Renamed")
			}
			if !got.CreatedAt.Equal(created) {
				t.Errorf("CreatedAt changed: got %v, want %v", got.CreatedAt, created)
			}

			if err := s.UpdateConversation(ctx, testConversation(99, created)); err != ErrNotFound {
				t.Errorf("expected ErrNotFound updating unknown conversation, got %v", err)
			}
		})
	}
}

func TestStore_DeleteConversation(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t)
			ctx := context.Background()
			if err := s.CreateConversation(ctx, testConversation(5, time.Now().UTC())); err != nil {
				t.Fatalf("CreateConversation failed: %v", err)
			}

			if err := s.DeleteConversation(ctx, 5); err != nil {
				t.Fatalf("DeleteConversation failed: %v", err)
			}
			if _, err := s.GetConversation(ctx, 5); err != ErrNotFound {
				t.Errorf("expected ErrNotFound after delete, got %v", err)
			}
			if err := s.DeleteConversation(ctx, 5); err != ErrNotFound {
				t.Errorf("expected ErrNotFound deleting twice, got %v", err)
			}
		})
	}
}

func TestStore_ListConversations_NewestFirst(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t)
			ctx := context.Background()
			base := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

			// Insert out of order; two share a timestamp to exercise the ID tie-break
			for _, c := range []*Conversation{
				testConversation(2, base.Add(time.Minute)),
				testConversation(1, base),
				testConversation(4, base.Add(2*time.Minute)),
				testConversation(3, base.Add(2*time.Minute)),
			} {
				if err := s.CreateConversation(ctx, c); err != nil {
					t.Fatalf("CreateConversation failed: %v", err)
				}
			}

			convs, err := s.ListConversations(ctx)
			if err != nil {
				t.Fatalf("ListConversations failed: %v", err)
			}

			var ids []int64
			for _, c := range convs {
				ids = append(ids, c.ID)
			}
			if diff := cmp.Diff([]int64{4, 3, 2, 1}, ids); diff != "" {
				t.Errorf("order mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestStore_ListConversations_Empty(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			convs, err := b.open(t).ListConversations(context.Background())
			if err != nil {
				t.Fatalf("ListConversations failed: %v", err)
			}
			if len(convs) != 0 {
				t.Errorf("expected no conversations, got %d", len(convs))
			}
		})
	}
}

func TestStore_Messages_ReplaceAndGet(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t)
			ctx := context.Background()
			now := time.Date(2026, 10, 15, 8, 0, 0, 500, time.UTC)
			score := 0.87

			want := []*Message{
				{ID: 100, ConversationID: 9, Sender: SenderUser, Content: "Hello world", CreatedAt: now},
				{ID: 101, ConversationID: 9, Sender: SenderAssistant, Content: "Hi!", CreatedAt: now.Add(time.Second),
					Sources: []Source{{Title: "https://hust.edu.vn/admissions", Score: &score}, {Name: "handbook.pdf"}}},
			}
			if err := s.ReplaceMessages(ctx, 9, want); err != nil {
				t.Fatalf("ReplaceMessages failed: %v", err)
			}

			got, err := s.GetMessages(ctx, 9)
			if err != nil {
				t.Fatalf("GetMessages failed: %v", err)
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("messages mismatch (-want +got):\n%s", diff)
			}

			// A shorter replacement must not leave stale tail entries
			if err := s.ReplaceMessages(ctx, 9, want[:1]); err != nil {
				t.Fatalf("ReplaceMessages failed: %v", err)
			}
			got, err = s.GetMessages(ctx, 9)
			if err != nil {
				t.Fatalf("GetMessages failed: %v", err)
			}
			if len(got) != 1 || got[0].ID != 100 {
				t.Errorf("expected only message 100 after replace, got %+v", got)
			}
		})
	}
}

func TestStore_Messages_UnknownConversationIsEmpty(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			msgs, err := b.open(t).GetMessages(context.Background(), 12345)
			if err != nil {
				t.Fatalf("GetMessages failed: %v", err)
			}
			if msgs == nil || len(msgs) != 0 {
				t.Errorf("expected empty non-nil sequence, got %#v", msgs)
			}
		})
	}
}

func TestStore_DeleteMessages(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t)
			ctx := context.Background()
			msg := &Message{ID: 1, ConversationID: 3, Sender: SenderUser, Content: "hi", CreatedAt: time.Now().UTC()}
			if err := s.ReplaceMessages(ctx, 3, []*Message{msg}); err != nil {
				t.Fatalf("ReplaceMessages failed: %v", err)
			}

			if err := s.DeleteMessages(ctx, 3); err != nil {
				t.Fatalf("DeleteMessages failed: %v", err)
			}
			msgs, err := s.GetMessages(ctx, 3)
			if err != nil {
				t.Fatalf("GetMessages failed: %v", err)
			}
			if len(msgs) != 0 {
				t.Errorf("expected no messages after delete, got %d", len(msgs))
			}

			// Idempotent
			if err := s.DeleteMessages(ctx, 3); err != nil {
				t.Errorf("second DeleteMessages failed: %v", err)
			}
		})
	}
}

func TestStore_Messages_IsolatedPerConversation(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t)
			ctx := context.Background()
			now := time.Now().UTC()
			if err := s.ReplaceMessages(ctx, 1, []*Message{{ID: 1, ConversationID: 1, Sender: SenderUser, Content: "a", CreatedAt: now}}); err != nil {
				t.Fatalf("ReplaceMessages failed: %v", err)
			}
			if err := s.ReplaceMessages(ctx, 2, []*Message{{ID: 2, ConversationID: 2, Sender: SenderUser, Content: "b", CreatedAt: now}}); err != nil {
				t.Fatalf("ReplaceMessages failed: %v", err)
			}

			got, err := s.GetMessages(ctx, 1)
			if err != nil {
				t.Fatalf("GetMessages failed: %v", err)
			}
			if len(got) != 1 || got[0].Content != "a" {
				t.Errorf("conversation 1 leaked messages: %+v", got)
			}
		})
	}
}

func TestSource_Label(t *testing.T) {
	tests := []struct {
		name   string
		source Source
		index  int
		want   string
	}{
		{name: "title wins", source: Source{Title: "https://example.com", Name: "ignored"}, index: 0, want: "https://example.com"},
		{name: "name fallback", source: Source{Name: "guide.pdf"}, index: 1, want: "guide.pdf"},
		{name: "positional fallback", source: Source{}, index: 2, want: "Document 3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.source.Label(tt.index); got != tt.want {
				t.Errorf("Label(%d) = %q, want %q", tt.index, got, tt.want)
			}
		})
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	if _, err := Open("postgres", filepath.Join(t.TempDir(), "x.db")); err == nil {
		t.Error("expected error for unknown driver")
	}
}
