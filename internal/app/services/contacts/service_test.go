package contacts

import (
	"context"
	"strings"
	"testing"

	"github.com/codemart-io/storefront/internal/app/domain/contact"
	"github.com/codemart-io/storefront/internal/app/storage"
	"github.com/codemart-io/storefront/internal/app/storage/memory"
)

func TestService_SubmitValidation(t *testing.T) {
	svc := New(memory.New(), nil)
	ctx := context.Background()

	if _, err := svc.Submit(ctx, "", "a@b.com", "hi", ""); err == nil {
		t.Fatalf("expected name validation err")
	}
	if _, err := svc.Submit(ctx, "Jane", "not-an-email", "hi", ""); err == nil {
		t.Fatalf("expected email validation err")
	}
	if _, err := svc.Submit(ctx, "Jane", "a@b.com", "", ""); err == nil {
		t.Fatalf("expected message validation err")
	}
	if _, err := svc.Submit(ctx, "Jane", "a@b.com", strings.Repeat("x", maxMessageLength+1), ""); err == nil {
		t.Fatalf("expected oversize message rejection")
	}

	created, err := svc.Submit(ctx, " Jane ", "jane@example.com", "I want the taxi app", "203.0.113.9")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if created.Status != contact.StatusUnread {
		t.Fatalf("expected UNREAD, got %s", created.Status)
	}
	if created.Name != "Jane" {
		t.Fatalf("name not trimmed: %q", created.Name)
	}
}

func TestService_GetMarksRead(t *testing.T) {
	store := memory.New()
	svc := New(store, nil)
	ctx := context.Background()

	created, err := svc.Submit(ctx, "Jane", "jane@example.com", "hello", "")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	got, err := svc.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != contact.StatusRead {
		t.Fatalf("first view should mark READ, got %s", got.Status)
	}

	// A second view stays READ, and a replied contact is untouched.
	if _, err := svc.SetStatus(ctx, created.ID, contact.StatusReplied); err != nil {
		t.Fatalf("set replied: %v", err)
	}
	got, err = svc.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("get replied: %v", err)
	}
	if got.Status != contact.StatusReplied {
		t.Fatalf("view must not downgrade REPLIED, got %s", got.Status)
	}
}

func TestService_ListReportsUnread(t *testing.T) {
	store := memory.New()
	svc := New(store, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := svc.Submit(ctx, "Jane", "jane@example.com", "msg", ""); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}
	first, err := svc.Submit(ctx, "John", "john@example.com", "other", "")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := svc.Get(ctx, first.ID); err != nil {
		t.Fatalf("view: %v", err)
	}

	items, total, unread, err := svc.List(ctx, storage.ContactFilter{}, 1, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 4 || len(items) != 4 {
		t.Fatalf("expected 4 contacts, got total=%d len=%d", total, len(items))
	}
	if unread != 3 {
		t.Fatalf("expected 3 unread, got %d", unread)
	}

	// Unread count spans the whole inbox even when the filter narrows the page.
	_, total, unread, err = svc.List(ctx, storage.ContactFilter{Search: "john"}, 1, 10)
	if err != nil {
		t.Fatalf("filtered list: %v", err)
	}
	if total != 1 || unread != 3 {
		t.Fatalf("expected total=1 unread=3, got total=%d unread=%d", total, unread)
	}

	if _, _, _, err := svc.List(ctx, storage.ContactFilter{Status: "SPAM"}, 1, 10); err == nil {
		t.Fatalf("expected unknown status rejection")
	}
}
