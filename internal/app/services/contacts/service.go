package contacts

import (
	"context"
	"net/mail"
	"strings"

	"github.com/codemart-io/storefront/internal/app/domain/contact"
	"github.com/codemart-io/storefront/internal/app/metrics"
	"github.com/codemart-io/storefront/internal/app/storage"
	apperrors "github.com/codemart-io/storefront/internal/errors"
	"github.com/codemart-io/storefront/pkg/logger"
)

const maxMessageLength = 5000

// Service manages the contact inbox.
type Service struct {
	store storage.ContactStore
	log   *logger.Logger
}

// New creates a configured contacts service.
func New(store storage.ContactStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("contacts")
	}
	return &Service{store: store, log: log}
}

// Submit records a contact form submission as UNREAD.
func (s *Service) Submit(ctx context.Context, name, email, message, ipAddress string) (contact.Contact, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	message = strings.TrimSpace(message)

	if name == "" {
		return contact.Contact{}, apperrors.Validation("name is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return contact.Contact{}, apperrors.Validation("email is invalid")
	}
	if message == "" {
		return contact.Contact{}, apperrors.Validation("message is required")
	}
	if len(message) > maxMessageLength {
		return contact.Contact{}, apperrors.Validation("message exceeds %d characters", maxMessageLength)
	}

	created, err := s.store.CreateContact(ctx, contact.Contact{
		Name:      name,
		Email:     email,
		Message:   message,
		Status:    contact.StatusUnread,
		IPAddress: ipAddress,
	})
	if err != nil {
		return contact.Contact{}, err
	}
	metrics.RecordContact()
	s.log.WithField("contact_id", created.ID).Infof("contact received from %s", created.Email)
	return created, nil
}

// List returns a page of contacts plus the total match count and the number
// of UNREAD messages across the whole inbox.
func (s *Service) List(ctx context.Context, filter storage.ContactFilter, page, pageSize int) ([]contact.Contact, int64, int64, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, 0, apperrors.Validation("unsupported status %s", filter.Status)
	}
	items, total, err := s.store.ListContacts(ctx, filter, page, pageSize)
	if err != nil {
		return nil, 0, 0, err
	}
	unread, err := s.store.CountContacts(ctx, contact.StatusUnread)
	if err != nil {
		return nil, 0, 0, err
	}
	return items, total, unread, nil
}

// Get fetches a contact. Viewing an UNREAD message marks it READ.
func (s *Service) Get(ctx context.Context, id string) (contact.Contact, error) {
	if strings.TrimSpace(id) == "" {
		return contact.Contact{}, apperrors.Validation("contact id is required")
	}
	c, err := s.store.GetContact(ctx, id)
	if err != nil {
		return contact.Contact{}, err
	}
	if c.Status == contact.StatusUnread {
		updated, err := s.store.SetContactStatus(ctx, id, contact.StatusRead)
		if err != nil {
			// The read itself succeeded; surface the message anyway.
			s.log.WithError(err).WithField("contact_id", id).Warnf("could not mark contact read")
			return c, nil
		}
		return updated, nil
	}
	return c, nil
}

// SetStatus moves a contact to the given status.
func (s *Service) SetStatus(ctx context.Context, id string, status contact.Status) (contact.Contact, error) {
	if strings.TrimSpace(id) == "" {
		return contact.Contact{}, apperrors.Validation("contact id is required")
	}
	if !status.Valid() {
		return contact.Contact{}, apperrors.Validation("unsupported status %s", status)
	}
	return s.store.SetContactStatus(ctx, id, status)
}

// Delete removes a contact.
func (s *Service) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return apperrors.Validation("contact id is required")
	}
	return s.store.DeleteContact(ctx, id)
}
