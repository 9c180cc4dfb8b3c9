// Package interests records users' interest in catalog events. Every
// registration is stored as its own JSON object in a blob store, so no
// read-modify-write of a shared file is ever needed.
package interests

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yair/conference-portal/pkg/domain"
	"github.com/yair/conference-portal/pkg/logging"
)

const timestampLayout = "2006-01-02 15:04:05"

type Service struct {
	events      domain.EventLookup
	blobs       domain.BlobStore
	emailDomain string
	prefix      string
	now         func() time.Time
}

// NewService builds a service that only accepts addresses ending in
// "@"+emailDomain and stores records under prefix.
func NewService(events domain.EventLookup, blobs domain.BlobStore, emailDomain, prefix string) *Service {
	return &Service{
		events:      events,
		blobs:       blobs,
		emailDomain: strings.ToLower(strings.TrimPrefix(strings.TrimSpace(emailDomain), "@")),
		prefix:      prefix,
		now:         time.Now,
	}
}

// storedInterest is one record plus the blob it came from. Records read from
// a legacy multi-record blob are shared and never deleted individually.
type storedInterest struct {
	url      string
	shared   bool
	interest domain.Interest
}

// Register validates req against the catalog and the allowed email domain,
// rejects duplicates and stores the record.
func (s *Service) Register(ctx context.Context, req domain.InterestRequest) (domain.Interest, error) {
	event, ok := s.events.Find(strings.TrimSpace(req.EventID))
	if !ok {
		return domain.Interest{}, domain.ErrEventNotFound
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if !strings.HasSuffix(email, "@"+s.emailDomain) || len(email) == len(s.emailDomain)+1 {
		return domain.Interest{}, fmt.Errorf("%w: please use a valid @%s email address", domain.ErrEmailDomain, s.emailDomain)
	}

	price := event.Price
	if price == "" {
		price = domain.DefaultPrice
	}

	record := domain.Interest{
		FirstName:  strings.TrimSpace(req.FirstName),
		LastName:   strings.TrimSpace(req.LastName),
		Username:   strings.TrimSpace(req.Username),
		Email:      email,
		Role:       strings.TrimSpace(req.Role),
		City:       strings.TrimSpace(req.City),
		Country:    strings.TrimSpace(req.Country),
		Topic:      event.Topic,
		EventName:  event.EventName,
		EventPrice: price,
		Timestamp:  s.now().Format(timestampLayout),
	}

	existing, err := s.fetchAll(ctx)
	if err != nil {
		return domain.Interest{}, err
	}
	for _, e := range existing {
		if record.SameRegistration(e.interest) {
			return domain.Interest{}, domain.ErrDuplicateInterest
		}
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return domain.Interest{}, fmt.Errorf("failed to encode interest: %w", err)
	}

	key := s.prefix + uuid.NewString() + ".json"
	if _, err := s.blobs.Put(ctx, key, data, "application/json"); err != nil {
		return domain.Interest{}, fmt.Errorf("failed to store interest: %w", err)
	}

	logging.Info("interest registered", "event", record.EventName, "key", key)
	return record, nil
}

// Remove deletes the caller's registration for the event with eventID.
func (s *Service) Remove(ctx context.Context, eventID, email string) error {
	event, ok := s.events.Find(strings.TrimSpace(eventID))
	if !ok {
		return domain.ErrEventNotFound
	}
	email = strings.ToLower(strings.TrimSpace(email))

	deleted, err := s.deleteWhere(ctx, func(i domain.Interest) bool {
		return i.EventName == event.EventName && strings.ToLower(strings.TrimSpace(i.Email)) == email
	})
	if err != nil {
		return err
	}
	if deleted == 0 {
		return domain.ErrInterestNotFound
	}
	return nil
}

// RemoveAllForEvent deletes every registration for eventName and reports
// how many were removed.
func (s *Service) RemoveAllForEvent(ctx context.Context, eventName string) (int, error) {
	return s.deleteWhere(ctx, func(i domain.Interest) bool {
		return i.EventName == eventName
	})
}

func (s *Service) deleteWhere(ctx context.Context, match func(domain.Interest) bool) (int, error) {
	stored, err := s.fetchAll(ctx)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, e := range stored {
		if e.shared || !match(e.interest) {
			continue
		}
		if err := s.blobs.Delete(ctx, e.url); err != nil {
			return deleted, fmt.Errorf("failed to delete interest: %w", err)
		}
		deleted++
	}

	if deleted > 0 {
		logging.Info("interests removed", "count", deleted)
	}
	return deleted, nil
}

// List returns every stored registration.
func (s *Service) List(ctx context.Context) ([]domain.Interest, error) {
	stored, err := s.fetchAll(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Interest, len(stored))
	for i, e := range stored {
		out[i] = e.interest
	}
	return out, nil
}

// fetchAll reads every blob under the prefix. Blobs that cannot be read or
// decoded are logged and skipped.
func (s *Service) fetchAll(ctx context.Context) ([]storedInterest, error) {
	blobs, err := s.blobs.List(ctx, s.prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list interests: %w", err)
	}

	var out []storedInterest
	for _, b := range blobs {
		data, err := s.blobs.Get(ctx, b.URL)
		if err != nil {
			logging.Error("skipping unreadable interest", err, "blob", b.Pathname)
			continue
		}

		data = bytes.TrimSpace(data)
		if len(data) > 0 && data[0] == '[' {
			var records []domain.Interest
			if err := json.Unmarshal(data, &records); err != nil {
				logging.Error("skipping malformed interest", err, "blob", b.Pathname)
				continue
			}
			for _, r := range records {
				out = append(out, storedInterest{url: b.URL, shared: true, interest: r})
			}
			continue
		}

		var record domain.Interest
		if err := json.Unmarshal(data, &record); err != nil {
			logging.Error("skipping malformed interest", err, "blob", b.Pathname)
			continue
		}
		out = append(out, storedInterest{url: b.URL, interest: record})
	}
	return out, nil
}
