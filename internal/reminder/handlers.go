package reminder

import (
	"context"
	"encoding/json"
	"fmt"

	appLog "holidayd/internal/log"
	"holidayd/internal/messaging"
)

func (s *Service) registerHandlers() {
	s.router.Register(messaging.ActionGetHolidays, func(ctx context.Context, _ json.RawMessage) (any, error) {
		return s.Popup(ctx), nil
	})
	s.router.Register(messaging.ActionGetSettings, func(ctx context.Context, _ json.RawMessage) (any, error) {
		return s.GetSettings(ctx), nil
	})
	s.router.Register(messaging.ActionSaveSettings, func(ctx context.Context, payload json.RawMessage) (any, error) {
		var in Settings
		if len(payload) == 0 {
			return nil, fmt.Errorf("%w: missing payload", ErrInvalidCountry)
		}
		if err := json.Unmarshal(payload, &in); err != nil {
			return nil, fmt.Errorf("reminder: decode settings: %w", err)
		}
		return s.SaveSettings(ctx, in)
	})
	// testBanner has a receiver only while a target page is attached.
	s.router.Expect(messaging.ActionTestBanner)
}

// AttachPage marks a target page as connected, making testBanner
// deliverable. The returned func detaches it.
func (s *Service) AttachPage() (detach func()) {
	s.pagesMu.Lock()
	s.pages++
	if s.pages == 1 {
		s.router.Register(messaging.ActionTestBanner, func(ctx context.Context, _ json.RawMessage) (any, error) {
			if err := s.TestBanner(ctx); err != nil {
				return nil, err
			}
			return map[string]bool{"shown": true}, nil
		})
	}
	n := s.pages
	s.pagesMu.Unlock()
	appLog.Debug("target page attached", "pages", n)

	detached := false
	return func() {
		s.pagesMu.Lock()
		defer s.pagesMu.Unlock()
		if detached {
			return
		}
		detached = true
		s.pages--
		if s.pages == 0 {
			s.router.Unregister(messaging.ActionTestBanner)
		}
		appLog.Debug("target page detached", "pages", s.pages)
	}
}

// Pages is the number of attached target pages.
func (s *Service) Pages() int {
	s.pagesMu.Lock()
	defer s.pagesMu.Unlock()
	return s.pages
}
