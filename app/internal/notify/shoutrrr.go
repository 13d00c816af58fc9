package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/nicholas-fedor/shoutrrr"
	"github.com/nicholas-fedor/shoutrrr/pkg/types"

	"pulse/app/internal/alerts"
)

type messageSender interface {
	Send(message string, params *types.Params) []error
}

// Shoutrrr delivers plain-text alerts to any shoutrrr service URL (ntfy, smtp, gotify, ...).
// A send cannot be cancelled, so one that outlives its context keeps running until Wait.
type Shoutrrr struct {
	sender messageSender
	wg     sync.WaitGroup
}

// NewShoutrrr validates the URLs and builds one sender for all of them
func NewShoutrrr(urls ...string) (*Shoutrrr, error) {
	sender, err := shoutrrr.CreateSender(urls...)
	if err != nil {
		return nil, fmt.Errorf("create shoutrrr sender: %w", err)
	}
	return &Shoutrrr{sender: sender}, nil
}

func (s *Shoutrrr) Name() string { return "shoutrrr" }

func (s *Shoutrrr) Notify(ctx context.Context, a alerts.Alert) error {
	msg := fmt.Sprintf("%s\n%s", subject(a), a.Message)

	done := make(chan []error, 1)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		done <- s.sender.Send(msg, nil)
	}()

	select {
	case errs := <-done:
		return errors.Join(errs...)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Wait blocks until sends abandoned by a cancelled Notify have returned
func (s *Shoutrrr) Wait() {
	s.wg.Wait()
}
