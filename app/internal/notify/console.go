package notify

import (
	"context"
	"fmt"
	"io"
	"sync"

	"pulse/app/internal/alerts"
	"pulse/app/internal/models"
	"pulse/app/internal/style"
)

const bell = "\a"

// Console prints a styled line per alert and optionally rings the terminal bell.
// Per-endpoint overrides win over the global toggles.
type Console struct {
	out       io.Writer
	show      bool
	bell      bool
	overrides map[string]*models.NotifyOverride

	mu sync.Mutex
}

// NewConsole creates a console sink writing to out
func NewConsole(out io.Writer, settings models.NotifySettings, endpoints []models.Endpoint) *Console {
	c := &Console{
		out:       out,
		show:      settings.Console,
		bell:      settings.TerminalBell,
		overrides: make(map[string]*models.NotifyOverride),
	}
	for _, e := range endpoints {
		if e.Notify != nil {
			c.overrides[e.Name] = e.Notify
		}
	}
	return c
}

// Active reports whether the console can fire for any endpoint
func (c *Console) Active() bool {
	if c.show || c.bell {
		return true
	}
	for _, o := range c.overrides {
		if (o.Console != nil && *o.Console) || (o.TerminalBell != nil && *o.TerminalBell) {
			return true
		}
	}
	return false
}

func (c *Console) Name() string { return "console" }

func (c *Console) Notify(_ context.Context, a alerts.Alert) error {
	show, ring := c.resolve(a.Endpoint)
	if !show && !ring {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if show {
		line := fmt.Sprintf("%s %s %s %s",
			style.DimText.Render(a.Timestamp.Format("15:04:05")),
			style.Dot(a.Current),
			style.ForStatus(a.Current).Render(string(a.Severity)),
			a.Message,
		)
		if _, err := fmt.Fprintln(c.out, line); err != nil {
			return err
		}
	}
	if ring {
		if _, err := io.WriteString(c.out, bell); err != nil {
			return err
		}
	}
	return nil
}

func (c *Console) resolve(endpoint string) (show, ring bool) {
	show, ring = c.show, c.bell
	if o := c.overrides[endpoint]; o != nil {
		if o.Console != nil {
			show = *o.Console
		}
		if o.TerminalBell != nil {
			ring = *o.TerminalBell
		}
	}
	return show, ring
}
