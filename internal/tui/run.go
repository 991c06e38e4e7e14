package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

// Run blocks until the user quits. Push and auto-sync run only while the
// program is open.
func Run(ctx context.Context, d Deps) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if d.Stats != nil {
		d.Stats.StartAutoSync(ctx, d.SyncInterval)
		defer d.Stats.StopAutoSync()
	}
	if d.Push != nil {
		dialed := make(chan struct{})
		go func() {
			defer close(dialed)
			if err := d.Push.Connect(ctx); err != nil && d.Logger != nil {
				d.Logger.Warn("live updates unavailable", "error", err)
			}
		}()
		defer func() {
			cancel()
			<-dialed
			d.Push.Disconnect()
		}()
	}

	p := tea.NewProgram(newModel(ctx, d), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}
