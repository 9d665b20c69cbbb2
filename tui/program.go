package tui

import (
	"context"
	"errors"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"exohabit/config"
	"exohabit/controller"
	"exohabit/monitoring"
)

// Sender delivers messages to a running program.
type Sender interface {
	Send(msg tea.Msg)
}

// programPublisher turns display changes into program messages. The
// controller renders under its lock, so sends never block the caller.
type programPublisher struct {
	mu     sync.RWMutex
	sender Sender
}

func (p *programPublisher) attach(s Sender) {
	p.mu.Lock()
	p.sender = s
	p.mu.Unlock()
}

func (p *programPublisher) Publish(t monitoring.MessageType, _ any) error {
	p.mu.RLock()
	s := p.sender
	p.mu.RUnlock()
	if s != nil {
		go s.Send(displayChangedMsg{kind: t})
	}
	return nil
}

// Run starts the terminal client and blocks until the user quits or ctx
// ends. Any in-flight submission is cancelled on exit.
func Run(ctx context.Context, scorer controller.Scorer, cfg *config.Config, logger *zap.Logger) error {
	pub := &programPublisher{}
	display := monitoring.NewDisplay(cfg.Display.PredictionPlaceholder, cfg.Display.HistorySize, pub, logger)
	form := NewForm()

	ctrl := controller.New(form, scorer, display, logger)
	ctrl.SetRankLimit(cfg.API.RankLimit)

	model := New(ctx, ctrl, display, form, OptionsFrom(cfg))
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	pub.attach(program)

	_, err := program.Run()
	ctrl.Cancel()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
