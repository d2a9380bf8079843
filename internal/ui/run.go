package ui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/mkeppel/habitquest-tui/internal/engine"
	"github.com/mkeppel/habitquest-tui/internal/store"
	"github.com/mkeppel/habitquest-tui/internal/util"
)

// Run boots the TUI program and blocks until it exits.
func Run(ctx context.Context, repo *store.StateRepo, state engine.HabitState, cfg util.Config, log *zap.Logger) error {
	m := initialModel(ctx, repo, state, cfg, log)
	program := tea.NewProgram(m, tea.WithContext(ctx))
	_, err := program.Run()
	return err
}
