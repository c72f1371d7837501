// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Glyphix Contributors

package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/glyphix/extsystem/internal/logging"
	"github.com/glyphix/extsystem/pkg/extsystem"
)

var (
	browseTitleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	browseSelectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("229")).Background(lipgloss.Color("57"))
	browseHelpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// browseModel is a read-only bubbletea list of every descriptor found
// under a scanned root. It never constructs an extension - it only
// displays what the registry already knows.
type browseModel struct {
	descriptors []extsystem.Descriptor
	cursor      int
}

func (m browseModel) Init() tea.Cmd { return nil }

func (m browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch keyMsg.String() {
	case "ctrl+c", "q", "esc":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.descriptors)-1 {
			m.cursor++
		}
	}
	return m, nil
}

func (m browseModel) View() string {
	view := browseTitleStyle.Render("extensions") + "\n\n"
	for i, d := range m.descriptors {
		line := fmt.Sprintf("%s/%s v%d  (%s)", d.InterfaceName(), d.Name(), d.Version(), d.LibraryFilename())
		if i == m.cursor {
			line = browseSelectedStyle.Render(line)
		}
		view += line + "\n"
	}
	view += "\n" + browseHelpStyle.Render("↑/↓ to move, q to quit")
	return view
}

func newBrowseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "browse <path>",
		Short: "Interactively browse descriptors found under a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, configFile)
			if err != nil {
				return err
			}
			logger := logging.Setup("extctl", "dev", cfg.Format, cmd.ErrOrStderr())
			reg := buildRegistry(cfg, logger)

			if _, err := reg.SearchDirectory(context.Background(), args[0], true, ""); err != nil {
				return err
			}

			model := browseModel{descriptors: reg.Extensions(nil)}
			_, err = tea.NewProgram(model).Run()
			return err
		},
	}
	return cmd
}
