package main

import (
	"context"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/deskos/deskagent/provider"
	"github.com/deskos/deskagent/registry"
	"github.com/deskos/deskagent/toolpath"
)

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List backends and their availability",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg := registry.New()
		writeProvidersTable(cmd.Context(), cmd.OutOrStdout(), reg)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(providersCmd)
}

func writeProvidersTable(ctx context.Context, w io.Writer, reg *registry.Registry) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleRounded)
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft, AlignHeader: text.AlignCenter},
		{Number: 2, Align: text.AlignCenter, AlignHeader: text.AlignCenter},
		{Number: 3, Align: text.AlignLeft, AlignHeader: text.AlignCenter},
	})
	tw.AppendHeader(table.Row{"Provider", "Available", "Binary"})

	for _, t := range provider.Types() {
		status := "no"
		if reg.CheckAvailability(ctx, t) {
			status = "yes"
		}
		binary, found := toolpath.Resolve(string(t))
		if !found {
			binary = "-"
		}
		tw.AppendRow(table.Row{string(t), status, binary})
	}
	_ = tw.Render()
}
