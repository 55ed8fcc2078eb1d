package status

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	encapsiacmd "github.com/encapsia/encapsia-cli/cmd/internal/cmd"
	"github.com/encapsia/encapsia-cli/cmd/plugins/shared"
	"github.com/encapsia/encapsia-cli/internal/flags/enum"
	"github.com/encapsia/encapsia-cli/internal/plugininfo"
)

func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the plugins installed on the server.",
		Example: `  # Show installed plugins as a table
  encapsia plugins status

  # Machine readable output
  encapsia plugins status --output json`,
		Args:              cobra.NoArgs,
		RunE:              run,
		DisableAutoGenTag: true,
	}
	enum.VarP(cmd.Flags(), encapsiacmd.OutputFlag, "o", []string{"table", "json", "yaml"},
		"output format of the plugin information, defaults to table")
	return cmd
}

func run(cmd *cobra.Command, _ []string) error {
	client, err := shared.Client(cmd)
	if err != nil {
		return err
	}
	installed, err := shared.Installed(cmd.Context(), client)
	if err != nil {
		return fmt.Errorf("fetching installed plugins failed: %w", err)
	}

	output, err := enum.Get(cmd.Flags(), encapsiacmd.OutputFlag)
	if err != nil {
		return fmt.Errorf("getting output flag failed: %w", err)
	}
	data, err := encode(output, installed.Sorted())
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

// row is the encoding shape for one installed plugin.
type row struct {
	Name        string `json:"name"`
	Variant     string `json:"variant,omitempty"`
	Version     string `json:"version"`
	Description string `json:"description,omitempty"`
	Installed   string `json:"installed,omitempty"`
	Tags        string `json:"tags,omitempty"`
}

func encode(output string, infos []*plugininfo.Info) ([]byte, error) {
	rows := make([]row, 0, len(infos))
	for _, info := range infos {
		rows = append(rows, row{
			Name:        info.Name(),
			Variant:     info.Variant(),
			Version:     info.FormattedVersion(),
			Description: info.Extra("description"),
			Installed:   info.Extra("installed"),
			Tags:        info.Extra("plugin-tags"),
		})
	}
	switch output {
	case "json":
		return json.MarshalIndent(rows, "", "  ")
	case "yaml":
		return yaml.Marshal(rows)
	case "table":
		return encodeTable(rows), nil
	default:
		return nil, fmt.Errorf("unknown output format: %q", output)
	}
}

func encodeTable(rows []row) []byte {
	var buf bytes.Buffer
	t := table.NewWriter()
	t.SetOutputMirror(&buf)
	t.AppendHeader(table.Row{"Name", "Variant", "Version", "Description", "Installed", "Tags"})
	for _, r := range rows {
		t.AppendRow(table.Row{r.Name, r.Variant, r.Version, r.Description, r.Installed, r.Tags})
	}
	style := table.StyleLight
	style.Options.DrawBorder = false
	t.SetStyle(style)
	t.Render()
	return buf.Bytes()
}
