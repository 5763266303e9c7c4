package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/nao7sep/downScale/internal/preset"
)

func newPresetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:           "presets",
		Short:         "List the available conversion presets",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rows := make([][]string, 0, 4)
			for _, p := range preset.All() {
				params := preset.Parameters(p)
				rows = append(rows, []string{
					string(p),
					params.Codec,
					strconv.Itoa(params.QualityFactor),
					fmt.Sprintf("%dk AAC stereo", params.AudioBitrateKbps),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Preset", "Codec", "CRF", "Audio"}, rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft}))
			return nil
		},
	}
}
