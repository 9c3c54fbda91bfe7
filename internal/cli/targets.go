package cli

import (
	"fmt"
	"io"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/rileyhilliard/nodebeat/internal/config"
	"github.com/rileyhilliard/nodebeat/internal/errors"
	"github.com/rileyhilliard/nodebeat/internal/target"
	"github.com/rileyhilliard/nodebeat/internal/ui"
	"github.com/rileyhilliard/nodebeat/pkg/sshutil"
)

var targetsCmd = &cobra.Command{
	Use:   "targets",
	Short: "List configured targets and how they resolve",
	Long: `List every configured target with its index (usable with --nodes) and the
connection it resolves to in your ssh config, or why it can't be polled.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return listTargets(cmd.OutOrStdout(), afero.NewOsFs(), cfg)
	},
}

func init() {
	rootCmd.AddCommand(targetsCmd)
}

// listTargets prints the targets table. Targets that fail to resolve are
// listed, not returned as an error.
func listTargets(w io.Writer, fs afero.Fs, cfg *config.Config) error {
	set, err := target.NewSet(cfg.Targets)
	if err != nil {
		return err
	}

	resolver, err := sshutil.LoadConfig(fs, cfg.SSHConfig)
	if err != nil {
		return err
	}

	rows := make([]ui.TargetRow, 0, set.Len())
	for _, t := range set.All() {
		row := ui.TargetRow{Index: set.Index(t), Name: t.String()}
		params, err := resolver.Resolve(t.String())
		if err != nil {
			row.Err = errors.SummaryOf(err)
		} else {
			row.Params = params.String()
		}
		rows = append(rows, row)
	}

	_, err = fmt.Fprint(w, ui.RenderTargetsTable(rows))
	return err
}
