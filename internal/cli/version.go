package cli

import (
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Set from main via ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var versionShort bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of nodebeat.`,
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		printVersion(cmd, currentBuild(), versionShort)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().BoolVar(&versionShort, "short", false, "Print only the version number")
}

// buildInfo describes the running binary.
type buildInfo struct {
	Version string
	Commit  string
	Date    string
}

// currentBuild returns the ldflags values. A "dev" build installed with
// 'go install module@version' reports the module version instead.
func currentBuild() buildInfo {
	b := buildInfo{Version: version, Commit: commit, Date: date}
	if b.Version != "dev" {
		return b
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		b.Version = info.Main.Version
	}
	return b
}

func printVersion(cmd *cobra.Command, b buildInfo, short bool) {
	if short {
		cmd.Println(b.Version)
		return
	}

	cmd.Printf("nodebeat %s\n", formatVersion(b.Version))
	cmd.Printf("commit: %s\n", b.Commit)
	cmd.Printf("built: %s\n", b.Date)
	cmd.Printf("go: %s, %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// formatVersion adds a 'v' prefix to release versions.
func formatVersion(v string) string {
	if v == "" || v == "dev" || v[0] == 'v' {
		return v
	}
	return "v" + v
}

// SetVersionInfo records build metadata; main calls it before Execute.
func SetVersionInfo(v, c, d string) {
	version, commit, date = v, c, d
	rootCmd.Version = formatVersion(currentBuild().Version)
}
