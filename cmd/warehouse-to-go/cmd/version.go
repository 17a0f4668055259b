package cmd

import (
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long: `Display version information including build details and the versions of
the bundled warehouse drivers and the DuckDB binding.`,
	Run: runVersion,
}

// driverModules lists the modules whose versions decide which warehouses and
// which DuckDB file format a build supports.
var driverModules = []struct {
	label string
	path  string
}{
	{"DuckDB", "github.com/marcboeker/go-duckdb/v2"},
	{"Snowflake", "github.com/snowflakedb/gosnowflake"},
	{"PostgreSQL", "github.com/jackc/pgx/v5"},
	{"MySQL", "github.com/go-sql-driver/mysql"},
	{"SQL Server", "github.com/microsoft/go-mssqldb"},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func runVersion(cmd *cobra.Command, args []string) {
	cmd.Printf("warehouse-to-go version %s\n", Version)
	cmd.Printf("  Commit: %s\n", Commit)
	cmd.Printf("  Go version: %s\n", runtime.Version())
	cmd.Printf("  OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)

	info, _ := debug.ReadBuildInfo()
	cmd.Println("  Drivers:")
	for _, d := range driverVersions(info) {
		cmd.Printf("    %-11s %s\n", d[0]+":", d[1])
	}
}

// driverVersions pairs each driver label with its module version from the
// build info. Replaced modules report the replacement's version.
func driverVersions(info *debug.BuildInfo) [][2]string {
	found := make(map[string]string)
	if info != nil {
		for _, dep := range info.Deps {
			m := dep
			if m.Replace != nil {
				m = m.Replace
			}
			found[dep.Path] = m.Version
		}
	}

	out := make([][2]string, 0, len(driverModules))
	for _, d := range driverModules {
		v := found[d.path]
		if v == "" {
			v = "unknown"
		}
		out = append(out, [2]string{d.label, v})
	}
	return out
}
