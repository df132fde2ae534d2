package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	poplod "github.com/arl/go-poplod"
	"github.com/arl/go-poplod/internal/meshio"
)

var cacheCfgVal string

// cacheCmd represents the cache command.
var cacheCmd = &cobra.Command{
	Use:   "cache INPUT",
	Short: "characterize input geometry and write it to the LoD cache",
	Long: `Characterize input geometry (OBJ) into quantization levels and
write it to the content-addressed on-disk cache, printing the resulting
cache key.`,
	Args: cobra.ExactArgs(1),
	Run:  doCache,
}

func init() {
	RootCmd.AddCommand(cacheCmd)

	cacheCmd.Flags().StringVar(&cacheCfgVal, "config", "poplod.yml", "build settings")
}

func doCache(cmd *cobra.Command, args []string) {
	settings := poplod.NewSettings()
	if err := unmarshalYAMLFile(cacheCfgVal, &settings); err != nil {
		fmt.Printf("no build settings at '%s', using defaults\n", cacheCfgVal)
	}

	mesh, err := meshio.Load(args[0])
	check(err)

	ctx := poplod.NewContext(settings.LogEnabled)
	ctx.EnableTimer(settings.TimerEnabled)

	hash, err := poplod.Cache(ctx, mesh.Verts, mesh.Faces)
	check(err)

	if settings.LogEnabled {
		ctx.DumpLog("characterization log:")
	}
	fmt.Printf("cache key: %016x\n", hash)
}
