package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	poplod "github.com/arl/go-poplod"
)

var viewSizeVal float32
var viewPlotVal bool
var viewLevelVal int
var viewCfgVal string

// viewCmd represents the view command.
var viewCmd = &cobra.Command{
	Use:   "view KEY",
	Short: "load a cached entry and transition it to a level",
	Long: `Open a cached entry by its hexadecimal hash key, transition it to
either a view-size-derived level or an explicit one, and optionally write
a debug plot of the resulting geometry.`,
	Args: cobra.ExactArgs(1),
	Run:  doView,
}

func init() {
	RootCmd.AddCommand(viewCmd)

	viewCmd.Flags().Float32Var(&viewSizeVal, "view-size", 0, "view size driving the level heuristic (defaults to the build settings' default_view_size)")
	viewCmd.Flags().IntVar(&viewLevelVal, "level", -1, "explicit level, overrides --view-size")
	viewCmd.Flags().BoolVar(&viewPlotVal, "plot", false, "write a debug plot of the resulting geometry")
	viewCmd.Flags().StringVar(&viewCfgVal, "config", "poplod.yml", "build settings")
}

func doView(cmd *cobra.Command, args []string) {
	hash, err := strconv.ParseUint(args[0], 16, 64)
	check(err)

	settings := poplod.NewSettings()
	if err := unmarshalYAMLFile(viewCfgVal, &settings); err != nil {
		fmt.Printf("no build settings at '%s', using defaults\n", viewCfgVal)
	}
	if !cmd.Flags().Changed("view-size") {
		viewSizeVal = settings.DefaultViewSize
	}

	l, err := poplod.Init(hash)
	check(err)
	defer l.Destroy()

	ctx := poplod.NewContext(settings.LogEnabled)
	ctx.EnableTimer(settings.TimerEnabled)

	var lvl int
	if viewLevelVal >= 0 {
		lvl = l.SetLevelDirect(ctx, viewLevelVal)
	} else {
		lvl = l.View(ctx, viewSizeVal, 0)
	}
	if lvl < 0 {
		check(fmt.Errorf("set_level failed"))
	}

	ctx.DumpLog("view log:")
	fmt.Printf("level: %d, triangles: %d\n", lvl, l.TriCount())

	if viewPlotVal {
		check(l.Plot(args[0]))
		fmt.Printf("plot written to %s.plot\n", args[0])
	}
}
