package cmd

import (
	"fmt"
	"strconv"

	"github.com/fatih/structs"
	"github.com/spf13/cobra"

	poplod "github.com/arl/go-poplod"
)

// infoCmd represents the info command.
var infoCmd = &cobra.Command{
	Use:   "info KEY",
	Short: "show info about a cached entry",
	Long: `Open a cached entry by its hexadecimal hash key, check it for
consistency, then print information about it on standard output.`,
	Args: cobra.ExactArgs(1),
	Run:  doInfo,
}

func init() {
	RootCmd.AddCommand(infoCmd)
}

func doInfo(cmd *cobra.Command, args []string) {
	hash, err := strconv.ParseUint(args[0], 16, 64)
	check(err)

	l, err := poplod.Init(hash)
	check(err)
	defer l.Destroy()

	bmin, bmax := l.BBox()
	stats := struct {
		CurrentLevel int
		MaxPopLevel  int
		TriCount     int
		BBoxMin      [3]float32
		BBoxMax      [3]float32
	}{
		CurrentLevel: l.CurrentLevel(),
		MaxPopLevel:  l.MaxPopLevel(),
		TriCount:     l.TriCount(),
		BBoxMin:      [3]float32{bmin[0], bmin[1], bmin[2]},
		BBoxMax:      [3]float32{bmax[0], bmax[1], bmax[2]},
	}
	fmt.Println(structs.Map(stats))
}
