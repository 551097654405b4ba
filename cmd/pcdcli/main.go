package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/OpenAEC-Foundation/open-pointcloud-studio/cloud"
	"github.com/OpenAEC-Foundation/open-pointcloud-studio/decode"
	"github.com/OpenAEC-Foundation/open-pointcloud-studio/export"
	"github.com/OpenAEC-Foundation/open-pointcloud-studio/reconstruct"
	"github.com/OpenAEC-Foundation/open-pointcloud-studio/transform"
)

var cfg struct {
	in      string
	out     string
	format  string
	surface bool
	thin    float64
}

var rootCmd = &cobra.Command{
	Use:   "pcdcli",
	Short: "Convert, transform, and reconstruct point clouds from the command line",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfg.in, "in", "i", "", "input point cloud file")
	rootCmd.PersistentFlags().StringVarP(&cfg.out, "out", "o", "", "output file")
	rootCmd.PersistentFlags().StringVarP(&cfg.format, "format", "f", "", "output format: ply, ply-binary, obj, xyz, pts, csv (default: inferred from --out extension)")
	rootCmd.PersistentFlags().BoolVar(&cfg.surface, "reconstruct", false, "run greedy-projection surface reconstruction before export")
	rootCmd.PersistentFlags().Float64Var(&cfg.thin, "thin", 0, "keep this percentage of points (random thinning) before export")
	rootCmd.PersistentFlags().Float64SliceVar(&translateSlice, "translate", nil, "dx,dy,dz to apply before export")
	rootCmd.PersistentFlags().Float64SliceVar(&scaleSlice, "scale", nil, "sx,sy,sz to apply before export")

	rootCmd.MarkPersistentFlagRequired("in")
	rootCmd.MarkPersistentFlagRequired("out")
}

var translateSlice, scaleSlice []float64

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "pcdcli:", err)
		os.Exit(1)
	}
}

func run() error {
	f, err := os.Open(cfg.in)
	if err != nil {
		return err
	}
	defer f.Close()

	ctx := context.Background()
	c, err := decode.Dispatch(ctx, cfg.in, f, func(p decode.Progress) {
		fmt.Fprintf(os.Stderr, "%-20s %3.0f%%\n", p.Phase, p.Fraction*100)
	})
	if err != nil {
		return err
	}

	if len(translateSlice) == 3 {
		transform.Translate(c, nil, float32(translateSlice[0]), float32(translateSlice[1]), float32(translateSlice[2]))
	}
	if len(scaleSlice) == 3 {
		transform.Scale(c, nil, float32(scaleSlice[0]), float32(scaleSlice[1]), float32(scaleSlice[2]))
	}
	if cfg.thin > 0 {
		transform.Thin(c, nil, cfg.thin, nil)
	}

	if cfg.surface {
		if err := reconstruct.Run(c, reconstruct.Options{}, nil, func(p reconstruct.Progress) {
			fmt.Fprintf(os.Stderr, "%-24s %3.0f%%\n", p.Phase, p.Fraction*100)
		}); err != nil {
			return err
		}
	}

	out, err := os.Create(cfg.out)
	if err != nil {
		return err
	}
	defer out.Close()

	switch outputFormat() {
	case "ply":
		return export.WritePLYAscii(out, c)
	case "ply-binary":
		return export.WritePLYBinary(out, c)
	case "obj":
		return export.WriteOBJ(out, c, nil)
	case "xyz":
		return export.WriteXYZ(out, c)
	case "pts":
		return export.WritePTS(out, c)
	case "csv":
		return export.WriteCSV(out, c)
	default:
		return cloud.NewError(cloud.UnsupportedExtension, fmt.Sprintf("unknown output format %q", cfg.format))
	}
}

func outputFormat() string {
	if cfg.format != "" {
		return cfg.format
	}
	switch ext := extOf(cfg.out); ext {
	case ".ply":
		return "ply-binary"
	case ".obj":
		return "obj"
	case ".xyz", ".txt":
		return "xyz"
	case ".pts":
		return "pts"
	case ".csv":
		return "csv"
	}
	return ""
}

func extOf(path string) string {
	for i := len(path) - 1; i >= 0 && path[i] != '/'; i-- {
		if path[i] == '.' {
			return path[i:]
		}
	}
	return ""
}
