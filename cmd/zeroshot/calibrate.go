package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/crimson-sun/zeroshot/internal/engine"
	"github.com/crimson-sun/zeroshot/internal/engine/reference"
	"github.com/crimson-sun/zeroshot/internal/model"
	"github.com/crimson-sun/zeroshot/internal/source/file"
)

var calibrateTensor string

var calibrateCmd = &cobra.Command{
	Use:   "calibrate IMAGE REFERENCE",
	Short: "Find the pixel normalization that reproduces a reference embedding",
	Long: `Embed IMAGE under every built-in pixel normalization and compare each
embedding with a reference embedding of the same image, read from a
safetensors file produced by the upstream CLIP pipeline. The best match is
the normalization to configure.`,
	Args: cobra.ExactArgs(2),
	RunE: runCalibrate,
}

func init() {
	calibrateCmd.Flags().StringVar(&calibrateTensor, "tensor", "", "reference tensor name (default: the only tensor in the file)")
}

func runCalibrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	raw, err := file.LoadPath(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	ref, err := reference.Load(args[1])
	if err != nil {
		return err
	}
	name := calibrateTensor
	if name == "" {
		names := ref.Names()
		if len(names) != 1 {
			return fmt.Errorf("reference has %d tensors (%s), choose one with --tensor", len(names), strings.Join(names, ", "))
		}
		name = names[0]
	}
	emb, err := ref.Embedding(name, model.EmbeddingDim)
	if err != nil {
		return err
	}

	enc, err := openImageEncoder(cfg.Engine)
	if err != nil {
		return err
	}
	defer enc.Close()

	results, err := engine.Calibrate(enc, raw.Image, emb)
	if err != nil {
		return err
	}

	fmt.Println(titleStyle.Render("calibration") + "  " + dimStyle.Render(args[0]))
	for i, c := range results {
		line := fmt.Sprintf("%-10s similarity %.6f", c.Normalization.Name, c.Similarity)
		if i == 0 {
			fmt.Println("▸ " + okStyle.Render(line))
			continue
		}
		fmt.Println("  " + line)
	}
	return nil
}
