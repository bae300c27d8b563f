package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mealscan/mealscan/internal/fusion"
)

const (
	outputFormatJSON = "json"
	outputFormatText = "text"
)

// imageCmd represents the image command.
var imageCmd = &cobra.Command{
	Use:   "image",
	Short: "Recognize food items in an image file",
	Long: `Process an image file and print the recognized food items.

Supported formats: JPEG, PNG, BMP

Examples:
  mealscan image lunch.jpg
  mealscan image lunch.jpg --format text
  mealscan image lunch.jpg --output result.json`,
	Args:         cobra.ArbitraryArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return errors.New("no input file provided")
		}

		cfg := GetConfig()

		format := cfg.Output.Format
		if cmd.Flags().Changed("format") {
			format, _ = cmd.Flags().GetString("format")
		}
		if format != outputFormatJSON && format != outputFormatText {
			return fmt.Errorf("invalid output format: %s (must be one of: %s)",
				format, strings.Join([]string{outputFormatJSON, outputFormatText}, ", "))
		}

		outputFile, _ := cmd.Flags().GetString("output")

		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read image file: %w", err)
		}

		pl, err := buildPipeline(cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize pipeline: %w", err)
		}
		defer func() { _ = pl.Close() }()

		record, err := pl.ProcessImage(context.Background(), data)
		if err != nil {
			return fmt.Errorf("prediction failed: %w", err)
		}

		var rendered []byte
		if format == outputFormatJSON {
			rendered, err = json.MarshalIndent(record, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode result: %w", err)
			}
		} else {
			rendered = []byte(renderText(record))
		}

		if outputFile != "" {
			if err := os.WriteFile(outputFile, rendered, 0o644); err != nil {
				return fmt.Errorf("failed to write output file: %w", err)
			}
		}

		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(rendered))
		return err
	},
}

// renderText formats a prediction for terminal output.
func renderText(record fusion.Record) string {
	var b strings.Builder

	mode := "vision"
	if record.InferResult == fusion.TextOnly {
		mode = "text"
	}
	fmt.Fprintf(&b, "Mode: %s\n", mode)

	if len(record.Predict.FoodNames) == 0 {
		b.WriteString("No food items recognized\n")
		return b.String()
	}

	fmt.Fprintf(&b, "Foods (%d):\n", len(record.Predict.FoodNames))
	for _, name := range record.Predict.FoodNames {
		fmt.Fprintf(&b, "  - %s\n", name)
	}
	if len(record.Predict.KTFoodsInfo) > 0 {
		fmt.Fprintf(&b, "Vendor regions: %d\n", len(record.Predict.KTFoodsInfo))
	}
	return b.String()
}

func init() {
	rootCmd.AddCommand(imageCmd)
	imageCmd.Flags().StringP("format", "f", "json", "output format (json, text)")
	imageCmd.Flags().StringP("output", "o", "", "write result to file in addition to stdout")
}
