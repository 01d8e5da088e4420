package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/triangle-intelligence/compliance-cli/internal/classify"
	"github.com/triangle-intelligence/compliance-cli/pkg/anthropic"
)

var classifyCmd = &cobra.Command{
	Use:   "classify <product description>",
	Short: "Suggest HS codes for a product description via Claude",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("classify"); err != nil {
			return err
		}

		client := anthropic.NewClient(cfg.Anthropic.Key)
		classifier := classify.New(client, cfg.Anthropic.Model)

		suggestions, err := classifier.Suggest(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}
		return printJSON(suggestions)
	},
}

func init() {
	rootCmd.AddCommand(classifyCmd)
}
