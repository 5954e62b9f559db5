package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var labelsCmd = &cobra.Command{
	Use:   "labels",
	Short: "List the labels known to the vocabulary",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		vocab, err := loadVocabulary(cfg.Engine.VocabPath)
		if err != nil {
			return err
		}
		for _, l := range vocab.Labels() {
			fmt.Println(l)
		}
		return nil
	},
}
