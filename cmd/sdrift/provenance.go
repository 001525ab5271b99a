package main

import (
	"github.com/spf13/cobra"
)

var provenanceCmd = &cobra.Command{
	Use:   "provenance <node-id>",
	Short: "Explain the upstream lineage of a node",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store := openGraph()

		entries, err := store.Provenance(args[0])
		if err != nil {
			return err
		}
		formatter().ProvenanceReport(args[0], entries)
		return nil
	},
}
