package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/schemadrift/schemadrift/internal/proof"
)

var epochCmd = &cobra.Command{
	Use:   "epoch",
	Short: "Inspect and verify sealed epochs",
}

var epochListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived epochs",
	RunE: func(cmd *cobra.Command, args []string) error {
		archive, err := proof.OpenArchive(cfg.Proof.ArchivePath)
		if err != nil {
			return err
		}
		defer archive.Close()

		epochs, err := archive.ListEpochs()
		if err != nil {
			return err
		}
		if len(epochs) == 0 {
			fmt.Println("✅ No epochs archived yet")
			return nil
		}
		for _, epoch := range epochs {
			fmt.Printf("%s  %s  %d artifact(s)  root %s\n",
				epoch.EpochID, epoch.Timestamp.Format(time.RFC3339),
				len(epoch.Artifacts), epoch.MerkleRoot[:16])
		}
		return nil
	},
}

var epochShowCmd = &cobra.Command{
	Use:   "show <epoch-id>",
	Short: "Show one archived epoch",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		archive, err := proof.OpenArchive(cfg.Proof.ArchivePath)
		if err != nil {
			return err
		}
		defer archive.Close()

		epoch, err := archive.GetEpoch(args[0])
		if err != nil {
			return err
		}
		ref, err := archive.GetRef(args[0])
		if err != nil {
			return err
		}
		formatter().EpochSummary(epoch, ref)
		for _, a := range epoch.Artifacts {
			fmt.Printf("  %-9s %s  %s\n", a.EventType, a.ID, a.Hash[:16])
		}
		return nil
	},
}

var epochVerifyCmd = &cobra.Command{
	Use:   "verify <epoch-id> <artifact-id>",
	Short: "Verify an artifact's inclusion proof against its epoch",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		archive, err := proof.OpenArchive(cfg.Proof.ArchivePath)
		if err != nil {
			return err
		}
		defer archive.Close()

		epoch, err := archive.GetEpoch(args[0])
		if err != nil {
			return err
		}

		for _, artifact := range epoch.Artifacts {
			if artifact.ID != args[1] {
				continue
			}
			proofPath := proof.GenerateMerkleProof(artifact, epoch)
			if proofPath == nil {
				return fmt.Errorf("no inclusion proof for %s in %s", args[1], args[0])
			}
			if proof.VerifyArtifactInEpoch(artifact, epoch, proofPath) {
				fmt.Printf("✅ %s verified in %s (root %s)\n", args[1], epoch.EpochID, epoch.MerkleRoot[:16])
				return nil
			}
			return fmt.Errorf("verification FAILED for %s in %s", args[1], args[0])
		}
		return fmt.Errorf("artifact %s not found in epoch %s", args[1], args[0])
	},
}

func init() {
	epochCmd.AddCommand(epochListCmd)
	epochCmd.AddCommand(epochShowCmd)
	epochCmd.AddCommand(epochVerifyCmd)
}
