package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ebbcash/ebb/internal/classify"
	"github.com/ebbcash/ebb/internal/cli"
	"github.com/ebbcash/ebb/internal/common"
)

func classifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Train and query the category suggestion model",
		Long: `The suggestion model learns from movements you have already
categorized and proposes categories for new descriptions. It only ever
suggests; nothing is categorized without you saying so.`,
	}

	cmd.AddCommand(trainClassifyCmd())
	cmd.AddCommand(predictClassifyCmd())

	return cmd
}

func trainClassifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "train",
		Short: "Train the model on the categorized history",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStore(store)

			workspace, err := currentWorkspace(ctx, store)
			if err != nil {
				return err
			}

			samples, err := store.ListTrainingSamples(ctx, workspace.ID)
			if err != nil {
				return fmt.Errorf("failed to load training samples: %w", err)
			}

			count, err := classify.NewRegistry(modelsDir()).Train(workspace.ID, samples)
			if err != nil {
				if errors.Is(err, classify.ErrInsufficientData) {
					return common.NewUserError(
						"not enough categorized movements to learn from yet; keep recording and try again", err)
				}
				return fmt.Errorf("failed to train model: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Trained the suggestion model on %d labeled movements", count)))
			return nil
		},
	}
}

func predictClassifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "predict <description>",
		Short: "Ask the model for a category suggestion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStore(store)

			workspace, err := currentWorkspace(ctx, store)
			if err != nil {
				return err
			}

			registry := classify.NewRegistry(modelsDir())
			if !registry.Trained(workspace.ID) {
				return common.NewUserError(
					"no trained model for this workspace; run 'ebb classify train' first", common.ErrModelNotTrained)
			}

			category, ok := registry.Predict(workspace.ID, args[0])
			if !ok {
				fmt.Println(cli.InfoStyle.Render("The description has no words the model recognizes."))
				return nil
			}

			fmt.Println(cli.FormatInfo(fmt.Sprintf("Suggested category: %s", category)))
			return nil
		},
	}
}
