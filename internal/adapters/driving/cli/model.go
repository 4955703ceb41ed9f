package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-index/internal/core/domain"
)

var (
	modelName          string
	modelDim           int
	modelNormalize     bool
	modelQueryPrefix   string
	modelPassagePrefix string
)

var modelCmd = &cobra.Command{
	Use:   "model",
	Short: "Show and switch embedding models",
	Long: `Shows the embedding model the index is built with.

A newly registered model becomes the future model while the present one
keeps serving. 'model promote' makes the future model present.`,
	RunE: runModelShow,
}

var modelShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the present and future embedding models",
	RunE:  runModelShow,
}

var modelRegisterCmd = &cobra.Command{
	Use:   "register",
	Short: "Register a new embedding model",
	RunE:  runModelRegister,
}

var modelPromoteCmd = &cobra.Command{
	Use:   "promote",
	Short: "Make the future model present",
	RunE:  runModelPromote,
}

func init() {
	f := modelRegisterCmd.Flags()
	f.StringVar(&modelName, "name", "", "model name (required)")
	f.IntVar(&modelDim, "dim", 0, "embedding dimensions (required)")
	f.BoolVar(&modelNormalize, "normalize", true, "L2-normalise embeddings")
	f.StringVar(&modelQueryPrefix, "query-prefix", "", "prefix for query texts")
	f.StringVar(&modelPassagePrefix, "passage-prefix", "", "prefix for passage texts")
	_ = modelRegisterCmd.MarkFlagRequired("name")
	_ = modelRegisterCmd.MarkFlagRequired("dim")

	modelCmd.AddCommand(modelShowCmd, modelRegisterCmd, modelPromoteCmd)
	rootCmd.AddCommand(modelCmd)
}

func runModelShow(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	svc, err := loadServices(ctx)
	if err != nil {
		return err
	}

	present, err := svc.Models.Detail(ctx)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		cmd.Println("Present model: none")
	case err != nil:
		return fmt.Errorf("load model: %w", err)
	default:
		printModel(cmd, "Present", present)
	}

	future, err := svc.Models.SecondaryDetail(ctx)
	switch {
	case errors.Is(err, domain.ErrNotFound):
	case err != nil:
		return fmt.Errorf("load model: %w", err)
	default:
		printModel(cmd, "Future", future)
	}
	return nil
}

func runModelRegister(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	svc, err := loadServices(ctx)
	if err != nil {
		return err
	}

	model := domain.EmbeddingModel{
		ModelName: modelName,
		ModelDim:  modelDim,
		Normalize: modelNormalize,
	}
	if cmd.Flags().Changed("query-prefix") {
		model.QueryPrefix = &modelQueryPrefix
	}
	if cmd.Flags().Changed("passage-prefix") {
		model.PassagePrefix = &modelPassagePrefix
	}

	detail, err := svc.Models.Register(ctx, model)
	if err != nil {
		return fmt.Errorf("register model: %w", err)
	}
	cmd.Printf("Registered %s (%d dims)\n", detail.ModelName, detail.ModelDim)
	return nil
}

func runModelPromote(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	svc, err := loadServices(ctx)
	if err != nil {
		return err
	}
	if err := svc.Models.Promote(ctx); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return errors.New("no future model to promote")
		}
		return fmt.Errorf("promote model: %w", err)
	}
	cmd.Println("Future model is now present. Re-index to rebuild embeddings.")
	return nil
}

func printModel(cmd *cobra.Command, label string, d domain.EmbeddingModelDetail) {
	cmd.Printf("%s model: %s\n", label, d.ModelName)
	cmd.Printf("  Dimensions: %d\n", d.ModelDim)
	cmd.Printf("  Normalize:  %t\n", d.Normalize)
	if d.QueryPrefix != nil {
		cmd.Printf("  Query prefix:   %q\n", *d.QueryPrefix)
	}
	if d.PassagePrefix != nil {
		cmd.Printf("  Passage prefix: %q\n", *d.PassagePrefix)
	}
	if d.CloudProviderID != nil {
		cmd.Printf("  Cloud provider: %d\n", *d.CloudProviderID)
	}
}
