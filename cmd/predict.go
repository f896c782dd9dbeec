package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"slopefs/cli"
	"slopefs/ml"

	"github.com/spf13/cobra"
)

var (
	predictLang        string
	predictFeatures    string
	predictMaxAttempts int
)

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Predict the factor of safety interactively",
	Long: `Prompts for c, l, gamma, h, u, phi and beta, then prints the predicted
factor of safety and its classification. Unlike serve, a missing model or
scaler is fatal here.`,
	Example: `  slopefs predict --lang vi
  slopefs predict --features 10,40,50,60,30,10,35`,
	RunE: func(cmd *cobra.Command, args []string) error {
		baseDir := filepath.Dir(resolveConfigPath(cmd))
		predictor, err := ml.LoadPredictor(artifactConfig(cfg, baseDir), ml.WithLogger(logger))
		if err != nil {
			return fmt.Errorf("cannot load artifacts: %w", err)
		}

		lang := predictLang
		if lang == "" {
			lang = os.Getenv("LANG")
		}
		prompter := cli.NewPrompter(cmd.InOrStdin(), cmd.OutOrStdout(), lang)
		prompter.MaxAttempts = predictMaxAttempts

		var fv ml.FeatureVector
		if predictFeatures != "" {
			fv, err = cli.ParseFeatureList(predictFeatures)
		} else {
			fv, err = prompter.ReadFeatures()
		}
		if errors.Is(err, io.EOF) {
			return errors.New("input ended before all parameters were entered")
		}
		if err != nil {
			return err
		}

		res, err := predictor.Evaluate(cmd.Context(), fv)
		if err != nil {
			return err
		}
		prompter.PrintResult(res)
		return nil
	},
}

func init() {
	predictCmd.Flags().StringVar(&predictLang, "lang", "", "Prompt language: en or vi (defaults to $LANG)")
	predictCmd.Flags().StringVar(&predictFeatures, "features", "", "Comma-separated c,l,gamma,h,u,phi,beta; skips the prompt")
	predictCmd.Flags().IntVar(&predictMaxAttempts, "max-attempts", 0, "Give up after this many invalid entries (0 = never)")
}
