package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/fraudlens/internal/classifier"
	"github.com/KaramelBytes/fraudlens/internal/utils"
)

var (
	inspectTexts []string
	inspectJSON  bool
)

var modelCmd = &cobra.Command{
	Use:   "model",
	Short: "Inspect the configured fraud model",
	Example: `  fraudlens model backends
  fraudlens model inspect
  fraudlens model inspect --text "Earn $5000 a week from home" --json`,
}

var modelBackendsCmd = &cobra.Command{
	Use:   "backends",
	Short: "List available model backends",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, b := range classifier.Backends() {
			fmt.Fprintln(cmd.OutOrStdout(), b)
		}
		return nil
	},
}

type inspectResult struct {
	Model  *classifier.Info `json:"model,omitempty"`
	Scores []textScore      `json:"scores,omitempty"`
}

type textScore struct {
	Text             string  `json:"text"`
	Fraudulent       int     `json:"fraudulent"`
	FraudProbability float64 `json:"fraud_probability"`
}

var modelInspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Load the model, print its metadata and optionally score sample texts",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		ctx := cmdContext(cmd)
		holder, err := loadHolder(ctx, c)
		if err != nil {
			return err
		}
		clf, err := holder.Classifier()
		if err != nil {
			return err
		}

		var res inspectResult
		if d, ok := clf.(classifier.Describer); ok {
			info := d.Describe()
			res.Model = &info
		}
		if len(inspectTexts) > 0 {
			scored, err := classifier.Score(ctx, clf, inspectTexts)
			if err != nil {
				return err
			}
			for i, t := range inspectTexts {
				res.Scores = append(res.Scores, textScore{Text: t, Fraudulent: scored.Labels[i], FraudProbability: scored.Probabilities[i]})
			}
		}

		out := cmd.OutOrStdout()
		if inspectJSON {
			b, err := utils.PrettyJSON(res)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(b))
			return nil
		}
		fmt.Fprintln(out, headerStyle.Render("Model"))
		fmt.Fprintf(out, "backend: %s\n", holder.Backend())
		if res.Model != nil {
			if res.Model.Name != "" {
				fmt.Fprintf(out, "name: %s\n", res.Model.Name)
			}
			keys := make([]string, 0, len(res.Model.Details))
			for k := range res.Model.Details {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintf(out, "%s: %s\n", k, res.Model.Details[k])
			}
		}
		for _, s := range res.Scores {
			verdict := "genuine"
			if s.Fraudulent == classifier.LabelFraudulent {
				verdict = "FRAUD"
			}
			fmt.Fprintf(out, "%-7s %.4f  %s\n", verdict, s.FraudProbability, s.Text)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(modelCmd)
	modelCmd.AddCommand(modelBackendsCmd)
	modelCmd.AddCommand(modelInspectCmd)
	modelInspectCmd.Flags().StringArrayVar(&inspectTexts, "text", nil, "listing description to score (repeatable)")
	modelInspectCmd.Flags().BoolVar(&inspectJSON, "json", false, "print JSON")
}
