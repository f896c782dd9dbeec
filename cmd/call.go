package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"slopefs/cli"
	"slopefs/client"

	"github.com/spf13/cobra"
)

var (
	callURL      string
	callFeatures string
	callTimeout  time.Duration
	callPing     bool
)

var callCmd = &cobra.Command{
	Use:   "call",
	Short: "Send one prediction request to a running service",
	RunE: func(cmd *cobra.Command, args []string) error {
		fv, err := cli.ParseFeatureList(callFeatures)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		c := client.New(callURL, callTimeout)
		if callPing {
			msg, err := c.Ping(cmd.Context())
			if err != nil {
				return fmt.Errorf("service at %s is not reachable: %w", callURL, err)
			}
			fmt.Fprintf(out, "🟢 %s\n", msg)
		}

		_, resp, err := c.Predict(cmd.Context(), fv)
		if resp != nil {
			fmt.Fprintf(out, "🔍 API Response Status Code: %d\n", resp.StatusCode)
			body, _ := json.MarshalIndent(resp.Body, "", "  ")
			fmt.Fprintf(out, "📤 API Response JSON:\n%s\n", body)
		}
		return err
	},
}

func init() {
	callCmd.Flags().StringVar(&callURL, "url", "http://localhost:8000", "Base URL of the prediction service")
	callCmd.Flags().StringVar(&callFeatures, "features", "10,40,50,60,30,10,35", "Comma-separated c,l,gamma,h,u,phi,beta")
	callCmd.Flags().DurationVar(&callTimeout, "timeout", 30*time.Second, "Request timeout")
	callCmd.Flags().BoolVar(&callPing, "ping", true, "Check GET / before posting")
}
