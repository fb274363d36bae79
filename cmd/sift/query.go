package main

import (
	"encoding/json"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/siftql/sift/pkg/sift"
)

var queryCmd = &cobra.Command{
	Use:   "query <entity> [query-string]",
	Short: "Run one query and print the result",
	Long:  "Load the configured database and evaluate a single query string against an entity",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := zap.NewNop()
		cfg, store, err := loadStore(cmd.Context(), logger)
		if err != nil {
			return err
		}

		rawQuery := ""
		if len(args) > 1 {
			rawQuery = args[1]
		}

		query := sift.New(store, args[0], sift.ParseQuery(rawQuery),
			sift.WithSettings(cfg.Settings))
		env := query.Evaluate(cmd.Context())

		body, err := json.MarshalIndent(env, "", "  ")
		if err != nil {
			return err
		}

		if env.Status() {
			color.Green("✓ %s", args[0])
		} else {
			code, _ := env.Get("code")
			color.Red("✗ %s (%v)", args[0], code)
		}
		fmt.Println(string(body))
		return nil
	},
}
