package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"belssb/internal/browser"
)

// discoverCmd dumps the page and widget-frame form structure as JSON. It is
// the one-time inspection tool for refreshing the field-name contract after
// belssb.ru changes its markup.
var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Dump form structure (inputs, buttons, iframes, shadow hosts) as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		bcfg := browser.DefaultConfig()
		bcfg.Headless = !headed
		// Discovery does not submit anything, a shorter settle is enough.
		bcfg.SettleDelay = 5 * time.Second

		ctx := cmd.Context()
		session, err := browser.NewSession(ctx, bcfg, logger)
		if err != nil {
			return err
		}
		defer func() {
			if err := session.Close(); err != nil {
				logger.Warn("browser close failed", zap.Error(err))
			}
		}()

		if err := session.Open(ctx); err != nil {
			return err
		}
		reports, err := session.Discover(ctx)
		if err != nil {
			return err
		}

		data, err := json.MarshalIndent(reports, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	},
}
