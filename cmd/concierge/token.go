package main

import (
	"fmt"
	"time"

	"github.com/go-extras/cobraflags"
	"github.com/spf13/cobra"
	"github.com/tendant/stay-concierge/internal/config"
	"github.com/tendant/stay-concierge/internal/http/middleware"
)

const (
	channelFlag = "channel"
	ttlFlag     = "ttl"
)

var tokenFlags = map[string]cobraflags.Flag{
	channelFlag: &cobraflags.StringFlag{
		Name:  channelFlag,
		Value: "telegram",
		Usage: "Channel name the adapter is issued for",
	},
	ttlFlag: &cobraflags.StringFlag{
		Name:  ttlFlag,
		Value: "0",
		Usage: "Token lifetime, e.g. 720h. 0 issues a token without expiry",
	},
}

func newTokenCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for a channel adapter",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ttl, err := time.ParseDuration(tokenFlags[ttlFlag].GetString())
			if err != nil || ttl < 0 {
				return fmt.Errorf("--%s must be a non-negative duration", ttlFlag)
			}
			channel := tokenFlags[channelFlag].GetString()
			if channel == "" {
				return fmt.Errorf("--%s is required", channelFlag)
			}

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			token, err := middleware.NewWebhookAuth([]byte(cfg.WebhookSecret), cfg.WebhookIssuer).Issue(channel, ttl)
			if err != nil {
				return fmt.Errorf("failed to sign token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cobraflags.RegisterMap(cmd, tokenFlags)
	return cmd
}
