package main

import (
	"context"
	"fmt"
	"strings"

	"helpconnect/pkg/types"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/kelseyhightower/envconfig"
)

func loadConfig() (*types.Config, error) {
	c := new(types.Config)
	if err := envconfig.Process("", c); err != nil {
		return nil, fmt.Errorf("process environment config: %w", err)
	}

	// Table names pasted into console env vars have shown up with zero-width
	// characters in them. Strip them before they reach the SDK.
	c.HelpRequestsTable = cleanTableName(c.HelpRequestsTable)
	c.OffersTable = cleanTableName(c.OffersTable)
	c.SettingsTable = cleanTableName(c.SettingsTable)

	if c.HelpRequestsTable == "" || c.OffersTable == "" || c.SettingsTable == "" {
		return nil, fmt.Errorf("set HELP_REQUESTS_TABLE_NAME, OFFERS_TABLE_NAME and NOTIF_TABLE_NAME")
	}

	return c, nil
}

func cleanTableName(name string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '\u200b', '\u200c', '\u200d', '\u2060', '\ufeff':
			return -1
		}
		return r
	}, name)

	return strings.TrimSpace(cleaned)
}

func loadAWSConfig(ctx context.Context) (aws.Config, error) {
	config, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load aws config: %w", err)
	}

	return config, nil
}
