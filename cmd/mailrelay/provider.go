package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/shineum/mailrelay/internal/config"
	"github.com/shineum/mailrelay/internal/logger"
	"github.com/shineum/mailrelay/internal/provider"
	"github.com/shineum/mailrelay/internal/provider/graph"
	"github.com/shineum/mailrelay/internal/provider/resend"
	"github.com/shineum/mailrelay/internal/provider/ses"
	"github.com/shineum/mailrelay/internal/provider/stdout"
)

var errUnknownProvider = errors.New("unknown provider")

// selectProvider chooses the email delivery backend based on configuration.
// An explicit PROVIDER wins. Otherwise the first configured backend is used
// in the order resend, graph, ses, with stdout as the last resort.
func selectProvider(ctx context.Context, cfg *config.Config, log *logger.Logger) (provider.Provider, error) {
	switch cfg.Provider {
	case "resend":
		if !cfg.ResendConfigured() {
			return nil, errors.New("resend provider selected but RESEND_API_KEY is required")
		}
		return newResend(cfg, log)

	case "ses":
		if !cfg.SESConfigured() {
			return nil, errors.New("SES provider selected but SES_REGION and SES_SENDER are required")
		}
		return newSES(ctx, cfg, log)

	case "graph":
		if !cfg.GraphConfigured() {
			return nil, errors.New("graph provider selected but GRAPH_TENANT_ID, GRAPH_CLIENT_ID, GRAPH_CLIENT_SECRET, and GRAPH_SENDER are required")
		}
		return newGraph(cfg, log), nil

	case "stdout":
		log.Info().Msg("using stdout provider")
		return stdout.New(), nil

	case "":
		switch {
		case cfg.ResendConfigured():
			return newResend(cfg, log)
		case cfg.GraphConfigured():
			return newGraph(cfg, log), nil
		case cfg.SESConfigured():
			return newSES(ctx, cfg, log)
		}
		log.Info().Msg("no provider configured, using stdout provider")
		return stdout.New(), nil

	default:
		return nil, fmt.Errorf("%w: %q", errUnknownProvider, cfg.Provider)
	}
}

func newResend(cfg *config.Config, log *logger.Logger) (provider.Provider, error) {
	log.Info().Str("base_url", cfg.Resend.BaseURL).Msg("using Resend provider")
	plog := log.WithComponent("resend")
	p, err := resend.New(resend.Config{
		APIKey:  cfg.Resend.APIKey,
		BaseURL: cfg.Resend.BaseURL,
		Logger:  &plog.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Resend provider: %w", err)
	}
	return p, nil
}

func newSES(ctx context.Context, cfg *config.Config, log *logger.Logger) (provider.Provider, error) {
	log.Info().
		Str("region", cfg.SES.Region).
		Str("sender", cfg.SES.Sender).
		Msg("using AWS SES provider")
	plog := log.WithComponent("ses")
	p, err := ses.New(ctx, ses.SESProviderConfig{
		Region:          cfg.SES.Region,
		AccessKeyID:     cfg.SES.AccessKeyID,
		SecretAccessKey: cfg.SES.SecretAccessKey,
		Sender:          cfg.SES.Sender,
		Logger:          &plog.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create SES provider: %w", err)
	}
	return p, nil
}

func newGraph(cfg *config.Config, log *logger.Logger) provider.Provider {
	log.Info().Str("sender", cfg.Graph.Sender).Msg("using Microsoft Graph provider")
	plog := log.WithComponent("graph")
	return graph.New(graph.GraphProviderConfig{
		TenantID:     cfg.Graph.TenantID,
		ClientID:     cfg.Graph.ClientID,
		ClientSecret: cfg.Graph.ClientSecret,
		Sender:       cfg.Graph.Sender,
		Logger:       &plog.Logger,
	})
}
