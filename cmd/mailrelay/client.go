package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/shineum/mailrelay/internal/attach"
	"github.com/shineum/mailrelay/internal/compose"
	"github.com/shineum/mailrelay/internal/config"
	"github.com/shineum/mailrelay/internal/credential"
	"github.com/shineum/mailrelay/internal/email"
	"github.com/shineum/mailrelay/internal/gateway"
	"github.com/shineum/mailrelay/internal/inbox"
	"github.com/shineum/mailrelay/internal/logger"
	"github.com/shineum/mailrelay/internal/notify"
	"github.com/shineum/mailrelay/internal/parser"
	"github.com/shineum/mailrelay/internal/provider/stdout"
	"github.com/shineum/mailrelay/internal/relay"
	"github.com/shineum/mailrelay/internal/tui"
)

type sendFlags struct {
	to, cc, bcc, from string
	subject, message  string
	attachments       []string
	eml               string
	relayURL          string
	page              bool
	dryRun            bool
}

func newSendCmd() *cobra.Command {
	var f sendFlags

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send one message through the relay",
		Example: `  mailrelay send --to a@b.com --subject Hi --message "Hello"
  mailrelay send --to a@b.com --subject Report --message "See attached" --attach report.pdf
  mailrelay send --to a@b.com --subject Hi --message "Hello" --dry-run
  mailrelay send --eml saved.eml --to someone-else@b.com`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if f.relayURL != "" {
				cfg.Client.RelayURL = f.relayURL
			}
			return send(cmd.Context(), cfg, newLogger(cfg), f)
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.to, "to", "", "recipients, comma separated")
	fl.StringVar(&f.cc, "cc", "", "carbon copy recipients")
	fl.StringVar(&f.bcc, "bcc", "", "blind carbon copy recipients")
	fl.StringVar(&f.from, "from", "", "sender address (page composer only)")
	fl.StringVar(&f.subject, "subject", "", "message subject")
	fl.StringVarP(&f.message, "message", "m", "", "message body")
	fl.StringSliceVarP(&f.attachments, "attach", "a", nil, "file to attach, repeatable")
	fl.StringVar(&f.eml, "eml", "", "start from a saved RFC 5322 message; other flags override its fields")
	fl.StringVar(&f.relayURL, "url", "", "relay endpoint, overrides RELAY_URL")
	fl.BoolVar(&f.page, "page", false, "send as the page composer: carries --from, drops cc, bcc and attachments")
	fl.BoolVar(&f.dryRun, "dry-run", false, "print the message as it would be delivered instead of posting it")

	return cmd
}

func send(ctx context.Context, cfg *config.Config, log *logger.Logger, f sendFlags) error {
	gw, err := newGateway(cfg, log)
	if err != nil {
		return err
	}

	var sender compose.Sender = gw
	if f.dryRun {
		sender = dryRunSender{gw: gw, defaultFrom: cfg.Relay.DefaultFrom, out: stdout.NewWithWriter(os.Stdout, stdout.FormatEML)}
	}

	variant := compose.VariantModal
	if f.page {
		variant = compose.VariantPage
	}

	form := compose.New(compose.Config{
		Variant: variant,
		Sender:  sender,
		Sink:    notify.NewConsole(os.Stderr),
		Logger:  log,
	})
	form.Open()
	if f.eml != "" {
		if err := loadEML(form, f.eml); err != nil {
			return err
		}
	}
	setIfGiven(form.SetTo, f.to)
	setIfGiven(form.SetCc, f.cc)
	setIfGiven(form.SetBcc, f.bcc)
	setIfGiven(form.SetFrom, f.from)
	setIfGiven(form.SetSubject, f.subject)
	setIfGiven(form.SetBody, f.message)

	files := make([]attach.File, 0, len(f.attachments))
	for _, p := range f.attachments {
		file, err := attach.OpenDiskFile(p)
		if err != nil {
			return err
		}
		files = append(files, file)
	}
	if err := form.AddFiles(files...); err != nil {
		return err
	}

	res, err := form.Submit(ctx)
	if err != nil {
		return err
	}
	if !f.dryRun {
		fmt.Println(res.ID)
	}
	return nil
}

func setIfGiven(set func(string), v string) {
	if v != "" {
		set(v)
	}
}

// loadEML fills form from a saved message. The plain text body is preferred
// over HTML; attachments are carried in memory.
func loadEML(form *compose.Form, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read message: %w", err)
	}
	msg, err := parser.Parse(raw)
	if err != nil {
		return err
	}

	form.SetTo(strings.Join(msg.To, ", "))
	form.SetCc(strings.Join(msg.Cc, ", "))
	form.SetBcc(strings.Join(msg.Bcc, ", "))
	form.SetFrom(msg.From)
	form.SetSubject(msg.Subject)
	body := msg.TextBody
	if body == "" {
		body = msg.HtmlBody
	}
	form.SetBody(body)

	files := make([]attach.File, 0, len(msg.Attachments))
	for _, a := range msg.Attachments {
		files = append(files, attach.NewMemFile(a.Filename, a.Content))
	}
	return form.AddFiles(files...)
}

// dryRunSender resolves a draft exactly as the relay would and prints it.
type dryRunSender struct {
	gw          *gateway.Client
	defaultFrom string
	out         *stdout.Provider
}

func (d dryRunSender) Send(ctx context.Context, draft compose.Draft) (*email.SendResult, error) {
	req, err := d.gw.BuildRequest(ctx, draft)
	if err != nil {
		return nil, err
	}
	msg, err := relay.BuildEmail(req, d.defaultFrom)
	if err != nil {
		return nil, err
	}
	return d.out.Send(ctx, msg)
}

func newGateway(cfg *config.Config, log *logger.Logger) (*gateway.Client, error) {
	apiKey := cfg.Client.APIKey
	if apiKey == "" {
		if store, err := credential.Open(); err != nil {
			log.Debug().Err(err).Msg("keyring unavailable")
		} else if apiKey, err = store.ResolveAPIKey(""); err != nil {
			log.Debug().Err(err).Msg("no relay key in keyring")
		}
	}

	return gateway.New(gateway.Config{
		URL:        cfg.Client.RelayURL,
		APIKey:     apiKey,
		ClientInfo: cfg.Client.ClientInfo,
		Timeout:    cfg.Client.Timeout,
		Limits: attach.Limits{
			MaxFileBytes: cfg.Client.MaxAttachmentBytes,
			MaxFiles:     cfg.Client.MaxAttachments,
		},
		Logger: log,
	})
}

func newComposeCmd() *cobra.Command {
	var page bool

	cmd := &cobra.Command{
		Use:   "compose",
		Short: "Open the interactive composer",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			// The TUI owns the terminal; keep logs quiet unless asked for.
			log := logger.NewWithWriter(os.Stderr, "error", "console")
			if cfg.Logging.Level == "debug" {
				log = logger.NewWithWriter(os.Stderr, "debug", "console")
			}

			gw, err := newGateway(cfg, log)
			if err != nil {
				return err
			}

			variant := compose.VariantModal
			if page {
				variant = compose.VariantPage
			}
			notes := &notify.Recorder{}
			form := compose.New(compose.Config{Variant: variant, Sender: gw, Sink: notes, Logger: log})

			final, err := tea.NewProgram(tui.NewCompose(cmd.Context(), form, notes)).Run()
			if err != nil {
				return err
			}
			if m, ok := final.(tui.ComposeModel); ok {
				if n, ok := m.Status(); ok {
					notify.NewConsole(os.Stderr).Notify(n)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&page, "page", false, "use the full-page composer with a From field")
	return cmd
}

func newInboxCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inbox",
		Short: "Browse the sample inbox",
		RunE: func(cmd *cobra.Command, args []string) error {
			m := tui.NewInbox(cmd.Context(), inbox.NewMockSource())
			_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
			return err
		},
	}
}
