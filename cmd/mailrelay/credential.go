package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shineum/mailrelay/internal/credential"
)

func newCredentialCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credential",
		Short: "Manage the relay API key in the system keyring",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "set [key]",
			Short: "Store the relay API key; reads stdin when no argument is given",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				value, err := keyArg(args)
				if err != nil {
					return err
				}
				store, err := credential.Open()
				if err != nil {
					return err
				}
				if err := store.Set(credential.RelayAPIKey, value); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "relay API key stored")
				return nil
			},
		},
		&cobra.Command{
			Use:   "delete",
			Short: "Remove the stored relay API key",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				store, err := credential.Open()
				if err != nil {
					return err
				}
				if err := store.Delete(credential.RelayAPIKey); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "relay API key removed")
				return nil
			},
		},
	)
	return cmd
}

func keyArg(args []string) (string, error) {
	if len(args) == 1 {
		return strings.TrimSpace(args[0]), nil
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("reading key from stdin: %w", err)
	}
	if v := strings.TrimSpace(line); v != "" {
		return v, nil
	}
	return "", errors.New("empty key")
}
