package launcher

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dbarrero/terraria-launcher/internal/config"
	"github.com/dbarrero/terraria-launcher/internal/logger"
)

// errInputClosed is returned when stdin ends mid-prompt.
var errInputClosed = errors.New("input closed during prompt")

// chooseTunnel asks the operator to pick a tunnel provider, repeating until
// a valid answer arrives.
func chooseTunnel(scanner *bufio.Scanner, out io.Writer) (string, error) {
	for {
		_, _ = fmt.Fprint(out, "Select tunnel [1] Ngrok [2] Playit: ")

		answer, err := readLine(scanner)
		if err != nil {
			return "", err
		}

		switch answer {
		case "1":
			return TunnelNgrok, nil
		case "2":
			return TunnelPlayit, nil
		default:
			_, _ = fmt.Fprintln(out, "Invalid option, try again")
		}
	}
}

// ensureNgrokCredentials prompts for a missing token (required) and a
// missing webhook (optional), validating and persisting immediately after
// each mutation.
func ensureNgrokCredentials(ctx context.Context, scanner *bufio.Scanner, opts *Options, creds *config.Credentials) error {
	if creds.TunnelToken == "" {
		_, _ = fmt.Fprint(opts.Output, "Enter your ngrok token: ")

		token, err := readLine(scanner)
		if err != nil {
			return err
		}

		creds.TunnelToken = token
		if err = config.SaveCredentials(opts.CredentialsPath, creds); err != nil {
			return fmt.Errorf("persist token: %w", err)
		}

		logger.Info(ctx, "Credentials saved")
	}

	if creds.NotificationWebhook == "" {
		_, _ = fmt.Fprint(opts.Output, "Configure Discord webhook? (y/n): ")

		answer, err := readLine(scanner)
		if err != nil {
			return err
		}

		if !strings.HasPrefix(strings.ToLower(answer), "y") {
			return nil
		}

		_, _ = fmt.Fprint(opts.Output, "Enter webhook URL: ")

		webhook, err := readLine(scanner)
		if err != nil {
			return err
		}

		creds.NotificationWebhook = webhook
		if err = config.SaveCredentials(opts.CredentialsPath, creds); err != nil {
			return fmt.Errorf("persist webhook: %w", err)
		}

		logger.Info(ctx, "Credentials saved")
	}

	return nil
}

// readLine returns the next trimmed input line.
func readLine(scanner *bufio.Scanner) (string, error) {
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", err
		}

		return "", errInputClosed
	}

	return strings.TrimSpace(scanner.Text()), nil
}
