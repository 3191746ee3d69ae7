package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/teemow/inboxassist/internal/rewrite"
)

func newRewriteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rewrite",
		Short: "Rewrite text with the configured chat model",
	}
	cmd.AddCommand(newPolishCmd())
	cmd.AddCommand(newToneCmd())
	return cmd
}

func newPolishCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "polish [text]",
		Short: "Fix grammar and wording without changing the meaning",
		Long:  "Polish the given text. Without an argument the text is read from stdin.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := rewriteInput(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			return withRewriter(cmd, func(r rewrite.Rewriter) (string, error) {
				return r.Polish(cmd.Context(), text)
			})
		},
	}
}

func newToneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tone <tone> [text]",
		Short: "Rewrite text in another tone",
		Long: `Rewrite the given text in the ` + string(rewrite.ToneProfessional) + ` or ` + string(rewrite.ToneFriendly) + ` tone.
Without a text argument the text is read from stdin.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			tone, err := rewrite.ParseTone(args[0])
			if err != nil {
				return err
			}
			text, err := rewriteInput(cmd.InOrStdin(), args[1:])
			if err != nil {
				return err
			}
			return withRewriter(cmd, func(r rewrite.Rewriter) (string, error) {
				return r.ChangeTone(cmd.Context(), text, tone)
			})
		},
	}
}

// withRewriter builds only the rewriter; rewriting needs no Gmail access.
func withRewriter(cmd *cobra.Command, fn func(rewrite.Rewriter) (string, error)) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	r, err := newRewriter(cfg.Rewrite, logger, nil)
	if err != nil {
		return err
	}
	out, err := fn(r)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
	return err
}

func rewriteInput(in io.Reader, args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	data, err := io.ReadAll(in)
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", errors.New("no text given")
	}
	return text, nil
}
