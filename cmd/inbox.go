package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/teemow/inboxassist/internal/gmail"
	"github.com/teemow/inboxassist/internal/inbox"
)

func newInboxCmd() *cobra.Command {
	var (
		pageSize   int
		pageToken  string
		filter     string
		query      string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "inbox",
		Short: "List one page of the Gmail inbox",
		Long: `List one page of the Gmail inbox, newest first.

The filter and query apply to the fetched page only. Pass the printed
next page token to --page-token to continue.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := inbox.ParseFilterMode(filter)
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), appOptions{Interactive: true}, func(a *app) error {
				if !cmd.Flags().Changed("page-size") {
					pageSize = a.cfg.Inbox.PageSize
				}
				page, err := a.inbox.List(cmd.Context(), inbox.ListRequest{
					PageSize:  pageSize,
					PageToken: pageToken,
					Filter:    inbox.Filter{Mode: mode, Query: query},
				})
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSONOutput(cmd.OutOrStdout(), page)
				}
				return printPage(cmd.OutOrStdout(), page)
			})
		},
	}

	cmd.Flags().IntVarP(&pageSize, "page-size", "n", gmail.DefaultPageSize, "Number of messages to fetch")
	cmd.Flags().StringVar(&pageToken, "page-token", "", "Continuation token from a previous page")
	cmd.Flags().StringVarP(&filter, "filter", "f", string(inbox.FilterAll), "Filter: all, important or unread")
	cmd.Flags().StringVarP(&query, "query", "q", "", "Case-insensitive search over sender, subject and snippet")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the page as JSON")

	return cmd
}

func newShowCmd() *cobra.Command {
	var snippetOnly bool

	cmd := &cobra.Command{
		Use:   "show <message-id>",
		Short: "Print the renderable body of a message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), appOptions{Interactive: true}, func(a *app) error {
				content, err := a.inbox.Message(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				out := content.Renderable()
				if snippetOnly {
					out = content.Snippet
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
				return err
			})
		},
	}

	cmd.Flags().BoolVar(&snippetOnly, "snippet", false, "Print the snippet instead of the body")

	return cmd
}

// printPage renders a page as a table followed by the continuation token and
// any messages that could not be fetched.
func printPage(w io.Writer, page *gmail.Page) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tFLAGS\tFROM\tSUBJECT")
	for _, m := range page.Messages {
		from := m.From.Name
		if from == "" {
			from = m.From.Email
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", m.ID, m.Date, flags(m), from, m.Subject)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if page.NextPageToken != "" {
		fmt.Fprintf(w, "\nNext page: --page-token %s\n", page.NextPageToken)
	}
	if len(page.Dropped) > 0 {
		fmt.Fprintf(w, "\n%d message(s) could not be fetched:\n", len(page.Dropped))
		for _, d := range page.Dropped {
			fmt.Fprintf(w, "  %s: %s\n", d.ID, d.Reason)
		}
	}
	return nil
}

// flags is a compact marker column: U unread, S starred, ! important.
func flags(m gmail.DisplayMessage) string {
	b := []byte("---")
	if !m.IsRead {
		b[0] = 'U'
	}
	if m.IsStarred {
		b[1] = 'S'
	}
	if m.IsImportant || m.AIScore > inbox.ImportantScore {
		b[2] = '!'
	}
	return string(b)
}

func writeJSONOutput(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
