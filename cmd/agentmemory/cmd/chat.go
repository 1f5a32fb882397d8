package cmd

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/habiliai/agentmemory"
	"github.com/spf13/cobra"
)

func newChatCmd(flags *rootFlags) *cobra.Command {
	var (
		userID  string
		verbose bool
	)
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the memory engine from the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			engine, _, err := openEngine(ctx, flags)
			if err != nil {
				return err
			}
			defer closeEngine(engine)

			conversationID := uuid.NewString()
			out := cmd.OutOrStdout()
			scanner := bufio.NewScanner(cmd.InOrStdin())

			fmt.Fprintf(out, "Chatting as %q. Type /quit to exit.\n", userID)
			for {
				fmt.Fprint(out, "> ")
				if !scanner.Scan() {
					return scanner.Err()
				}
				line := strings.TrimSpace(scanner.Text())
				switch line {
				case "":
					continue
				case "/quit", "/exit":
					return nil
				}

				resp := engine.ProcessAndChat(ctx, userID, line, agentmemory.WithConversationID(conversationID))
				fmt.Fprintln(out, resp.Response)
				if verbose {
					fmt.Fprintf(out, "  [%s %s %.2f]\n", resp.Intent, resp.Outcome, resp.Confidence)
				}
				if ctx.Err() != nil {
					return nil
				}
			}
		},
	}

	cmd.Flags().StringVarP(&userID, "user", "u", "local", "User id to chat as")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Print intent and outcome after each reply")

	return cmd
}
