package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/ashureev/jobpt/internal/assistant"
	"github.com/spf13/cobra"
)

func newChatCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "chat [message]",
		Short: "Talk to the assistant",
		Long: `Send a message to the assistant and print the reply.

Without a message an interactive session starts. Inside it:
  /new    start a new conversation
  /reset  delete the current conversation and start over
  /quit   leave

Examples:
  jobpt chat "신입 백엔드 개발자 이력서 팁 알려줘"
  jobpt chat`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := rt.open(cmd.Context(), true)
			if err != nil {
				return err
			}
			if len(args) > 0 {
				return sendOne(cmd, a.Assistant, strings.Join(args, " "))
			}
			return repl(cmd, a.Assistant)
		},
	}
}

func sendOne(cmd *cobra.Command, o *assistant.Orchestrator, text string) error {
	reply, err := o.SendMessage(cmd.Context(), text)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), reply)
	return nil
}

func repl(cmd *cobra.Command, o *assistant.Orchestrator) error {
	out := cmd.OutOrStdout()
	if o.Status() == assistant.StatusDisconnected {
		fmt.Fprintln(out, "(offline: replies are local notices until the service is reachable)")
	}
	fmt.Fprintf(out, "Session %s. Type /quit to exit.\n", o.SessionID())

	scanner := bufio.NewScanner(cmd.InOrStdin())
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/new":
			fmt.Fprintf(out, "Started session %s\n", o.StartNewSession())
			continue
		case "/reset":
			id, err := o.ResetSession(cmd.Context())
			if err != nil {
				return fmt.Errorf("reset session: %w", err)
			}
			fmt.Fprintf(out, "Started session %s\n", id)
			continue
		}

		reply, err := o.SendMessage(cmd.Context(), line)
		if err != nil {
			return fmt.Errorf("send message: %w", err)
		}
		fmt.Fprintln(out, reply)
	}
	fmt.Fprintln(out)
	return scanner.Err()
}
