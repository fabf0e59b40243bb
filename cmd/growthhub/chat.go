package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/xaenox/growth-hub/internal/chat"
	"github.com/xaenox/growth-hub/internal/session"
)

func chatCmd() *cobra.Command {
	var sessionID string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the coach in the terminal",
		Long: `Start an interactive coaching session in the terminal.

Type a message and press enter. Lines starting with / are commands:
  /new [nomemory]  save this conversation and start fresh
  /history         list saved conversations
  /load <n>        continue a saved conversation
  /summary         show long-term memory
  /usage           show token usage
  /ok              dismiss the crisis warning
  /quit            leave`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setupApp()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a.serveMetrics(ctx)

			s := a.sessions.Get(sessionID, bellNotifier{w: os.Stdout})
			return runREPL(ctx, os.Stdin, os.Stdout, s)
		},
	}

	cmd.Flags().StringVarP(&sessionID, "session", "s", "terminal", "session key for conversation history")
	return cmd
}

// bellNotifier rings the terminal bell when a reply arrives.
type bellNotifier struct {
	w io.Writer
}

func (n bellNotifier) PlayTone(kind chat.ToneKind) {
	if kind == chat.ToneReceive {
		fmt.Fprint(n.w, "\a")
	}
}

func runREPL(ctx context.Context, in io.Reader, out io.Writer, s *session.Session) error {
	fmt.Fprintln(out, "Growth Hub")
	for _, d := range chat.Disclaimers() {
		fmt.Fprintf(out, "\n%s\n", d)
	}
	fmt.Fprintln(out, "\nType /quit to leave.")

	scanner := bufio.NewScanner(in)
	for {
		if s.Chat.CrisisWarning() {
			fmt.Fprintln(out, "\n[!] If you are in danger call 988 or 911. Type /ok to dismiss.")
		}
		fmt.Fprint(out, "\nyou> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			if quit := runCommand(ctx, out, s, line); quit {
				return nil
			}
			continue
		}

		res, err := s.Chat.Send(ctx, line)
		if res != nil && res.Reply != nil {
			fmt.Fprintf(out, "\ncoach> %s\n", res.Reply.Content)
		}
		switch {
		case err == nil:
		case errors.Is(err, chat.ErrConfig):
			fmt.Fprintf(out, "\n%s Set provider.name and provider.api_key in config.yaml or export GROQ_API_KEY, OPENROUTER_API_KEY or OPENAI_API_KEY.\n", res.Notice)
		case res != nil && res.Notice != "":
			fmt.Fprintf(out, "\n[!] %s\n", res.Notice)
		default:
			fmt.Fprintf(out, "\n[!] %v\n", err)
		}

		if ctx.Err() != nil {
			return nil
		}
	}
}

// runCommand handles one slash command and reports whether to quit.
func runCommand(ctx context.Context, out io.Writer, s *session.Session, line string) bool {
	name, arg, _ := strings.Cut(strings.TrimPrefix(line, "/"), " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case "quit", "exit":
		return true
	case "new":
		record := s.Archive(arg != "nomemory")
		if record == nil {
			fmt.Fprintln(out, "Nothing to save yet.")
			return false
		}
		fmt.Fprintf(out, "Saved %q.\n", record.Title)
	case "history":
		records := s.Store.Conversations()
		if len(records) == 0 {
			fmt.Fprintln(out, "No saved conversations.")
			return false
		}
		for i, r := range records {
			memory := "memory"
			if !r.IncludedInMemory {
				memory = "no memory"
			}
			fmt.Fprintf(out, "%d. %s (%s, %s)\n", i+1, r.Title, r.CreatedAt.Format("Jan 2 15:04"), memory)
		}
	case "load":
		records := s.Store.Conversations()
		n, err := strconv.Atoi(arg)
		if err != nil || n < 1 || n > len(records) {
			fmt.Fprintln(out, "Usage: /load <n> (see /history)")
			return false
		}
		if err := s.Store.LoadConversation(records[n-1].ID); err != nil {
			fmt.Fprintf(out, "Could not load: %v\n", err)
			return false
		}
		for _, m := range s.Store.Messages() {
			fmt.Fprintf(out, "%s> %s\n", speaker(string(m.Role)), m.Content)
		}
	case "summary":
		if lt := s.Store.LongTermSummary(); lt != "" {
			fmt.Fprintln(out, lt)
		} else {
			fmt.Fprintln(out, "No long-term memory yet.")
		}
	case "usage":
		u := s.Usage.Summary(ctx)
		fmt.Fprintf(out, "Used %d of %d tokens, %d remaining (about %d words).\n",
			u.TokensUsed, u.TokensLimit, u.TokensRemaining, u.WordsRemaining)
	case "ok":
		s.Chat.DismissCrisisWarning()
		fmt.Fprintln(out, "Warning dismissed.")
	default:
		fmt.Fprintf(out, "Unknown command /%s\n", name)
	}
	return false
}

func speaker(role string) string {
	if role == "assistant" {
		return "coach"
	}
	return "you"
}
