package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/deskos/deskagent/provider"
	"github.com/deskos/deskagent/registry"
	"github.com/deskos/deskagent/session"
)

var chatProvider string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive conversation",
	RunE:  runChat,
}

func init() {
	chatCmd.Flags().StringVarP(&chatProvider, "provider", "p", "", "Backend to use (claude, codex)")
	rootCmd.AddCommand(chatCmd)
}

// styles holds the terminal renderers for each event kind. All styles
// are plain when stdout is not a TTY.
type styles struct {
	prompt   lipgloss.Style
	thinking lipgloss.Style
	response lipgloss.Style
	action   lipgloss.Style
	status   lipgloss.Style
	errText  lipgloss.Style
}

func newStyles() styles {
	if !isatty.IsTerminal(os.Stdout.Fd()) {
		return styles{}
	}
	return styles{
		prompt:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		thinking: lipgloss.NewStyle().Faint(true).Italic(true),
		response: lipgloss.NewStyle(),
		action:   lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		status:   lipgloss.NewStyle().Faint(true),
		errText:  lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
	}
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if chatProvider != "" {
		t, err := provider.ParseType(chatProvider)
		if err != nil {
			return err
		}
		cfg.Providers.Priority = []string{string(t)}
	}
	log := newLogger(cfg)

	ctx := cmd.Context()
	st := newStyles()
	reg := registry.New()
	sess := session.New(reg, terminalSink(st), cfg, log)

	if err := sess.Initialize(ctx); err != nil {
		return err
	}
	defer sess.Cleanup(context.Background())

	fmt.Println(st.status.Render("Type a message, /provider <name> to switch, /quit to exit."))

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Print(st.prompt.Render("> "))
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			if quit := handleCommand(ctx, sess, reg, st, line); quit {
				break
			}
			continue
		}

		if err := runTurn(ctx, sess, line); err != nil {
			log.Error("turn failed", "error", err)
		}
	}
	return scanner.Err()
}

// runTurn executes one message exchange. Ctrl-C during the turn forwards
// an interrupt to the backend instead of killing the process.
func runTurn(ctx context.Context, sess *session.Session, line string) error {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	defer signal.Stop(sig)

	turnDone := make(chan struct{})
	defer close(turnDone)

	go func() {
		select {
		case <-sig:
			_ = sess.Interrupt(ctx)
		case <-turnDone:
		}
	}()

	return sess.HandleMessage(ctx, line)
}

// handleCommand dispatches /-prefixed chat commands. It returns true
// when the loop should exit.
func handleCommand(ctx context.Context, sess *session.Session, reg *registry.Registry, st styles, line string) bool {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit", "/exit":
		return true
	case "/providers":
		writeProvidersTable(ctx, os.Stdout, reg)
	case "/provider":
		if len(fields) < 2 {
			fmt.Println(st.errText.Render("usage: /provider <claude|codex>"))
			return false
		}
		t, err := provider.ParseType(fields[1])
		if err != nil {
			fmt.Println(st.errText.Render(err.Error()))
			return false
		}
		if err := sess.SwitchProvider(ctx, t); err != nil {
			// The sink already reported the failure.
			return false
		}
	default:
		fmt.Println(st.errText.Render("unknown command: " + fields[0]))
	}
	return false
}

// terminalSink renders session events to stdout. Thinking and response
// events carry cumulative text, so only the final snapshot is printed
// in full; interim updates render as a progress marker.
func terminalSink(st styles) session.Sink {
	sawThinking := false
	return session.SinkFunc(func(e session.Event) error {
		switch ev := e.(type) {
		case session.ConnectionStatusEvent:
			line := fmt.Sprintf("[%s] %s", ev.Provider, ev.Status)
			if ev.SessionID != "" {
				line += " session=" + ev.SessionID
			}
			fmt.Println(st.status.Render(line))
		case session.ThinkingEvent:
			if !sawThinking {
				fmt.Println(st.thinking.Render("thinking..."))
				sawThinking = true
			}
		case session.ActionsEvent:
			for _, a := range ev.Actions {
				payload, err := json.Marshal(a)
				if err != nil {
					continue
				}
				fmt.Println(st.action.Render("action: " + string(payload)))
			}
		case session.ResponseEvent:
			if ev.Complete {
				sawThinking = false
				if ev.Content != "" {
					fmt.Println(st.response.Render(ev.Content))
				}
			}
		case session.ErrorEvent:
			sawThinking = false
			fmt.Println(st.errText.Render("error: " + ev.Message))
		}
		return nil
	})
}
