package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/shlex"
	"github.com/reeflective/readline"
	"github.com/spf13/cobra"

	"github.com/yasskadd/scrabble/internal/app"
	"github.com/yasskadd/scrabble/internal/commands"
	"github.com/yasskadd/scrabble/internal/gateway"
	"github.com/yasskadd/scrabble/internal/logging"
	"github.com/yasskadd/scrabble/internal/shutdown"
	"github.com/yasskadd/scrabble/internal/window"
)

// consoleCmd represents the console command
var consoleCmd = &cobra.Command{
	Use:     "console",
	Aliases: []string{"cli"},
	Short:   "Interactive console driving the connection bridge",
	Long: `Start an interactive console bound to the same commands as the
desktop application.

Events received from the server are printed as they arrive, as if the
console were the primary window.

Commands:
  connect [address] [cookie]     - Open the socket (defaults from settings)
  disconnect                     - Close the socket
  send <event> [data]            - Emit an event
  alive                          - Report socketAlive or socketNotAlive
  get|post|put|patch|delete <url> [--body B] [--file F] [--field K]
                                 - Perform an HTTP call
  cookie save <value>            - Save the session cookie
  cookie clear                   - Forget the saved session cookie
  windows                        - List registered window targets
  help, quit`,
	RunE: runConsole,
}

func init() {
	rootCmd.AddCommand(consoleCmd)
}

func runConsole(cmd *cobra.Command, args []string) error {
	mgr := shutdown.NewManager()

	a, err := newRuntime(func(err error) {
		fmt.Printf("\n💥 %v\n", err)
		go mgr.Shutdown("bridge faulted")
	})
	if err != nil {
		return err
	}
	mgr.AddCleanup("runtime", a.Close)
	if err := a.WatchSettings(); err != nil {
		logging.App().Warn("Settings changes will need a restart", "error", err)
	}
	mgr.Start()

	out := cmd.OutOrStdout()
	console := window.NewFuncTarget(cfg.Windows.Primary, func(event, payload string) error {
		_, err := fmt.Fprintf(out, "\n📨 %s %s\n", event, payload)
		return err
	})
	if err := a.Windows.Register(console); err != nil {
		return err
	}
	defer a.Windows.Unregister(console.Name())

	rl := readline.NewShell()
	rl.Prompt.Primary(func() string {
		if a.Commands.QueryAlive() == commands.StatusAlive {
			return "scrabble● "
		}
		return "scrabble○ "
	})
	rl.History.Add("default", readline.NewInMemoryHistory())
	rl.Completer = func(line []rune, cursor int) readline.Completions {
		return completeConsole(line, cursor)
	}

	fmt.Fprintln(out, "\n🎲 Type a command and press Enter. Use help for commands. Tab completes commands.")

	for {
		select {
		case <-mgr.Done():
			return exitError(mgr)
		default:
		}

		line, err := rl.Readline()
		if err != nil {
			if err == io.EOF || err == readline.ErrInterrupt {
				fmt.Fprintln(out, "\n👋 Goodbye!")
				break
			}
			mgr.Shutdown("console error")
			return err
		}

		if quit := runConsoleLine(a, out, line); quit {
			fmt.Fprintln(out, "👋 Goodbye!")
			break
		}
	}

	mgr.Shutdown("console exit")
	return exitError(mgr)
}

func exitError(mgr *shutdown.Manager) error {
	if mgr.Failed() {
		return fmt.Errorf("shutdown (%s) did not complete cleanly", mgr.Reason())
	}
	return nil
}

// runConsoleLine executes one console line and reports whether the user
// asked to quit.
func runConsoleLine(a *app.App, out io.Writer, line string) bool {
	words, err := shlex.Split(line)
	if err != nil {
		fmt.Fprintf(out, "❌ %v\n", err)
		return false
	}
	if len(words) == 0 {
		return false
	}

	name, rest := strings.ToLower(words[0]), words[1:]
	switch name {
	case "quit", "exit", "q":
		return true
	case "help", "h", "?":
		printConsoleHelp(out)
	case "connect":
		a.Commands.EstablishConnection(arg(rest, 0), arg(rest, 1))
		fmt.Fprintln(out, a.Commands.QueryAlive())
	case "disconnect":
		a.Commands.Disconnect()
		fmt.Fprintln(out, a.Commands.QueryAlive())
	case "send":
		if len(rest) == 0 {
			fmt.Fprintln(out, "❌ usage: send <event> [data]")
			return false
		}
		a.Commands.Send(rest[0], strings.Join(rest[1:], " "))
	case "alive":
		fmt.Fprintln(out, a.Commands.QueryAlive())
	case "get", "post", "put", "patch", "delete":
		req, err := parseHTTPArgs(rest)
		if err != nil {
			fmt.Fprintf(out, "❌ %v\n", err)
			return false
		}
		res := a.Commands.HTTP(strings.ToUpper(name), req.URL, req.Body, req.FilePath, req.FieldKey)
		printResult(out, res)
	case "cookie":
		runCookieCommand(a, out, rest)
	case "windows":
		for _, n := range a.Windows.Names() {
			fmt.Fprintln(out, n)
		}
	default:
		fmt.Fprintf(out, "❓ Unknown command: %s (use help for available commands)\n", name)
	}
	return false
}

func runCookieCommand(a *app.App, out io.Writer, args []string) {
	switch arg(args, 0) {
	case "save":
		if err := a.Commands.SaveSessionCookie(strings.Join(args[1:], " ")); err != nil {
			fmt.Fprintf(out, "❌ %v\n", err)
			return
		}
		fmt.Fprintln(out, "✅ Session cookie saved")
	case "clear":
		if err := a.Commands.ClearSessionCookie(); err != nil {
			fmt.Fprintf(out, "❌ %v\n", err)
			return
		}
		fmt.Fprintln(out, "✅ Session cookie cleared")
	default:
		fmt.Fprintln(out, "❌ usage: cookie save <value> | cookie clear")
	}
}

func arg(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}

var errMissingURL = errors.New("missing URL")

// parseHTTPArgs parses "<url> [--body B] [--file F] [--field K]".
func parseHTTPArgs(args []string) (gateway.Request, error) {
	var req gateway.Request
	for i := 0; i < len(args); i++ {
		a := args[i]
		var dst *string
		switch a {
		case "--body", "-b":
			dst = &req.Body
		case "--file", "-f":
			dst = &req.FilePath
		case "--field", "-k":
			dst = &req.FieldKey
		default:
			if strings.HasPrefix(a, "-") {
				return req, fmt.Errorf("unknown option %s", a)
			}
			if req.URL != "" {
				return req, fmt.Errorf("unexpected argument %q", a)
			}
			req.URL = a
			continue
		}
		if i+1 >= len(args) {
			return req, fmt.Errorf("option %s needs a value", a)
		}
		i++
		*dst = args[i]
	}
	if req.URL == "" {
		return req, errMissingURL
	}
	return req, nil
}

func printResult(out io.Writer, res gateway.Result) {
	if res.OK() {
		fmt.Fprintln(out, res.Body)
		return
	}
	fmt.Fprintf(out, "❌ %s\n", res.Err)
}

func printConsoleHelp(out io.Writer) {
	fmt.Fprintln(out, `
Available commands:
  connect [address] [cookie]  - Open the socket (defaults from settings)
  disconnect                  - Close the socket
  send <event> [data]         - Emit an event
  alive                       - Report the connection state
  get|post|put|patch|delete <url> [--body B] [--file F] [--field K]
                              - Perform an HTTP call through the gateway
  cookie save <value>         - Save the session cookie
  cookie clear                - Forget the saved session cookie
  windows                     - List registered window targets
  help, h, ?                  - Show this help message
  quit, exit, q               - Exit the console

Tips:
  - Quote arguments containing spaces: send chatMessage "good game"
  - Relative URLs are resolved against the configured server
  - Use Tab to autocomplete commands`)
}

// consoleCommands drives tab completion.
var consoleCommands = []struct {
	name        string
	description string
}{
	{"connect", "Open the socket"},
	{"disconnect", "Close the socket"},
	{"send", "Emit an event"},
	{"alive", "Report the connection state"},
	{"get", "HTTP GET"},
	{"post", "HTTP POST"},
	{"put", "HTTP PUT"},
	{"patch", "HTTP PATCH"},
	{"delete", "HTTP DELETE"},
	{"cookie", "Save or clear the session cookie"},
	{"windows", "List window targets"},
	{"help", "Show available commands"},
	{"quit", "Exit the console"},
}

// completeConsole completes the command word only. cursor counts runes.
func completeConsole(line []rune, cursor int) readline.Completions {
	pairs := commandCandidates(line, cursor)
	if len(pairs) == 0 {
		return readline.Completions{}
	}
	return readline.CompleteValuesDescribed(pairs...).Tag("commands")
}

// commandCandidates returns name, description pairs of the commands
// matching the word before cursor.
func commandCandidates(line []rune, cursor int) []string {
	if cursor > len(line) {
		cursor = len(line)
	}
	if cursor < 0 {
		cursor = 0
	}
	text := string(line[:cursor])
	if strings.ContainsAny(text, " \t") {
		return nil
	}

	var pairs []string
	for _, c := range consoleCommands {
		if strings.HasPrefix(c.name, text) {
			pairs = append(pairs, c.name, c.description)
		}
	}
	return pairs
}
