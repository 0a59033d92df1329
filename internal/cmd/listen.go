package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/yasskadd/scrabble/internal/commands"
	"github.com/yasskadd/scrabble/internal/events"
	"github.com/yasskadd/scrabble/internal/shutdown"
)

var (
	listenAddress string
	listenCookie  string
)

// listenCmd represents the listen command
var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Connect and print every server event as a JSON line",
	Long: `Connect to the game server and print every event delivered on the
broadcast channel, one JSON object per line, until interrupted.

Control messages are printed under their rewritten name with "control" set.`,
	RunE: runListen,
}

func init() {
	rootCmd.AddCommand(listenCmd)

	listenCmd.Flags().StringVar(&listenAddress, "address", "", "Socket address (default: server.socket_url)")
	listenCmd.Flags().StringVar(&listenCookie, "cookie", "", "Session cookie (default: the saved one)")
}

type listenLine struct {
	Time    string `json:"time"`
	Event   string `json:"event"`
	Payload string `json:"payload"`
	Control string `json:"control,omitempty"`
}

func runListen(cmd *cobra.Command, args []string) error {
	mgr := shutdown.NewManager()

	a, err := newRuntime(func(err error) {
		go mgr.Shutdown("bridge faulted")
	})
	if err != nil {
		return err
	}
	mgr.AddCleanup("runtime", a.Close)

	id, deliveries := a.Broadcaster.Subscribe()
	defer a.Broadcaster.Unsubscribe(id)

	mgr.Start()
	a.Commands.EstablishConnection(listenAddress, listenCookie)
	if a.Commands.QueryAlive() != commands.StatusAlive {
		mgr.Shutdown("connection failed")
		// The failure was delivered on the broadcast channel.
		for d := range deliveries {
			if d.Name == commands.EventConnectionFailed {
				return fmt.Errorf("connection failed: %s", d.Payload)
			}
		}
		return fmt.Errorf("connection failed")
	}

	out := cmd.OutOrStdout()
	for {
		select {
		case d, ok := <-deliveries:
			if !ok {
				return exitError(mgr)
			}
			if err := writeDelivery(out, d); err != nil {
				mgr.Shutdown("output error")
				return err
			}
		case <-mgr.Done():
			return exitError(mgr)
		}
	}
}

func writeDelivery(w io.Writer, d events.Delivery) error {
	line := listenLine{
		Time:    d.At.Format("2006-01-02T15:04:05.000Z07:00"),
		Event:   d.Name,
		Payload: d.Payload,
	}
	if d.Control != 0 {
		line.Control = d.Control.String()
	}
	data, err := json.Marshal(line)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
