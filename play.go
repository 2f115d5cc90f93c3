package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/spf13/cobra"

	"github.com/robalobadob/wordle/apps/wordled/internal/protocol"
)

const promptLine = "enter guess:"

func playCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "play <host:port>",
		Short: "Play a game against a running server",
		Long: `Connect to a wordled server and play from the terminal. Each line read
from stdin is sent as one guess. Feedback uses UPPERCASE for a letter in the
right spot, lowercase for a letter elsewhere in the word and '-' for a miss.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d := net.Dialer{Timeout: timeout}
			conn, err := d.DialContext(cmd.Context(), "tcp", args[0])
			if err != nil {
				return err
			}
			defer conn.Close()
			return play(cmd.Context(), conn, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "dial timeout")

	return cmd
}

// play relays one game between the player (in/out) and the server (conn).
// It returns nil when the server hangs up or the player runs out of input.
func play(ctx context.Context, conn io.ReadWriter, in io.Reader, out io.Writer) error {
	srv := bufio.NewReader(conn)
	player := bufio.NewScanner(in)

	for ctx.Err() == nil {
		line, err := protocol.ReadLine(srv)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if line != promptLine {
			fmt.Fprintln(out, line)
			continue
		}

		fmt.Fprint(out, "guess> ")
		if !player.Scan() {
			return player.Err()
		}
		if err := protocol.WriteGuess(conn, player.Text()); err != nil {
			return err
		}

		narration, err := protocol.ReadLine(srv)
		if err != nil {
			return err
		}
		rep, err := protocol.ReadReply(srv)
		if err != nil {
			return err
		}
		if rep.Valid {
			fmt.Fprintf(out, "%s  (%d left)\n", rep.Feedback, rep.Remaining)
		} else {
			fmt.Fprintln(out, narration)
		}
	}
	return ctx.Err()
}
