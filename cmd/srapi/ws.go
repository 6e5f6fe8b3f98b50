package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"speedrun-api/pkg/srapi"
)

func newWSCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ws <uri>",
		Short: "Open a websocket, send stdin lines as text and print inbound messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(cmd.Context()); err != nil {
				return err
			}
			defer a.teardown()

			stream, err := a.client.ConnectWS(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer stream.Close()

			go pumpStdin(cmd.Context(), cmd.InOrStdin(), stream, a)
			return printInbound(cmd.Context(), cmd.OutOrStdout(), stream)
		},
	}
}

// pumpStdin sends each input line as a text message and closes the stream
// when input ends.
func pumpStdin(ctx context.Context, in io.Reader, stream srapi.WsStream, a *app) {
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		if err := stream.Send(ctx, srapi.TextMessage(sc.Text())); err != nil {
			a.logger.Warn("send failed", "error", err)
			return
		}
	}
	stream.Close()
}

// printInbound writes messages until the stream ends. A close handshake ends
// the command successfully.
func printInbound(ctx context.Context, out io.Writer, stream srapi.WsStream) error {
	for {
		msg, err := stream.Recv(ctx)
		switch {
		case err == nil:
		case errors.Is(err, io.EOF):
			return nil
		case errors.Is(err, srapi.ErrClosed):
			var ce *srapi.CloseError
			if errors.As(err, &ce) {
				fmt.Fprintf(out, "-- closed: %d %s\n", ce.Code, ce.Reason)
			}
			return nil
		default:
			return err
		}

		if msg.Type == srapi.MessageText {
			fmt.Fprintln(out, msg.Text())
		} else {
			fmt.Fprintf(out, "-- binary message, %d bytes\n", len(msg.Data))
		}
	}
}
