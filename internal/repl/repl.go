// Package repl runs a search session over a line-oriented terminal.
package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"productrag/internal/service"
)

// REPL reads queries line by line and prints the session's replies.
type REPL struct {
	session *service.Session
	in      io.Reader
	out     io.Writer
	prompt  string
}

// New creates a REPL for session reading from in and writing to out.
func New(session *service.Session, in io.Reader, out io.Writer) *REPL {
	return &REPL{session: session, in: in, out: out, prompt: "query> "}
}

// Start runs the loop until the user exits, input ends or ctx is cancelled.
// Cancelling ctx while a query is in flight cancels that query.
func (r *REPL) Start(ctx context.Context) error {
	r.session.Start()
	fmt.Fprintf(r.out, "Product search (%s mode). Type help for commands, exit to quit.\n", r.session.Mode())

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(r.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		fmt.Fprint(r.out, r.prompt)
		var line string
		select {
		case <-ctx.Done():
			r.farewell(r.session.Interrupt())
			return nil
		case err := <-readErr:
			r.farewell(r.session.Interrupt())
			return err
		case line = <-lines:
		}

		reply, err := r.session.Handle(ctx, line)
		if errors.Is(err, service.ErrInterrupted) {
			r.farewell(reply)
			return nil
		}
		if err != nil {
			return err
		}
		switch reply.Kind {
		case service.ReplyAnswer:
			fmt.Fprintf(r.out, "\nResponse:\n%s\n\n", reply.Text)
		case service.ReplyHelp:
			fmt.Fprintln(r.out, reply.Text)
		case service.ReplyCleared:
			// ANSI clear screen and home cursor
			fmt.Fprint(r.out, "\033[H\033[2J")
			fmt.Fprintln(r.out, "Conversation cleared.")
		case service.ReplyFarewell:
			r.farewell(reply)
			return nil
		}
	}
}

func (r *REPL) farewell(reply service.Reply) {
	fmt.Fprintf(r.out, "\n%s\n", reply.Text)
}
