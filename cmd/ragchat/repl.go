// ABOUTME: Interactive chat loop over a session controller
// ABOUTME: Plain lines are sent as messages; lines starting with / are client commands

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/2389/ragchat/internal/answer"
	"github.com/2389/ragchat/internal/conversation"
	"github.com/2389/ragchat/internal/session"
)

const replHelp = `Commands:
  /new                  start a new conversation
  /list                 list conversations
  /open ID              open a conversation
  /rename ID TITLE      retitle a conversation
  /delete ID            delete a conversation
  /help                 show this help
  /quit                 exit (Ctrl+D also works)`

const (
	retryHint   = "(the answer service did not respond; your message was kept, try again shortly)"
	notSentHint = "(message not sent)"
)

// runREPL resolves route and then reads lines from in until EOF or /quit.
func runREPL(ctx context.Context, ctrl *session.Controller, route session.Route, in io.Reader, out io.Writer) error {
	events := ctrl.Subscribe(ctx)
	printer := eventPrinter{w: out}

	ctrl.Resolve(ctx, route)
	showView(out, ctrl.Snapshot())
	printer.drain(events)
	gray.Fprintln(out, "Type a message, /help for commands.")

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, bufio.MaxScanTokenSize), 1024*1024) // 1MB max input
	for {
		green.Fprint(out, "> ")
		if !scanner.Scan() {
			// EOF (Ctrl+D) or error
			fmt.Fprintln(out)
			return scanner.Err()
		}
		if ctx.Err() != nil {
			return nil
		}

		line := scanner.Text()
		if strings.HasPrefix(strings.TrimSpace(line), "/") {
			quit := runSlashCommand(ctx, ctrl, strings.TrimSpace(line), out)
			printer.drain(events)
			if quit {
				return nil
			}
			continue
		}

		outcome := send(ctx, ctrl, line, events, printer)
		switch err := outcome.Err(); {
		case errors.Is(err, answer.ErrNetworkFailure):
			gray.Fprintln(out, retryHint)
		case errors.Is(err, session.ErrIgnored) && strings.TrimSpace(line) != "":
			gray.Fprintln(out, notSentHint)
		}
	}
}

// send runs one Send while drawing its events as they arrive.
func send(ctx context.Context, ctrl *session.Controller, line string, events <-chan conversation.Event, printer eventPrinter) session.Outcome {
	done := make(chan session.Outcome, 1)
	go func() { done <- ctrl.Send(ctx, line) }()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			printer.handle(ev)
		case outcome := <-done:
			// Everything Send published is already buffered
			printer.drain(events)
			return outcome
		}
	}
}

// runSlashCommand executes a client command. Reports whether to quit.
func runSlashCommand(ctx context.Context, ctrl *session.Controller, line string, out io.Writer) bool {
	fields := strings.Fields(line)
	name, args := fields[0], fields[1:]

	switch name {
	case "/quit", "/exit":
		return true
	case "/help":
		fmt.Fprintln(out, replHelp)
	case "/list":
		printConversations(out, ctrl.Conversations(ctx))
	case "/new":
		if conv := ctrl.NewConversation(ctx); conv != nil {
			showView(out, ctrl.Snapshot())
		}
	case "/open":
		if len(args) != 1 {
			yellow.Fprintln(out, "usage: /open ID")
			break
		}
		ctrl.Resolve(ctx, session.Route{ConversationID: args[0]})
		showView(out, ctrl.Snapshot())
	case "/rename":
		id, ok := replID(out, args, 2, "usage: /rename ID TITLE")
		if !ok {
			break
		}
		if ctrl.Rename(ctx, id, strings.Join(args[1:], " ")) {
			fmt.Fprintln(out, "Renamed.")
		} else {
			yellow.Fprintf(out, "Could not rename conversation %d\n", id)
		}
	case "/delete":
		id, ok := replID(out, args, 1, "usage: /delete ID")
		if !ok {
			break
		}
		active := ctrl.Snapshot().Conversation
		if !ctrl.Delete(ctx, id) {
			yellow.Fprintf(out, "Could not delete conversation %d\n", id)
			break
		}
		fmt.Fprintf(out, "Deleted conversation %d\n", id)
		if active != nil && active.ID == id {
			showView(out, ctrl.Snapshot())
		}
	default:
		yellow.Fprintf(out, "unknown command %s (try /help)\n", name)
	}
	return false
}

func replID(out io.Writer, args []string, minArgs int, usage string) (int64, bool) {
	if len(args) < minArgs {
		yellow.Fprintln(out, usage)
		return 0, false
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		yellow.Fprintln(out, usage)
		return 0, false
	}
	return id, true
}

func showView(out io.Writer, snap session.Snapshot) {
	fmt.Fprintln(out)
	printHeader(out, snap)
	printTranscript(out, snap.Messages)
}
