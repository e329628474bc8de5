// ABOUTME: Terminal rendering of conversations, transcripts, and view events
// ABOUTME: Shows at most three sources per answer, then a count of the rest

package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"

	"github.com/2389/ragchat/internal/conversation"
	"github.com/2389/ragchat/internal/session"
	"github.com/2389/ragchat/internal/store"
)

const maxListedSources = 3

var (
	cyan   = color.New(color.FgCyan)
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed)
	gray   = color.New(color.FgHiBlack)
	dim    = color.New(color.Faint, color.Italic)
)

func printConversations(w io.Writer, convs []*store.Conversation) {
	if len(convs) == 0 {
		gray.Fprintln(w, "No conversations yet.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSPACE\tCREATED\tTITLE")
	for _, c := range convs {
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\n", c.ID, c.SpaceID, c.CreatedAt.Local().Format(time.DateTime), truncate(c.Title, 60))
	}
	tw.Flush()
}

func printHeader(w io.Writer, snap session.Snapshot) {
	conv := snap.Conversation
	if conv == nil {
		return
	}
	cyan.Fprintf(w, "%s", conv.Title)
	gray.Fprintf(w, "  #%d  space %d", conv.ID, conv.SpaceID)
	if !snap.Persisted {
		gray.Fprint(w, "  (new)")
	}
	fmt.Fprintln(w)
}

func printTranscript(w io.Writer, msgs []*store.Message) {
	for _, msg := range msgs {
		printMessage(w, msg)
	}
}

func printMessage(w io.Writer, msg *store.Message) {
	if msg.Sender == store.SenderUser {
		green.Fprint(w, "you> ")
		fmt.Fprintln(w, msg.Content)
		return
	}
	cyan.Fprint(w, "bot> ")
	fmt.Fprintln(w, msg.Content)
	printSources(w, msg.Sources)
}

func printSources(w io.Writer, sources []store.Source) {
	if len(sources) == 0 {
		return
	}
	gray.Fprintln(w, "     Sources:")
	for i, src := range sources {
		if i == maxListedSources {
			gray.Fprintf(w, "     ... and %d more\n", len(sources)-maxListedSources)
			break
		}
		gray.Fprintf(w, "     %d. %s\n", i+1, src.Label(i))
	}
}

func printBanner(w io.Writer, banner string) {
	if banner == "" {
		return
	}
	red.Fprintf(w, "! %s\n", banner)
}

// eventPrinter draws view events while a send is pending. User messages are
// skipped since the user just typed them.
type eventPrinter struct {
	w io.Writer
}

func (p eventPrinter) handle(ev conversation.Event) {
	switch ev.Kind {
	case conversation.EventLoading:
		if ev.Loading {
			dim.Fprintln(p.w, "     thinking...")
		}
	case conversation.EventMessage:
		if ev.Message != nil && ev.Message.Sender == store.SenderAssistant {
			printMessage(p.w, ev.Message)
		}
	case conversation.EventError:
		printBanner(p.w, ev.Error)
	}
}

// drain handles every event already buffered without waiting for more.
func (p eventPrinter) drain(events <-chan conversation.Event) {
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			p.handle(ev)
		default:
			return
		}
	}
}

func truncate(s string, maxLen int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len([]rune(s)) <= maxLen {
		return s
	}
	return string([]rune(s)[:maxLen-3]) + "..."
}
