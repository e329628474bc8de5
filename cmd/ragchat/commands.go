// ABOUTME: Cobra command tree for ragchat
// ABOUTME: chat runs the interactive view; list, show, new, rename, and delete manage stored conversations

package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/2389/ragchat/internal/session"
	"github.com/2389/ragchat/internal/store"
)

type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "ragchat",
		Short:         "Terminal chat client for a retrieval-augmented answer service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/ragchat/config.yaml)")

	root.AddCommand(
		newChatCmd(opts),
		newListCmd(opts),
		newShowCmd(opts),
		newNewCmd(opts),
		newRenameCmd(opts),
		newDeleteCmd(opts),
		newVersionCmd(),
	)
	return root
}

// withApp opens the app for the duration of fn.
func withApp(cmd *cobra.Command, opts *rootOptions, fn func(a *app) error) error {
	a, err := openApp(opts.configPath, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

func parseConversationID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid conversation id %q", arg)
	}
	return id, nil
}

func newChatCmd(opts *rootOptions) *cobra.Command {
	var route session.Route

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat interactively (/help lists commands)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(a *app) error {
				ctrl, err := a.newController()
				if err != nil {
					return err
				}
				defer ctrl.Close()
				return runREPL(cmd.Context(), ctrl, route, cmd.InOrStdin(), cmd.OutOrStdout())
			})
		},
	}
	cmd.Flags().StringVar(&route.SpaceID, "space", "", "space for a new conversation")
	cmd.Flags().StringVar(&route.ConversationID, "conversation", "", "conversation id to open")
	return cmd
}

func newListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List conversations, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(a *app) error {
				convs, err := a.repo.List(cmd.Context())
				if err != nil {
					return err
				}
				printConversations(cmd.OutOrStdout(), convs)
				return nil
			})
		},
	}
}

func newShowCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Print a conversation transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseConversationID(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, opts, func(a *app) error {
				conv, err := a.repo.Get(cmd.Context(), id)
				if errors.Is(err, store.ErrNotFound) {
					return fmt.Errorf("conversation %d not found", id)
				}
				if err != nil {
					return err
				}
				msgs, err := a.log.Get(cmd.Context(), id)
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				printHeader(w, session.Snapshot{Conversation: conv, Persisted: true})
				printTranscript(w, msgs)
				return nil
			})
		},
	}
}

func newNewCmd(opts *rootOptions) *cobra.Command {
	var space int64

	cmd := &cobra.Command{
		Use:   "new",
		Short: "Create an empty conversation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(a *app) error {
				conv, err := a.repo.Create(cmd.Context(), space)
				if err != nil {
					return err
				}
				green.Fprint(cmd.OutOrStdout(), "Created ")
				fmt.Fprintf(cmd.OutOrStdout(), "conversation %d in space %d\n", conv.ID, conv.SpaceID)
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&space, "space", store.DefaultSpaceID, "space for the conversation")
	return cmd
}

func newRenameCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rename ID TITLE",
		Short: "Retitle a conversation",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseConversationID(args[0])
			if err != nil {
				return err
			}
			title := strings.TrimSpace(strings.Join(args[1:], " "))
			if title == "" {
				return errors.New("title must not be blank")
			}
			return withApp(cmd, opts, func(a *app) error {
				err := a.repo.Rename(cmd.Context(), id, title)
				if errors.Is(err, store.ErrNotFound) {
					return fmt.Errorf("conversation %d not found", id)
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Renamed conversation %d to %q\n", id, title)
				return nil
			})
		},
	}
}

func newDeleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a conversation and its messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseConversationID(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, opts, func(a *app) error {
				err := a.repo.Delete(cmd.Context(), id)
				if errors.Is(err, store.ErrNotFound) {
					return fmt.Errorf("conversation %d not found", id)
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted conversation %d\n", id)
				return nil
			})
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "ragchat %s\n", version)
		},
	}
}
