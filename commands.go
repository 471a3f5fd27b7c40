package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"todo-chat/app/services"
)

func newMigrateCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the store schema and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer app.store.Close()
			fmt.Fprintf(cmd.OutOrStdout(), "schema ready (%s)\n", c.cfg.Store.Driver)
			return nil
		},
	}
}

func newChatCmd(c *cli) *cobra.Command {
	var (
		user         string
		conversation int64
	)
	cmd := &cobra.Command{
		Use:   "chat MESSAGE...",
		Short: "Send one chat message as a user and print the exchange",
		Example: `  todochat chat --user alice "Add a task to buy groceries"
  todochat chat --user alice --conversation 1 "show my tasks"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer app.store.Close()

			req := services.ChatRequest{OwnerID: user, Message: strings.Join(args, " ")}
			if cmd.Flags().Changed("conversation") {
				req.ConversationID = &conversation
			}
			ex, err := app.chat.Send(cmd.Context(), req)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), ex)
		},
	}
	cmd.Flags().StringVarP(&user, "user", "u", "", "owner id to act as")
	cmd.Flags().Int64Var(&conversation, "conversation", 0, "conversation to continue")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func newHistoryCmd(c *cli) *cobra.Command {
	var (
		user         string
		conversation int64
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print the messages of a conversation, or the user's conversations",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer app.store.Close()

			if !cmd.Flags().Changed("conversation") {
				convs, err := app.chat.Conversations(cmd.Context(), user)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), convs)
			}
			msgs, err := app.chat.History(cmd.Context(), user, conversation)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), msgs)
		},
	}
	cmd.Flags().StringVarP(&user, "user", "u", "", "owner id")
	cmd.Flags().Int64Var(&conversation, "conversation", 0, "conversation id")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func newToolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "Print the tool catalogue with argument schemas",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printJSON(cmd.OutOrStdout(), services.Catalogue())
		},
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
