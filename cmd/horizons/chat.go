package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Gurpartap/horizons/internal/chat"
)

func (c *cli) chatCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Talk to the assistant in the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			rt, err := c.runtime(cmd)
			if err != nil {
				return err
			}
			defer func() {
				err = errors.Join(err, rt.Close())
			}()

			session, err := rt.Sessions.Create(cmd.Context())
			if err != nil {
				return fmt.Errorf("create session: %w", err)
			}
			renderer := chat.NewRenderer(cmd.OutOrStdout(), "")
			if !rt.Assistant.Ready() {
				if err := renderer.PrintLine("warning: no model API key configured; set " + c.cfg.AI.APIKeyEnvVar); err != nil {
					return err
				}
			}
			return chat.NewREPL(cmd.InOrStdin(), renderer, session).Run(cmd.Context())
		},
	}
}
