package app

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	clierr "solflow/internal/errors"
	"solflow/internal/out"
)

func (s *runtimeState) newSendCommand() *cobra.Command {
	var sessionID string
	cmd := &cobra.Command{
		Use:   "send <message>",
		Short: "Handle a single chat message and exit",
		Long: `Handle one message against a named session. Pending actions do not
survive the process, so a prepare and its confirmation belong in the
same chat session; send is for scripted one-shot prepares and JSON
inspection.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := s.buildSession()
			if err != nil {
				return err
			}
			defer sess.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), messageTimeout(s.settings))
			defer cancel()
			res := sess.engine.HandleMessage(ctx, sessionID, strings.Join(args, " "))
			if err := out.Render(cmd.OutOrStdout(), res, s.outputMode()); err != nil {
				return err
			}
			if !res.OK && res.Code != clierr.CodeCancelled {
				return clierr.New(res.Code, "message was not accepted")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "default", "Session identifier (pending-action owner)")
	return cmd
}
