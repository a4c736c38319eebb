package app

import (
	"bufio"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"solflow/internal/out"
)

func (s *runtimeState) newChatCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive transaction session",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := s.buildSession()
			if err != nil {
				return err
			}
			defer sess.Close()

			owner := "chat-" + uuid.NewString()[:8]
			out.Banner(cmd.OutOrStdout(), owner)

			scanner := bufio.NewScanner(cmd.InOrStdin())
			for {
				fmt.Fprint(cmd.OutOrStdout(), "> ")
				if !scanner.Scan() {
					return scanner.Err()
				}
				line := strings.TrimSpace(scanner.Text())
				if line == "" {
					continue
				}
				if line == "exit" || line == "quit" {
					return nil
				}

				sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
				sp.Suffix = " working..."
				sp.Start()
				ctx, cancel := context.WithTimeout(cmd.Context(), messageTimeout(s.settings))
				res := sess.engine.HandleMessage(ctx, owner, line)
				cancel()
				sp.Stop()

				switch {
				case res.OK && res.Signature != "":
					color.New(color.FgGreen).Fprintln(cmd.OutOrStdout(), res.Message)
				case res.OK:
					color.New(color.FgCyan).Fprintln(cmd.OutOrStdout(), res.Message)
				default:
					color.New(color.FgRed).Fprintln(cmd.OutOrStdout(), res.Message)
				}
			}
		},
	}
}
