// Package out renders engine results for the terminal, either as plain
// conversational text or as a JSON envelope for scripting.
package out

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"solflow/internal/engine"
	clierr "solflow/internal/errors"
	"solflow/internal/executor"
	"solflow/internal/intent"
)

// Render writes one engine result. mode is "plain" or "json".
func Render(w io.Writer, res engine.Result, mode string) error {
	if mode == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	if _, err := fmt.Fprintln(w, res.Message); err != nil {
		return err
	}
	if !res.OK && res.Code != clierr.CodeSuccess && res.Code != clierr.CodeCancelled {
		_, err := fmt.Fprintf(w, "(error: %s)\n", res.Code)
		return err
	}
	return nil
}

// RenderHistory writes an execution history listing, newest first.
func RenderHistory(w io.Writer, records []executor.Record, mode string) error {
	if mode == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "No executions recorded yet.")
		return err
	}
	for _, rec := range records {
		line := fmt.Sprintf("%s  %-9s %-8s %s",
			rec.CreatedAt.Local().Format(time.DateTime),
			string(rec.Kind), rec.Status, rec.Summary)
		if rec.Signature != "" {
			line += "  " + rec.Signature
		}
		if rec.Status == executor.StatusFailed && rec.ErrorText != "" {
			line += "  (" + rec.ErrorText + ")"
		}
		if _, err := fmt.Fprintln(w, strings.TrimRight(line, " ")); err != nil {
			return err
		}
	}
	return nil
}

// Banner is the chat greeting, listing what the session can do.
func Banner(w io.Writer, owner string) {
	fmt.Fprintf(w, "Session %s ready.\n%s\n", owner, intent.Usage)
}
