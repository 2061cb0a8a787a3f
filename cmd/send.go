package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/timvw/pigeon/internal/model"
)

var (
	flagTarget   string
	flagFile     string
	flagStart    int
	flagEnd      int
	flagSide     string
	flagQuestion string
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send code from stdin to a tmux session",
	Long: `Send a code selection to a tmux session exactly as the browser extension would.

The code is read from stdin. The request goes through the same validation,
formatting and delivery path as a native messaging "send", and the JSON
response is printed to stdout.

Example:
  sed -n 10,20p main.go | pigeon-host send --target work --file main.go --start 10 --end 20`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		code, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("read code from stdin: %w", err)
		}

		// Piped input almost always ends in a newline the selection did not have.
		req, err := buildSendRequest(strings.TrimSuffix(string(code), "\n"))
		if err != nil {
			return err
		}

		rt, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.Close(cmd.Context())

		d, err := rt.dispatcher()
		if err != nil {
			return err
		}

		resp := d.Handle(cmd.Context(), req)
		out, err := json.Marshal(resp)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		if !resp.OK {
			return fmt.Errorf("send failed: %s", resp.Error)
		}
		return nil
	},
}

func init() {
	sendCmd.Flags().StringVar(&flagTarget, "target", "", "tmux session name (required)")
	sendCmd.Flags().StringVar(&flagFile, "file", "", "file path shown in the message header (required)")
	sendCmd.Flags().IntVar(&flagStart, "start", 0, "first selected line (1-based)")
	sendCmd.Flags().IntVar(&flagEnd, "end", 0, "last selected line (1-based)")
	sendCmd.Flags().StringVar(&flagSide, "side", "", "diff side: old, new")
	sendCmd.Flags().StringVar(&flagQuestion, "question", "", "question to ask (default: \"Explain this code\")")
	_ = sendCmd.MarkFlagRequired("target")
	_ = sendCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(sendCmd)
}

// buildSendRequest round-trips the flags through the wire decoder so the
// CLI rejects exactly what the host would reject.
func buildSendRequest(code string) (*model.SendRequest, error) {
	wire := map[string]any{
		"action":      model.ActionSend,
		"file":        flagFile,
		"code":        code,
		"tmux_target": flagTarget,
	}
	if flagStart != 0 {
		wire["start_line"] = flagStart
	}
	if flagEnd != 0 {
		wire["end_line"] = flagEnd
	}
	if flagSide != "" {
		wire["side"] = flagSide
	}
	if flagQuestion != "" {
		wire["question"] = flagQuestion
	}

	data, err := json.Marshal(wire)
	if err != nil {
		return nil, err
	}
	req, err := model.DecodeRequest(data)
	if err != nil {
		return nil, err
	}
	return req.(*model.SendRequest), nil
}
