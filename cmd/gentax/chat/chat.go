// Package chatcmder provides the chat command, an interactive terminal client
// for a running gentax server.
package chatcmder

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/gentaxai/gentax/api"
	"github.com/gentaxai/gentax/pkg/cliui"
	"github.com/gentaxai/gentax/pkg/config"
)

var (
	userPrompt      = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true).Render("you> ")
	assistantPrompt = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true).Render("gentax> ")
)

type chatCommander struct {
	apiTarget string
	sessionID string
	plain     bool

	client *http.Client
	in     io.Reader
	out    io.Writer
	errOut io.Writer
	pretty bool
}

const chatLongDesc string = `Start an interactive chat session with a running gentax server.

Each question is sent to POST /api/chat. Answers are rendered as markdown
when stdout is a terminal, followed by the knowledge base sources that
were cited.

Commands inside the chat:
  /new       start a new session
  /history   print the current session transcript
  /exit      quit (Ctrl+D also works)

Examples:
  gentax chat
  gentax chat --session 3f0c... --api-target http://localhost:8000`

const chatShortDesc string = "Interactive chat with a gentax server"

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			cfger, err := config.NewConfiger(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			cfg, err := cfger.LoadConfig()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			if !cmd.Flags().Changed(config.FlagAPITarget) {
				cmder.apiTarget = cfg.Client.APITarget
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.in = cmd.InOrStdin()
			cmder.out = cmd.OutOrStdout()
			cmder.errOut = cmd.ErrOrStderr()
			cmder.pretty = !cmder.plain && cmder.out == os.Stdout && cliui.IsTerminal(os.Stdout)
			return cmder.run(cmd.Context())
		},
	}

	config.AddStringFlag(cmd, config.Registry, config.FlagAPITarget, &cmder.apiTarget)
	cmd.Flags().StringVar(&cmder.sessionID, "session", "", "Continue an existing session id")
	cmd.Flags().BoolVar(&cmder.plain, "plain", false, "Disable markdown rendering")

	return cmd
}

func (c *chatCommander) run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if c.client == nil {
		c.client = &http.Client{Timeout: 2 * time.Minute}
	}

	if c.sessionID == "" {
		id, err := c.newSession(ctx)
		if err != nil {
			return fmt.Errorf("starting session: %w", err)
		}
		c.sessionID = id
	}

	fmt.Fprintln(c.out)
	fmt.Fprintf(c.out, "  %s %s\n", cliui.KeyStyle.Render("Server:"), cliui.DimStyle.Render(c.apiTarget))
	fmt.Fprintf(c.out, "  %s %s\n\n", cliui.KeyStyle.Render("Session:"), cliui.NameStyle.Render(c.sessionID))
	fmt.Fprintf(c.out, "  %s\n\n", cliui.DimStyle.Render("Ask a tax question and press Enter. /new, /history, /exit or Ctrl+D."))

	scanner := bufio.NewScanner(c.in)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for {
		fmt.Fprint(c.out, userPrompt)
		if !scanner.Scan() {
			fmt.Fprintln(c.out)
			break
		}

		input := strings.TrimSpace(scanner.Text())
		switch input {
		case "":
			continue
		case "/exit", "/quit":
			return nil
		case "/new":
			id, err := c.newSession(ctx)
			if err != nil {
				fmt.Fprintf(c.errOut, "  %s %v\n", cliui.FailMark, err)
				continue
			}
			c.sessionID = id
			fmt.Fprintf(c.out, "  %s New session %s\n\n", cliui.SuccessMark, cliui.NameStyle.Render(id))
			continue
		case "/history":
			if err := c.printHistory(ctx); err != nil {
				fmt.Fprintf(c.errOut, "  %s %v\n", cliui.FailMark, err)
			}
			continue
		}

		var resp *api.ChatResponse
		ask := func() error {
			var err error
			resp, err = c.ask(ctx, input)
			return err
		}

		var err error
		if c.pretty {
			err = cliui.Step(c.errOut, "Thinking", ask)
		} else {
			err = ask()
		}
		if err != nil {
			fmt.Fprintf(c.errOut, "  %s %v\n", cliui.FailMark, err)
			continue
		}

		c.sessionID = resp.SessionID
		c.printAnswer(resp)
	}

	return scanner.Err()
}

func (c *chatCommander) printAnswer(resp *api.ChatResponse) {
	answer := resp.Answer
	if c.pretty {
		rendered, err := cliui.RenderMarkdown(answer, cliui.TerminalWidth(os.Stdout)-4)
		if err == nil {
			answer = rendered
		}
	}

	fmt.Fprintf(c.out, "%s%s\n", assistantPrompt, strings.TrimRight(answer, "\n"))
	fmt.Fprintln(c.out)
	cliui.WriteCitations(c.out, resp.Citations)
}

func (c *chatCommander) printHistory(ctx context.Context) error {
	var tr api.TranscriptResponse
	if err := c.do(ctx, http.MethodGet, "/api/sessions/"+c.sessionID, nil, &tr); err != nil {
		return err
	}

	fmt.Fprintln(c.out)
	for i, t := range tr.Turns {
		fmt.Fprintf(c.out, "  %s %s\n", cliui.DimStyle.Render(fmt.Sprintf("%3d", i)), cliui.RoleLabel(string(t.Role)))
		for line := range strings.SplitSeq(t.Content, "\n") {
			fmt.Fprintf(c.out, "      %s\n", line)
		}
	}
	fmt.Fprintln(c.out)
	return nil
}

func (c *chatCommander) newSession(ctx context.Context) (string, error) {
	var sr api.SessionResponse
	if err := c.do(ctx, http.MethodPost, "/api/new-session", nil, &sr); err != nil {
		return "", err
	}
	return sr.SessionID, nil
}

func (c *chatCommander) ask(ctx context.Context, question string) (*api.ChatResponse, error) {
	var cr api.ChatResponse
	err := c.do(ctx, http.MethodPost, "/api/chat", api.ChatRequest{
		Question:  question,
		SessionID: c.sessionID,
	}, &cr)
	if err != nil {
		return nil, err
	}
	return &cr, nil
}

// do sends a JSON request to the API and decodes the JSON response into out.
// Non-2xx responses become errors carrying the server's detail message.
func (c *chatCommander) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	url := strings.TrimRight(c.apiTarget, "/") + path
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("contacting %s: %w", c.apiTarget, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var er api.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&er); err == nil && er.Detail != "" {
			return errors.New(er.Detail)
		}
		return fmt.Errorf("server returned %s", resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
