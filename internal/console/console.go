// Package console runs a live session from a line-oriented terminal.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/RedaDC/Trade-SENS-AI/internal/conversation"
	"github.com/RedaDC/Trade-SENS-AI/internal/render"
	"github.com/RedaDC/Trade-SENS-AI/internal/session"
	"github.com/RedaDC/Trade-SENS-AI/models"
)

const helpText = `Commands:
  symbol <SYMBOL>          select a symbol
  buy | sell               place a manual market order
  auto on|off|toggle       control the AI auto-trader
  tab trading|analysis     switch the visible tab
  analyze                  request a deep AI analysis
  execute                  trade the analysis recommendation
  ask <question>           ask the AI assistant
  show                     redraw the dashboard
  help                     this text
  quit                     leave`

// Dashboard is the part of a session the console drives
type Dashboard interface {
	SelectSymbol(symbol string) error
	SetAutoTrade(enabled bool) error
	ToggleAutoTrade() (bool, error)
	SwitchTab(tab models.Tab) error
	PlaceManualTrade(ctx context.Context, side models.Side) (models.TradeConfirmation, error)
	RequestDeepAnalysis(ctx context.Context) (models.AnalysisPayload, error)
	ExecuteRecommendation(ctx context.Context) (models.TradeConfirmation, error)
	Send(ctx context.Context, text string) (<-chan conversation.Message, bool)
	Snapshot() session.Snapshot
}

var errQuit = errors.New("quit")

// Console reads commands from in and writes to out. Writes are serialized
// because toasts and chat replies arrive from other goroutines.
type Console struct {
	dash   Dashboard
	in     io.Reader
	logger zerolog.Logger

	mu  sync.Mutex
	out io.Writer
}

// New creates a console over dash
func New(dash Dashboard, in io.Reader, out io.Writer) *Console {
	return &Console{
		dash:   dash,
		in:     in,
		out:    out,
		logger: log.With().Str("component", "console").Logger(),
	}
}

// Toast prints a notification; wire it as the session's OnToast listener
func (c *Console) Toast(toast string) {
	c.println("* " + toast)
}

func (c *Console) println(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, s)
}

// Run processes commands until quit, end of input or ctx ends
func (c *Console) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.println(render.Dashboard(c.dash.Snapshot()))
	c.println("Type 'help' for commands.")

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(c.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-readErr:
			return err
		case line := <-lines:
			if err := c.Execute(ctx, line); err != nil {
				if errors.Is(err, errQuit) {
					return nil
				}
				c.println("Error: " + err.Error())
			}
		}
	}
}

// Execute runs one command line
func (c *Console) Execute(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	switch cmd {
	case "symbol":
		if len(args) != 1 {
			return errors.New("usage: symbol <SYMBOL>")
		}
		if err := c.dash.SelectSymbol(args[0]); err != nil {
			return err
		}
		c.println(render.Header(c.dash.Snapshot()))

	case "buy", "sell":
		// failures already produced a toast
		if _, err := c.dash.PlaceManualTrade(ctx, models.Side(strings.ToUpper(cmd))); err != nil {
			c.logger.Debug().Err(err).Msg("Manual trade failed")
		}

	case "auto":
		return c.auto(args)

	case "tab":
		if len(args) != 1 {
			return errors.New("usage: tab trading|analysis")
		}
		tab, err := parseTab(args[0])
		if err != nil {
			return err
		}
		if err := c.dash.SwitchTab(tab); err != nil {
			return err
		}
		c.println(render.Dashboard(c.dash.Snapshot()))

	case "analyze":
		c.println("Analyzing...")
		payload, err := c.dash.RequestDeepAnalysis(ctx)
		if err != nil {
			return err
		}
		c.println(strings.Join(render.AnalysisLines(payload), "\n"))

	case "execute":
		_, err := c.dash.ExecuteRecommendation(ctx)
		switch {
		case errors.Is(err, session.ErrNoAnalysis):
			return errors.New("run 'analyze' first")
		case errors.Is(err, session.ErrWaitRecommendation):
			c.println("The analysis recommends WAIT. No trade placed.")
		case errors.Is(err, models.ErrIncompletePlan), errors.Is(err, session.ErrExecutionInProgress):
			return err
		case err != nil:
			c.logger.Debug().Err(err).Msg("Execution failed")
		}

	case "ask":
		return c.ask(ctx, strings.Join(args, " "))

	case "show":
		c.println(render.Dashboard(c.dash.Snapshot()))

	case "help":
		c.println(helpText)

	case "quit", "exit":
		return errQuit

	default:
		return fmt.Errorf("unknown command %q, type 'help'", cmd)
	}
	return nil
}

func (c *Console) auto(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: auto on|off|toggle")
	}

	var enabled bool
	switch strings.ToLower(args[0]) {
	case "on":
		enabled = true
		if err := c.dash.SetAutoTrade(true); err != nil {
			return err
		}
	case "off":
		if err := c.dash.SetAutoTrade(false); err != nil {
			return err
		}
	case "toggle":
		var err error
		if enabled, err = c.dash.ToggleAutoTrade(); err != nil {
			return err
		}
	default:
		return errors.New("usage: auto on|off|toggle")
	}

	if enabled {
		c.println("Auto-trade ON")
	} else {
		c.println("Auto-trade OFF")
	}
	return nil
}

func (c *Console) ask(ctx context.Context, text string) error {
	reply, ok := c.dash.Send(ctx, text)
	if !ok {
		if strings.TrimSpace(text) == "" {
			return errors.New("usage: ask <question>")
		}
		return errors.New("still waiting for the previous answer")
	}

	go func() {
		select {
		case msg, ok := <-reply:
			if ok {
				c.println(render.MessageLine(msg))
			}
		case <-ctx.Done():
		}
	}()
	return nil
}

func parseTab(s string) (models.Tab, error) {
	switch strings.ToLower(s) {
	case "trading":
		return models.TabTrading, nil
	case "analysis", "ai", "ai-analysis":
		return models.TabAIAnalysis, nil
	default:
		return "", fmt.Errorf("%w: %q", session.ErrUnknownTab, s)
	}
}
