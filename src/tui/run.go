package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"travis-log-fetch/src/fetch"
	"travis-log-fetch/src/logger"
)

// Run executes fetch.Run while showing its progress. Quitting early cancels
// the run. The program's logger and progress callback replace the ones in
// env for the duration of the run.
func Run(ctx context.Context, env *fetch.Env, opts fetch.Options, webURL string) (*fetch.Summary, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(NewModel(webURL, cancel), tea.WithAltScreen())

	runEnv := *env
	runEnv.Progress = func(ev fetch.Event) { p.Send(EventMsg(ev)) }
	runEnv.Log = NewProgramLogger(p.Send)

	result := make(chan finishedMsg, 1)
	go func() {
		summary, err := fetch.Run(ctx, &runEnv, opts)
		res := finishedMsg{summary: summary, err: err}
		result <- res
		p.Send(res)
	}()

	if _, err := p.Run(); err != nil {
		cancel()
		<-result
		return nil, fmt.Errorf("terminal UI failed: %w", err)
	}

	cancel()
	res := <-result
	return res.summary, res.err
}

// ProgramLogger forwards log lines to a running program as LogMsg.
type ProgramLogger struct {
	send func(tea.Msg)
}

var _ logger.Logger = (*ProgramLogger)(nil)

// NewProgramLogger creates a logger that calls send for every line.
func NewProgramLogger(send func(tea.Msg)) *ProgramLogger {
	return &ProgramLogger{send: send}
}

func (l *ProgramLogger) Info(msg string, args ...interface{}) {
	l.send(LogMsg{Level: "INFO", Text: fmt.Sprintf(msg, args...)})
}

func (l *ProgramLogger) Warn(msg string, args ...interface{}) {
	l.send(LogMsg{Level: "WARNING", Text: fmt.Sprintf(msg, args...)})
}

func (l *ProgramLogger) Error(msg string, args ...interface{}) {
	l.send(LogMsg{Level: "ERROR", Text: fmt.Sprintf(msg, args...)})
}

// Debug is dropped; the view only has room for one line.
func (l *ProgramLogger) Debug(msg string, args ...interface{}) {}
