package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/WangYihang/Config-Collector/pkg/common"
	"github.com/WangYihang/Config-Collector/pkg/domain/entity"
	"github.com/WangYihang/Config-Collector/pkg/interface/cli"
	"github.com/WangYihang/Config-Collector/pkg/interface/presenter"
	tea "github.com/charmbracelet/bubbletea"
)

func main() {
	// Parse command line flags
	config, err := cli.ParseFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if config.Version {
		fmt.Println(common.PV.String())
		return
	}

	os.Exit(run(config))
}

func run(config *cli.Config) int {
	logOutput, closeLog, err := openLogOutput(config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer closeLog()
	cli.SetupLogger(config.LogLevel, logOutput)

	// Setup context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nReceived interrupt signal, shutting down gracefully...")
		cancel()
	}()

	// Create assembler
	assembler := cli.NewAssembler(config)
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := assembler.Close(shutdownCtx); err != nil {
			fmt.Fprintf(os.Stderr, "Shutdown error: %v\n", err)
		}
	}()

	// Assemble use case with all dependencies
	useCase, err := assembler.AssembleUseCase(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	texts, err := assembler.LoadTexts(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	var report *entity.RunReport
	var runErr error

	if config.ShowDashboard {
		dashboard := presenter.NewDashboard()
		useCase.RegisterMetricsObserver(dashboard)

		// Run dashboard in TUI mode
		p := tea.NewProgram(dashboard, tea.WithAltScreen())

		// Run use case in background
		done := make(chan struct{})
		go func() {
			report, runErr = useCase.Execute(ctx, texts)
			close(done)
			p.Quit()
		}()

		// Start TUI
		if _, err := p.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "TUI error: %v\n", err)
			cancel()
		}

		// the TUI may quit on 'q' before the run finished
		select {
		case <-done:
		default:
			cancel()
			<-done
		}
	} else {
		// Non-dashboard mode: progress bar and summary on stderr
		console := presenter.NewConsole(os.Stderr)
		useCase.RegisterMetricsObserver(console)

		fmt.Fprintf(os.Stderr, "Collecting from %d input texts...\n", len(texts))
		report, runErr = useCase.Execute(ctx, texts)
		console.Finish()
	}

	if report != nil {
		fmt.Fprintln(os.Stderr, presenter.RenderSummary(report, presenter.TerminalWidth()))
	}

	if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			fmt.Fprintln(os.Stderr, "Run cancelled")
		} else {
			fmt.Fprintf(os.Stderr, "Run error: %v\n", runErr)
		}
		return 1
	}
	return 0
}

// openLogOutput selects the log destination, the dashboard owns the terminal so logs go nowhere without a file
func openLogOutput(config *cli.Config) (io.Writer, func(), error) {
	if config.LogFile != "" {
		file, err := os.OpenFile(config.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		return file, func() { file.Close() }, nil
	}
	if config.ShowDashboard {
		return io.Discard, func() {}, nil
	}
	return os.Stderr, func() {}, nil
}
