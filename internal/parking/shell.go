package parking

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Ledger is the command interface a presentation layer drives.
type Ledger interface {
	Park(ctx context.Context, index int, plate string) (Occupancy, error)
	Release(ctx context.Context, index int) (Transaction, error)
	Snapshot(ctx context.Context) Snapshot
	FindByPlate(ctx context.Context, plate string) (SpotView, error)
}

// TransactionHistory is implemented by stores that can replay what they
// recorded.
type TransactionHistory interface {
	Transactions(ctx context.Context) ([]Transaction, error)
}

type Shell struct {
	ledger    Ledger
	history   TransactionHistory
	currency  string
	scanner   *bufio.Scanner
	out       io.Writer
	telemetry *TelemetryProvider
}

type ShellOption func(*Shell)

func WithHistory(history TransactionHistory) ShellOption {
	return func(s *Shell) {
		s.history = history
	}
}

func WithCurrency(currency string) ShellOption {
	return func(s *Shell) {
		s.currency = currency
	}
}

func NewShell(ledger Ledger, telemetry *TelemetryProvider, in io.Reader, out io.Writer, opts ...ShellOption) *Shell {
	s := &Shell{
		ledger:    ledger,
		currency:  "TL",
		scanner:   bufio.NewScanner(in),
		out:       out,
		telemetry: telemetry,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run reads commands until the input is exhausted or ctx is cancelled.
func (s *Shell) Run(ctx context.Context) {
	tracer := s.telemetry.Tracer()
	ctx, span := tracer.Start(ctx, "shell.run")
	defer span.End()

	lines := make(chan string)
	go func() {
		defer close(lines)
		for s.scanner.Scan() {
			select {
			case lines <- s.scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			span.AddEvent("shell_cancelled")
			return
		case line, ok := <-lines:
			if !ok {
				span.AddEvent("shell_ended")
				return
			}
			input := strings.TrimSpace(line)
			if input == "" {
				continue
			}

			cmdCtx, cmdSpan := tracer.Start(ctx, "shell.process_command",
				trace.WithAttributes(attribute.String("command.input", input)))
			s.processCommand(cmdCtx, input)
			cmdSpan.End()
		}
	}
}

func (s *Shell) processCommand(ctx context.Context, input string) {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return
	}

	command := parts[0]
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("command.name", command))

	switch command {
	case "park":
		s.handlePark(ctx, parts)
	case "release", "leave":
		s.handleRelease(ctx, parts)
	case "status":
		s.handleStatus(ctx)
	case "find":
		s.handleFind(ctx, parts)
	case "history":
		s.handleHistory(ctx)
	default:
		fmt.Fprintf(s.out, "Unknown command: %s\n", command)
	}
}

func (s *Shell) handlePark(ctx context.Context, parts []string) {
	if len(parts) != 3 {
		fmt.Fprintln(s.out, "Usage: park <spot_index> <plate>")
		return
	}

	index, err := strconv.Atoi(parts[1])
	if err != nil {
		fmt.Fprintln(s.out, "Invalid spot index")
		return
	}

	occupancy, err := s.ledger.Park(ctx, index, parts[2])
	if err != nil {
		fmt.Fprintf(s.out, "Error: %s\n", describe(err))
		return
	}

	fmt.Fprintf(s.out, "Parked %s at spot %d (entry %s)\n",
		occupancy.Plate, occupancy.SpotIndex, occupancy.EntryTime.Format("15:04:05"))
}

func (s *Shell) handleRelease(ctx context.Context, parts []string) {
	if len(parts) != 2 {
		fmt.Fprintln(s.out, "Usage: release <spot_index>")
		return
	}

	index, err := strconv.Atoi(parts[1])
	if err != nil {
		fmt.Fprintln(s.out, "Invalid spot index")
		return
	}

	tx, err := s.ledger.Release(ctx, index)
	if err != nil {
		fmt.Fprintf(s.out, "Error: %s\n", describe(err))
		return
	}

	fmt.Fprintf(s.out, "Plate: %s\nTotal parking time: %d minutes\nFee: %s %s\n",
		tx.Plate, tx.DurationMinutes, tx.Fee, s.currency)
}

func (s *Shell) handleStatus(ctx context.Context) {
	snap := s.ledger.Snapshot(ctx)

	fmt.Fprintf(s.out, "Total capacity: %d | Occupied: %d\n", snap.Capacity, snap.OccupiedCount)
	for _, v := range snap.Spots {
		if v.State == SpotStateOccupied {
			fmt.Fprintf(s.out, "%d\toccupied\t%s\t%s\n", v.Index, v.Plate, v.EntryTime.Format("15:04:05"))
			continue
		}
		fmt.Fprintf(s.out, "%d\tempty\n", v.Index)
	}
}

func (s *Shell) handleFind(ctx context.Context, parts []string) {
	if len(parts) != 2 {
		fmt.Fprintln(s.out, "Usage: find <plate>")
		return
	}

	view, err := s.ledger.FindByPlate(ctx, parts[1])
	if err != nil {
		fmt.Fprintln(s.out, "Not found")
		return
	}

	fmt.Fprintf(s.out, "%d\n", view.Index)
}

func (s *Shell) handleHistory(ctx context.Context) {
	if s.history == nil {
		fmt.Fprintln(s.out, "History not available")
		return
	}

	txs, err := s.history.Transactions(ctx)
	if err != nil {
		fmt.Fprintf(s.out, "Error: %s\n", describe(err))
		return
	}
	if len(txs) == 0 {
		fmt.Fprintln(s.out, "No transactions")
		return
	}

	fmt.Fprintln(s.out, "Exit time\t\tPlate\tMinutes\tFee")
	for _, tx := range txs {
		fmt.Fprintf(s.out, "%s\t%s\t%d\t%s %s\n",
			tx.ExitTime.Format(ExitTimeLayout), tx.Plate, tx.DurationMinutes, tx.Fee, s.currency)
	}
}

func describe(err error) string {
	switch {
	case errors.Is(err, ErrInvalidSpotIndex):
		return "no such spot"
	case errors.Is(err, ErrInvalidPlate):
		return "plate must not be empty"
	case errors.Is(err, ErrSpotOccupied):
		return "spot is already occupied"
	case errors.Is(err, ErrSpotEmpty):
		return "spot is already empty"
	case errors.Is(err, ErrIOFailure):
		return "could not record the transaction, try again"
	default:
		return err.Error()
	}
}
