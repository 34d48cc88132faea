package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/ebbcash/ebb/internal/model"
)

// ReviewDecision is what the user chose for one suggestion.
type ReviewDecision string

// Review decisions.
const (
	DecisionAccept ReviewDecision = "accept"
	DecisionSkip   ReviewDecision = "skip"
	DecisionQuit   ReviewDecision = "quit"
)

// ReviewOutcome summarizes an interactive suggestion review session.
type ReviewOutcome struct {
	Accepted []model.RecurringSuggestion
	Skipped  int
	Quit     bool
}

// AcceptFunc persists one accepted suggestion. Review calls it before
// moving to the next prompt, so an interrupted session keeps every
// acceptance already confirmed.
type AcceptFunc func(model.RecurringSuggestion) error

// ReviewPrompter walks detected recurring suggestions one by one and asks
// the user to accept or skip each. It owns only the conversation;
// acceptances are handed to the caller's AcceptFunc as they happen.
type ReviewPrompter struct {
	startTime   time.Time
	writer      io.Writer
	reader      *LineReader
	progressBar *progressbar.ProgressBar
	total       int
}

// NewReviewPrompter creates a review prompter on the given streams.
// Nil streams fall back to stdin and stdout.
func NewReviewPrompter(reader io.Reader, writer io.Writer) *ReviewPrompter {
	if reader == nil {
		reader = os.Stdin
	}
	if writer == nil {
		writer = os.Stdout
	}
	return &ReviewPrompter{
		reader:    NewLineReader(reader),
		writer:    writer,
		startTime: time.Now(),
	}
}

// Review presents each suggestion and collects the user's decisions.
// Accepted suggestions go through onAccept immediately; a nil onAccept
// just collects them. Quitting keeps everything decided so far; a context
// cancellation does the same, so interrupting mid-session never loses
// accepted rules.
func (p *ReviewPrompter) Review(ctx context.Context, suggestions []model.RecurringSuggestion, onAccept AcceptFunc) (ReviewOutcome, error) {
	outcome := ReviewOutcome{}
	if len(suggestions) == 0 {
		return outcome, nil
	}

	p.total = len(suggestions)
	p.initProgressBar()

	if _, err := fmt.Fprintln(p.writer, FormatTitle(fmt.Sprintf("Reviewing %d detected patterns", p.total))); err != nil {
		return outcome, fmt.Errorf("failed to write review title: %w", err)
	}

	for _, suggestion := range suggestions {
		decision, err := p.reviewOne(ctx, suggestion)
		if err != nil {
			if ctx.Err() != nil {
				return outcome, nil
			}
			return outcome, err
		}

		switch decision {
		case DecisionAccept:
			if onAccept != nil {
				if err := onAccept(suggestion); err != nil {
					return outcome, fmt.Errorf("failed to keep accepted pattern %q: %w", suggestion.Name, err)
				}
			}
			outcome.Accepted = append(outcome.Accepted, suggestion)
		case DecisionSkip:
			outcome.Skipped++
		case DecisionQuit:
			outcome.Quit = true
			return outcome, nil
		}
		p.advanceProgress()
	}

	p.showCompletion(outcome)
	return outcome, nil
}

func (p *ReviewPrompter) reviewOne(ctx context.Context, suggestion model.RecurringSuggestion) (ReviewDecision, error) {
	select {
	case <-ctx.Done():
		return DecisionQuit, ctx.Err()
	default:
	}

	if _, err := fmt.Fprintln(p.writer, RenderBox("Detected Pattern", p.formatSuggestion(suggestion))); err != nil {
		return DecisionQuit, fmt.Errorf("failed to write suggestion box: %w", err)
	}
	if _, err := fmt.Fprintln(p.writer, "  [a] Accept as recurring rule  [s] Skip  [q] Quit review"); err != nil {
		return DecisionQuit, fmt.Errorf("failed to write options: %w", err)
	}

	choice, err := p.promptChoice(ctx, "Decision", []string{"a", "s", "q"})
	if err != nil {
		return DecisionQuit, err
	}

	switch choice {
	case "a":
		return DecisionAccept, nil
	case "s":
		return DecisionSkip, nil
	default:
		return DecisionQuit, nil
	}
}

func (p *ReviewPrompter) formatSuggestion(suggestion model.RecurringSuggestion) string {
	name := suggestion.Name
	if name == "" {
		name = "(unnamed)"
	}

	return fmt.Sprintf("%s\n\n", TitleStyle.UnsetMargins().Render(name)) +
		fmt.Sprintf("  Amount:      %s per %s\n", FormatAmount(suggestion.Amount), suggestion.Interval) +
		fmt.Sprintf("  Category:    %s\n", suggestion.CategoryName) +
		fmt.Sprintf("  Account:     %s\n", suggestion.AccountName) +
		fmt.Sprintf("  Seen:        %d times since %s\n", suggestion.Occurrences, suggestion.FirstDate.Format("Jan 2, 2006"))
}

func (p *ReviewPrompter) promptChoice(ctx context.Context, prompt string, validChoices []string) (string, error) {
	for {
		if _, err := fmt.Fprintf(p.writer, "%s: ", FormatPrompt(prompt)); err != nil {
			return "", fmt.Errorf("failed to write prompt: %w", err)
		}

		input, err := p.reader.ReadLine(ctx)
		if err != nil {
			if err == io.EOF {
				return "", fmt.Errorf("input terminated")
			}
			return "", err
		}

		choice := strings.ToLower(input)
		for _, valid := range validChoices {
			if choice == valid {
				return choice, nil
			}
		}

		if _, err := fmt.Fprintln(p.writer, FormatError("Invalid choice. Please try again.")); err != nil {
			slog.Warn("Failed to write error message", "error", err)
		}
	}
}

func (p *ReviewPrompter) initProgressBar() {
	p.progressBar = progressbar.NewOptions(p.total,
		progressbar.OptionSetWriter(p.writer),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]Reviewing patterns...[reset]"),
		progressbar.OptionOnCompletion(func() {
			if _, err := fmt.Fprintln(p.writer); err != nil {
				slog.Warn("Failed to write newline after progress bar", "error", err)
			}
		}),
	)
}

func (p *ReviewPrompter) advanceProgress() {
	if p.progressBar != nil {
		if err := p.progressBar.Add(1); err != nil {
			slog.Warn("Failed to update progress bar", "error", err)
		}
	}
}

func (p *ReviewPrompter) showCompletion(outcome ReviewOutcome) {
	if p.progressBar != nil {
		if err := p.progressBar.Finish(); err != nil {
			slog.Warn("Failed to finish progress bar", "error", err)
		}
	}

	summary := fmt.Sprintf("  Accepted: %d\n", len(outcome.Accepted)) +
		fmt.Sprintf("  Skipped:  %d\n", outcome.Skipped) +
		fmt.Sprintf("  Took:     %s\n", time.Since(p.startTime).Round(time.Second))

	if _, err := fmt.Fprintln(p.writer, RenderBox("Review Complete", summary)); err != nil {
		slog.Warn("Failed to write completion box", "error", err)
	}
}

// ConfirmAction asks a yes/no question and returns the answer. Anything
// other than y or yes counts as no.
func ConfirmAction(ctx context.Context, reader io.Reader, writer io.Writer, question string) (bool, error) {
	if reader == nil {
		reader = os.Stdin
	}
	if writer == nil {
		writer = os.Stdout
	}

	if _, err := fmt.Fprintf(writer, "%s [y/N]: ", FormatPrompt(question)); err != nil {
		return false, fmt.Errorf("failed to write question: %w", err)
	}

	answer, err := NewLineReader(reader).ReadLine(ctx)
	if err != nil {
		if err == io.EOF {
			return false, nil
		}
		return false, err
	}

	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
