package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/travisleebounds/Beta-Gold/internal/ingest"
)

// recentOutcomes is how many per-file results stay visible in the view.
const recentOutcomes = 8

type progressMsg struct {
	p  ingest.Progress
	ok bool
}

type batchDoneMsg struct {
	checkpoint *ingest.Checkpoint
	err        error
}

// batchModel renders a running batch: counters, a progress bar and the
// most recent per-file outcomes.
type batchModel struct {
	updates <-chan ingest.Progress
	result  <-chan batchDoneMsg
	cancel  func()
	styles  *styles
	bar     progress.Model
	spin    spinner.Model

	processed  int
	total      int
	recent     []ingest.Progress
	checkpoint *ingest.Checkpoint
	err        error
	finished   bool
	canceled   bool
}

// RunBatch drives a batch ingestion under an interactive progress view.
// The run function receives the progress callback to hand to the engine
// and executes the batch; it runs on its own goroutine. cancel is invoked
// when the user stops the run; the batch checkpoints and returns.
func RunBatch(run func(onProgress func(ingest.Progress)) (*ingest.Checkpoint, error), cancel func()) (*ingest.Checkpoint, error) {
	updates := make(chan ingest.Progress, 16)
	result := make(chan batchDoneMsg, 1)

	go func() {
		cp, err := run(func(p ingest.Progress) {
			updates <- p
		})
		close(updates)
		result <- batchDoneMsg{checkpoint: cp, err: err}
	}()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	m := batchModel{
		updates: updates,
		result:  result,
		cancel:  cancel,
		styles:  defaultStyles(),
		bar:     progress.New(progress.WithDefaultGradient()),
		spin:    sp,
	}

	final, err := tea.NewProgram(m).Run()
	if err != nil {
		return nil, err
	}

	fm := final.(batchModel)
	if fm.canceled && !fm.finished {
		return fm.checkpoint, fmt.Errorf("batch interrupted")
	}
	return fm.checkpoint, fm.err
}

func (m batchModel) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, m.waitForProgress())
}

func (m batchModel) waitForProgress() tea.Cmd {
	return func() tea.Msg {
		p, ok := <-m.updates
		if !ok {
			return <-m.result
		}
		return progressMsg{p: p, ok: true}
	}
}

func (m batchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			// Stop the batch but keep consuming progress until it has
			// checkpointed and returned.
			m.canceled = true
			if m.cancel != nil {
				m.cancel()
			}
			return m, nil
		}

	case progressMsg:
		m.processed = msg.p.Processed
		m.total = msg.p.Total
		m.recent = append(m.recent, msg.p)
		if len(m.recent) > recentOutcomes {
			m.recent = m.recent[len(m.recent)-recentOutcomes:]
		}
		return m, m.waitForProgress()

	case batchDoneMsg:
		m.checkpoint = msg.checkpoint
		m.err = msg.err
		m.finished = true
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m batchModel) View() string {
	var b strings.Builder

	b.WriteString(m.styles.Title.Render("Batch ingestion"))
	b.WriteString("\n\n")

	percent := 0.0
	if m.total > 0 {
		percent = float64(m.processed) / float64(m.total)
	}
	b.WriteString(fmt.Sprintf("%s %d / %d files\n", m.spin.View(), m.processed, m.total))
	b.WriteString(m.bar.ViewAs(percent))
	b.WriteString("\n\n")

	for _, p := range m.recent {
		line := fmt.Sprintf("%-10s %s", p.Result.Status, p.File)
		switch p.Result.Status {
		case ingest.StatusError:
			b.WriteString(m.styles.Error.Render(line))
		case ingest.StatusSkipped:
			b.WriteString(m.styles.Muted.Render(line))
		default:
			b.WriteString(m.styles.StageOK.Render(line))
		}
		b.WriteString("\n")
	}

	if m.finished && m.checkpoint != nil {
		s := m.checkpoint.Stats
		b.WriteString("\n" + m.styles.Gold.Render(fmt.Sprintf(
			"done: %d ingested, %d skipped, %d errors", s.Ingested, s.Skipped, s.Errors)) + "\n")
	} else {
		b.WriteString("\n" + m.styles.Muted.Render("q to stop (progress is checkpointed)") + "\n")
	}

	return b.String()
}
