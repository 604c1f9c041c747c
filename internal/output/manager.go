package output

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"
)

type FunctionOutput struct {
	ID          int
	Label       string
	Status      string
	Message     string
	StreamLines []string
	Complete    bool
	Bytes       int64
	StartTime   time.Time
	LastUpdated time.Time
	Error       error
}

type ErrorReport struct {
	FunctionName string
	Error        error
	Time         time.Time
}

// Manager tracks one entry per job and, when live, redraws them on a ticker.
// All methods are safe for concurrent use.
type Manager struct {
	out           io.Writer
	live          bool
	outputs       map[int]*FunctionOutput
	mutex         sync.RWMutex
	numLines      int
	errors        []ErrorReport
	doneCh        chan struct{}
	displayTick   time.Duration
	functionCount int
	displayWg     sync.WaitGroup
	stopOnce      sync.Once
}

func NewManager(out io.Writer, live bool) *Manager {
	return &Manager{
		out:         out,
		live:        live,
		outputs:     make(map[int]*FunctionOutput),
		doneCh:      make(chan struct{}),
		displayTick: 300 * time.Millisecond,
	}
}

func (m *Manager) RegisterFunction(label string) int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.functionCount++
	m.outputs[m.functionCount] = &FunctionOutput{
		ID:          m.functionCount,
		Label:       label,
		Status:      "pending",
		StartTime:   time.Now(),
		LastUpdated: time.Now(),
	}
	return m.functionCount
}

func (m *Manager) SetMessage(id int, message string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if info, exists := m.outputs[id]; exists {
		info.Message = message
		info.LastUpdated = time.Now()
	}
}

func (m *Manager) SetStatus(id int, status string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if info, exists := m.outputs[id]; exists {
		info.Status = status
		info.LastUpdated = time.Now()
	}
}

func (m *Manager) GetStatus(id int) string {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	if info, exists := m.outputs[id]; exists {
		return info.Status
	}
	return "unknown"
}

// UpdateProgress replaces the stream lines of id with a progress bar.
func (m *Manager) UpdateProgress(id int, downloaded, total int64) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if info, exists := m.outputs[id]; exists {
		progressBar := PrintProgressBar(downloaded, total, 30)
		elapsed := time.Since(info.StartTime).Seconds()
		text := FormatBytes(uint64(max(downloaded, 0)))
		if total > 0 {
			text += " / " + FormatBytes(uint64(total))
		}
		display := fmt.Sprintf("%s%s %s %s", progressBar, debugStyle.Render(text), StyleSymbols["bullet"], debugStyle.Render(FormatSpeed(downloaded, elapsed)))
		info.StreamLines = []string{display}
		info.Bytes = downloaded
		info.LastUpdated = time.Now()
	}
}

func (m *Manager) Complete(id int, status, message string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if info, exists := m.outputs[id]; exists {
		info.StreamLines = nil
		if message == "" {
			info.Message = fmt.Sprintf("Completed %s", info.Label)
		} else {
			info.Message = message
		}
		info.Complete = true
		info.Status = status
		info.LastUpdated = time.Now()
	}
}

func (m *Manager) ReportError(id int, err error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if info, exists := m.outputs[id]; exists {
		info.StreamLines = nil
		info.Complete = true
		info.Status = "error"
		info.Error = err
		info.Message = fmt.Sprintf("Failed %s", info.Label)
		info.LastUpdated = time.Now()
		m.errors = append(m.errors, ErrorReport{
			FunctionName: info.Label,
			Error:        err,
			Time:         time.Now(),
		})
	}
}

func (m *Manager) GetStatusIndicator(status string) string {
	switch status {
	case "success":
		return successStyle.Render(StyleSymbols["pass"])
	case "error":
		return errorStyle.Render(StyleSymbols["fail"])
	case "skipped":
		return warningStyle.Render(StyleSymbols["warning"])
	case "pending":
		return pendingStyle.Render(StyleSymbols["pending"])
	default:
		return infoStyle.Render(StyleSymbols["bullet"])
	}
}

func styleMessage(status, message string) string {
	switch status {
	case "success":
		return successStyle.Render(message)
	case "error":
		return errorStyle.Render(message)
	case "skipped":
		return warningStyle.Render(message)
	default:
		return pendingStyle.Render(message)
	}
}

func (m *Manager) sortFunctions() (active, completed []*FunctionOutput) {
	allFuncs := make([]*FunctionOutput, 0, len(m.outputs))
	for _, info := range m.outputs {
		allFuncs = append(allFuncs, info)
	}
	sort.Slice(allFuncs, func(i, j int) bool {
		return allFuncs[i].ID < allFuncs[j].ID
	})
	for _, f := range allFuncs {
		if f.Complete {
			completed = append(completed, f)
		} else {
			active = append(active, f)
		}
	}
	return active, completed
}

func (m *Manager) updateDisplay() {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	availableLines := getTerminalHeight() - 3
	if m.numLines > 0 {
		fmt.Fprintf(m.out, "\033[%dA\033[J", m.numLines)
	}

	lineCount := 0
	activeFuncs, completedFuncs := m.sortFunctions()
	totalNeeded := len(completedFuncs)
	for _, f := range activeFuncs {
		totalNeeded += 1 + len(f.StreamLines)
	}
	if totalNeeded > availableLines {
		maxCompleted := max(availableLines-(totalNeeded-len(completedFuncs)), 0)
		if len(completedFuncs) > maxCompleted {
			completedFuncs = completedFuncs[len(completedFuncs)-maxCompleted:]
		}
	}

	for _, info := range append(activeFuncs, completedFuncs...) {
		if lineCount >= availableLines {
			break
		}
		elapsed := time.Since(info.StartTime)
		if info.Complete {
			elapsed = info.LastUpdated.Sub(info.StartTime)
		}
		message := info.Message
		if message == "" {
			message = "Waiting..."
		}
		fmt.Fprintf(m.out, "%s%s %s %s\n", strings.Repeat(" ", 2), m.GetStatusIndicator(info.Status), debugStyle.Render(roundElapsed(elapsed)), styleMessage(info.Status, message))
		lineCount++
		indent := strings.Repeat(" ", 2+4)
		for _, line := range info.StreamLines {
			if lineCount >= availableLines {
				break
			}
			fmt.Fprintf(m.out, "%s%s\n", indent, streamStyle.Render(line))
			lineCount++
		}
	}
	m.numLines = lineCount
}

func (m *Manager) StartDisplay() {
	if !m.live {
		return
	}
	m.displayWg.Add(1)
	go func() {
		defer m.displayWg.Done()
		ticker := time.NewTicker(m.displayTick)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.updateDisplay()
			case <-m.doneCh:
				m.updateDisplay()
				return
			}
		}
	}()
}

// StopDisplay halts the redraw loop and prints the summary. Safe to call more
// than once.
func (m *Manager) StopDisplay() {
	m.stopOnce.Do(func() {
		close(m.doneCh)
		m.displayWg.Wait()
		m.ShowSummary()
	})
}

func (m *Manager) displayErrors() {
	if len(m.errors) == 0 {
		return
	}
	fmt.Fprintln(m.out)
	fmt.Fprintln(m.out, strings.Repeat(" ", 2)+errorStyle.Bold(true).Render("Errors:"))
	for i, err := range m.errors {
		fmt.Fprintf(m.out, "%s%s %s %s\n",
			strings.Repeat(" ", 2+2),
			errorStyle.Render(fmt.Sprintf("%d.", i+1)),
			debugStyle.Render(fmt.Sprintf("[%s]", err.Time.Format("15:04:05"))),
			errorStyle.Render(err.FunctionName))
		fmt.Fprintf(m.out, "%s%s\n", strings.Repeat(" ", 2+4), errorStyle.Render(fmt.Sprintf("Error: %v", err.Error)))
	}
}

func (m *Manager) ShowSummary() {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	fmt.Fprintln(m.out)
	var success, skipped, failures int
	var totalBytes int64
	for _, info := range m.outputs {
		switch info.Status {
		case "success":
			success++
			totalBytes += info.Bytes
		case "skipped":
			skipped++
		case "error":
			failures++
		}
	}
	fmt.Fprintln(m.out, strings.Repeat(" ", 2)+success2Style.Render(fmt.Sprintf("Completed %d of %d (%s)", success, len(m.outputs), FormatBytes(uint64(totalBytes)))))
	if skipped > 0 {
		fmt.Fprintln(m.out, strings.Repeat(" ", 2)+warningStyle.Render(fmt.Sprintf("Skipped %d of %d (already present)", skipped, len(m.outputs))))
	}
	if failures > 0 {
		fmt.Fprintln(m.out, strings.Repeat(" ", 2)+errorStyle.Render(fmt.Sprintf("Failed %d of %d", failures, len(m.outputs))))
	}
	m.displayErrors()
	fmt.Fprintln(m.out)
}
