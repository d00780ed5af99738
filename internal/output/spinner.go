package output

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"golang.org/x/term"
)

// SpinnerInterval is the time between spinner frame updates
const SpinnerInterval = 100 * time.Millisecond

var defaultFrames = []rune{'⠋', '⠙', '⠹', '⠸', '⠼', '⠴', '⠦', '⠧', '⠇', '⠏'}

// Spinner animates a label while a step runs. On a non-terminal writer it
// prints the label once.
type Spinner struct {
	label      string
	startTime  time.Time
	frames     []rune
	frameIndex int
	isTTY      bool
	mu         sync.Mutex
	active     bool
	stopChan   chan struct{}
	doneChan   chan struct{}
	writer     io.Writer
}

// NewSpinner creates a Spinner for label.
func NewSpinner(label string, writer io.Writer) *Spinner {
	if writer == nil {
		writer = os.Stdout
	}

	isTTY := false
	if f, ok := writer.(*os.File); ok {
		isTTY = term.IsTerminal(int(f.Fd()))
	}

	return &Spinner{
		label:     label,
		startTime: time.Now(),
		frames:    defaultFrames,
		isTTY:     isTTY,
		stopChan:  make(chan struct{}),
		doneChan:  make(chan struct{}),
		writer:    writer,
	}
}

// Start begins the spinner animation
func (s *Spinner) Start() {
	s.mu.Lock()
	if s.active {
		s.mu.Unlock()
		return
	}
	s.active = true
	s.startTime = time.Now()
	s.mu.Unlock()

	go s.loop()
}

// Stop stops the spinner and prints finalMessage if it is not empty.
func (s *Spinner) Stop(finalMessage string) {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}
	s.active = false
	s.mu.Unlock()

	close(s.stopChan)
	<-s.doneChan

	if s.isTTY {
		fmt.Fprint(s.writer, "\r\033[K")
	}
	if finalMessage != "" {
		fmt.Fprintln(s.writer, finalMessage)
	}
}


func (s *Spinner) loop() {
	defer close(s.doneChan)

	if !s.isTTY {
		fmt.Fprintf(s.writer, "%s...\n", s.label)
		<-s.stopChan
		return
	}

	ticker := time.NewTicker(SpinnerInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.render()
		}
	}
}

func (s *Spinner) render() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return
	}

	elapsed := time.Since(s.startTime)
	frame := s.frames[s.frameIndex]
	s.frameIndex = (s.frameIndex + 1) % len(s.frames)
	fmt.Fprintf(s.writer, "\r%c %s (%d:%02d)", frame, s.label, int(elapsed.Minutes()), int(elapsed.Seconds())%60)
}
