package output

import (
	"fmt"
	"sync"
	"time"

	"github.com/catdevz/boidsweb/internal/pipeline"
)

// Progress prints one line per build step. Steps that run an external tool
// stream that tool's output, so only the quiet filesystem steps get a
// spinner.
type Progress struct {
	out      *OutputFormatter
	mu       sync.Mutex
	spinners map[pipeline.StepName]*Spinner
}

// NewProgress creates a Progress observer writing through out.
func NewProgress(out *OutputFormatter) *Progress {
	return &Progress{out: out, spinners: map[pipeline.StepName]*Spinner{}}
}

// BuildStarted implements pipeline.Observer.
func (p *Progress) BuildStarted(steps []pipeline.Step) {
	p.out.Info(p.out.Bold(fmt.Sprintf("Building (%d steps)", len(steps))))
}

// StepStarted implements pipeline.Observer.
func (p *Progress) StepStarted(step pipeline.Step) {
	if streamsOutput(step.Name) {
		p.out.Info(fmt.Sprintf("%s %s", p.out.Bold(string(step.Name)), p.out.Dim(step.Description)))
		return
	}
	s := NewSpinner(string(step.Name), p.out.Writer())
	p.mu.Lock()
	p.spinners[step.Name] = s
	p.mu.Unlock()
	s.Start()
}

// StepFinished implements pipeline.Observer.
func (p *Progress) StepFinished(step pipeline.Step, elapsed time.Duration, err error) {
	p.mu.Lock()
	s := p.spinners[step.Name]
	delete(p.spinners, step.Name)
	p.mu.Unlock()
	if s != nil {
		s.Stop("")
	}

	line := fmt.Sprintf("%s (%s)", step.Name, formatDuration(elapsed))
	if err != nil {
		p.out.Error(line)
		return
	}
	p.out.Success(line)
}

// BuildFinished implements pipeline.Observer.
func (p *Progress) BuildFinished(result *pipeline.Result, err error) {
	if err != nil {
		return
	}
	p.out.Success(fmt.Sprintf("Built %s in %s", p.out.Path(result.OutDir), formatDuration(result.Duration)))
	for _, f := range result.Files {
		p.out.Detail(f)
	}
}

func streamsOutput(name pipeline.StepName) bool {
	return name == pipeline.StepCompile || name == pipeline.StepBindgen
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(100 * time.Millisecond).String()
}
