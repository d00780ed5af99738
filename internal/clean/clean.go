// Package clean removes build output and boidsweb's own state.
package clean

import (
	"fmt"
	"os"

	"github.com/catdevz/boidsweb/internal/config"
	"github.com/catdevz/boidsweb/internal/events"
	"github.com/catdevz/boidsweb/internal/lock"
	"github.com/catdevz/boidsweb/internal/stage"
)

// CleanResult represents the result of a clean operation
type CleanResult struct {
	Name    string
	Success bool
	Message string
}

// Cleaner performs cleanup operations for one project
type Cleaner struct {
	Config *config.Config
	DryRun bool
}

// New creates a new Cleaner
func New(cfg *config.Config) *Cleaner {
	return &Cleaner{Config: cfg}
}

// SetDryRun enables dry-run mode
func (c *Cleaner) SetDryRun(dryRun bool) {
	c.DryRun = dryRun
}

// CleanAll removes the output directory and a stale lock. With state set it
// also removes logs and recorded build events.
func (c *Cleaner) CleanAll(state bool) []CleanResult {
	var results []CleanResult
	results = append(results, c.CleanOutput()...)
	results = append(results, c.CleanLock()...)
	if state {
		results = append(results, c.CleanLogs()...)
		results = append(results, c.CleanEvents()...)
	}
	return results
}

// CleanOutput removes the staged output directory.
func (c *Cleaner) CleanOutput() []CleanResult {
	return c.remove("Output", c.Config.Resolve(c.Config.Web.OutDir), stage.RemoveOutputDirectory)
}

// CleanLogs removes rotated build logs.
func (c *Cleaner) CleanLogs() []CleanResult {
	return c.remove("Logs", c.Config.LogDir(), os.RemoveAll)
}

// CleanEvents removes recorded build event streams.
func (c *Cleaner) CleanEvents() []CleanResult {
	return c.remove("Events", events.Dir(c.Config.Resolve(c.Config.State.Dir)), os.RemoveAll)
}

// CleanLock removes the lock file unless a live build holds it.
func (c *Cleaner) CleanLock() []CleanResult {
	path := c.Config.LockPath()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if info, err := lock.ReadLockInfo(path); err == nil && lock.ProcessAlive(info.PID) {
		return []CleanResult{{
			Name:    "Lock",
			Success: false,
			Message: fmt.Sprintf("Held by running build (PID: %d), not removed", info.PID),
		}}
	}
	return c.remove("Lock", path, os.Remove)
}

func (c *Cleaner) remove(name, path string, remove func(string) error) []CleanResult {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if c.DryRun {
		return []CleanResult{{Name: name, Success: true, Message: fmt.Sprintf("Would delete %s", path)}}
	}
	if err := remove(path); err != nil {
		return []CleanResult{{Name: name, Success: false, Message: fmt.Sprintf("Failed to delete: %v", err)}}
	}
	return []CleanResult{{Name: name, Success: true, Message: fmt.Sprintf("Deleted %s", path)}}
}
