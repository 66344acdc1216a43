// Package screenshot captures the screen of the device running the app
// under test by shelling out to the platform tooling.
package screenshot

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

const PlatformAndroid = "android"

// runFunc executes name with args, streaming stdout to out when non-nil.
type runFunc func(ctx context.Context, out io.Writer, name string, args ...string) error

func execRun(ctx context.Context, out io.Writer, name string, args ...string) error {
	path, err := exec.LookPath(name)
	if err != nil {
		return fmt.Errorf("%s not found: %w", name, err)
	}
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stdout = out
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// Capturer writes timestamped screenshots into a directory. Captures run
// independently of test events; failures are only logged.
type Capturer struct {
	dir    string
	logger *log.Logger
	run    runFunc
	now    func() time.Time
	wg     sync.WaitGroup
}

func NewCapturer(dir string, logger *log.Logger) *Capturer {
	return &Capturer{
		dir:    dir,
		logger: logger,
		run:    execRun,
		now:    time.Now,
	}
}

// Dir returns the directory screenshots are written to.
func (c *Capturer) Dir() string {
	return c.dir
}

// Capture takes one screenshot and returns the written path. Android
// devices are captured with adb; every other platform is treated as the
// booted iOS simulator.
func (c *Capturer) Capture(ctx context.Context, platform string) (string, error) {
	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return "", fmt.Errorf("create screenshot dir: %w", err)
	}
	path := filepath.Join(c.dir, fmt.Sprintf("screenshot_%d.png", c.now().UnixMilli()))

	if platform == PlatformAndroid {
		f, err := os.Create(path)
		if err != nil {
			return "", fmt.Errorf("create %s: %w", path, err)
		}
		err = c.run(ctx, f, "adb", "exec-out", "screencap", "-p")
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			os.Remove(path)
			return "", err
		}
		return path, nil
	}

	if err := c.run(ctx, nil, "xcrun", "simctl", "io", "booted", "screenshot", path); err != nil {
		return "", err
	}
	return path, nil
}

// CaptureAsync starts a capture in the background and logs its outcome.
func (c *Capturer) CaptureAsync(ctx context.Context, platform string) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		path, err := c.Capture(ctx, platform)
		if err != nil {
			c.logger.Error("Error taking screenshot", "platform", platform, "err", err)
			return
		}
		c.logger.Info("Screenshot saved", "platform", platform, "path", path)
	}()
}

// Wait blocks until every capture started with CaptureAsync has finished.
func (c *Capturer) Wait() {
	c.wg.Wait()
}
