// Command cpurunner drives a ROM instruction-by-instruction and watches
// its serial output for a pass/fail marker, for test-ROM automation.
package main

import (
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	"github.com/sirupsen/logrus"

	"github.com/dmgcam/gbcam/internal/emu"
)

type cli struct {
	ROM         string        `arg:"" help:"path to ROM (.gb)"`
	Steps       int           `default:"5000000" help:"max instructions to run"`
	Until       string        `default:"Passed" help:"stop when serial output contains this substring; empty to disable"`
	Auto        bool          `help:"auto-detect 'Passed' or 'Failed N tests' in serial output and exit 0/1"`
	Timeout     time.Duration `help:"optional wall-clock timeout (e.g. 30s); 0 disables"`
	TraceOnFail bool          `help:"on -auto failure, log the tail of serial output"`
}

func main() {
	var c cli
	kong.Parse(&c)

	rom, err := os.ReadFile(c.ROM)
	if err != nil {
		logrus.Fatalf("read rom: %v", err)
	}

	m := emu.New(emu.Config{})
	if err := m.LoadCartridge(rom); err != nil {
		logrus.Fatalf("load cartridge: %v", err)
	}

	start := time.Now()
	var deadline time.Time
	if c.Timeout > 0 {
		deadline = start.Add(c.Timeout)
	}
	failRe := regexp.MustCompile(`(?i)failed\s+(\d+)\s+tests?`)

	for i := 0; i < c.Steps; i++ {
		m.StepInstruction()
		serial := m.SerialOutput()

		if c.Auto {
			if strings.Contains(strings.ToLower(serial), "passed") {
				logrus.Infof("PASS after %d steps, elapsed %s", i+1, time.Since(start).Truncate(time.Millisecond))
				os.Exit(0)
			}
			if match := failRe.FindString(serial); match != "" {
				logrus.Errorf("FAIL (%s) after %d steps, elapsed %s", match, i+1, time.Since(start).Truncate(time.Millisecond))
				if c.TraceOnFail {
					tail := serial
					if len(tail) > 2048 {
						tail = tail[len(tail)-2048:]
					}
					logrus.Errorf("serial tail:\n%s", tail)
				}
				os.Exit(1)
			}
		} else if c.Until != "" {
			if strings.Contains(strings.ToLower(serial), strings.ToLower(c.Until)) {
				logrus.Infof("detected %q after %d steps, elapsed %s", c.Until, i+1, time.Since(start).Truncate(time.Millisecond))
				return
			}
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			logrus.Warnf("timeout after %s", time.Since(start).Truncate(time.Millisecond))
			os.Exit(2)
		}
	}
	logrus.Infof("done: steps=%d elapsed=%s", c.Steps, time.Since(start).Truncate(time.Millisecond))
}
