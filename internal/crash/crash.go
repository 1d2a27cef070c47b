/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package crash turns a panic into a logged error, a crash report on disk
// and a last-chance layout save.
package crash

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"time"

	"plotboard/internal/config"
	"plotboard/internal/idgen"
	applog "plotboard/internal/log"
	"plotboard/internal/telemetry"
	"plotboard/internal/version"
)

// Flusher writes pending board changes. *board.Board and *autosave.Saver
// satisfy it.
type Flusher interface {
	Flush(ctx context.Context) error
}

// exitFn is used to allow testing of Recover without terminating the test process.
var exitFn = os.Exit

// reportDir is where crash reports go; the config dir when available.
var reportDir = func() string {
	if dir, err := config.ConfigDir(); err == nil {
		return filepath.Join(dir, "crash")
	}
	return os.TempDir()
}

// uploader sends the report when crash uploads are opted into.
var uploader = telemetry.Default

// flushTimeout bounds the last-chance save and the upload.
const flushTimeout = 5 * time.Second

// Recover captures a panic, logs it with a stack trace, writes a report file
// and flushes the board's pending layout (if f is non-nil).
//
// Usage: defer crash.Recover(b)
func Recover(f Flusher) {
	r := recover()
	if r == nil {
		return
	}
	l := applog.WithComponent("crash")
	stack := debug.Stack()
	l.Error("panic recovered", slog.Any("panic", r), slog.String("stack", string(stack)))

	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()
	if f != nil {
		if err := f.Flush(ctx); err != nil {
			l.Error("layout flush after panic failed", slog.Any("err", err))
		} else {
			l.Info("pending layout flushed")
		}
	}
	reportPath, report, err := writeReport(reportDir(), r, stack)
	if err != nil {
		l.Error("write crash report failed", slog.Any("err", err), slog.String("path", reportPath))
	}
	if err := uploader().UploadCrash(ctx, report); err != nil {
		l.Warn("crash upload failed", slog.Any("err", err))
	}

	if _, err := fmt.Fprintf(os.Stderr, "A fatal error occurred. A crash report was saved to: %s\n", reportPath); err != nil {
		l.Error("failed to write crash message to stderr", slog.Any("err", err))
	}
	exitFn(2)
}

func writeReport(dir string, panicVal any, stack []byte) (path string, report []byte, err error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		dir = os.TempDir()
	}
	name := fmt.Sprintf("%s-%s.log", idgen.MustNew(idgen.CrashPrefix), time.Now().Format("20060102-150405"))
	path = filepath.Join(dir, name)

	var buf bytes.Buffer
	_, _ = fmt.Fprintf(&buf, "PlotBoard Crash Report\n")
	_, _ = fmt.Fprintf(&buf, "Timestamp: %s\n", time.Now().Format(time.RFC3339))
	_, _ = fmt.Fprintf(&buf, "Version: %s\n", version.String())
	_, _ = fmt.Fprintf(&buf, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	_, _ = fmt.Fprintf(&buf, "\nPanic: %v\n\n", panicVal)
	_, _ = fmt.Fprintf(&buf, "Stack:\n%s\n", string(stack))

	report = buf.Bytes()
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return path, report, err
	}
	if _, err := f.Write(report); err != nil {
		_ = f.Close()
		return path, report, err
	}
	_ = f.Sync()
	return path, report, f.Close()
}
