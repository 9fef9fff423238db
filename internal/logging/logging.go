// Copyright 2024 Humanitec
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
)

// SimpleHandler is a minimal slog.Handler that writes one line per record.
// It carries attrs from WithAttrs so logs forwarded through the Host ABI's
// _debug import (target/file/line) still surface them, unlike a handler
// that drops attrs entirely.
type SimpleHandler struct {
	Writer io.Writer
	Level  slog.Leveler

	mu    sync.Mutex
	attrs []slog.Attr
}

func (h *SimpleHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.Level.Level()
}

func (h *SimpleHandler) Handle(ctx context.Context, record slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", record.Level.String(), record.Message)
	for _, a := range h.attrs {
		fmt.Fprintf(&b, " %s=%v", a.Key, a.Value)
	}
	record.Attrs(func(a slog.Attr) bool {
		fmt.Fprintf(&b, " %s=%v", a.Key, a.Value)
		return true
	})
	b.WriteByte('\n')

	_, err := io.WriteString(h.Writer, b.String())
	return err
}

func (h *SimpleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &SimpleHandler{Writer: h.Writer, Level: h.Level, attrs: append(append([]slog.Attr(nil), h.attrs...), attrs...)}
}

func (h *SimpleHandler) WithGroup(name string) slog.Handler {
	// no support for groups here
	return h
}

var _ slog.Handler = (*SimpleHandler)(nil)
