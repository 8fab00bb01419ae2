package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"go.uber.org/zap"

	"godb/internal/engine"
)

// runREPL drives an interactive session, buffering lines until a
// semicolon terminates a statement — the same multi-line contract the
// teacher's runREPL used, rebuilt on chzyer/readline for history and
// line editing.
func runREPL(eng *engine.Engine, log *zap.SugaredLogger) error {
	rl, err := readline.New("godb> ")
	if err != nil {
		return fmt.Errorf("init readline: %w", err)
	}
	defer rl.Close()

	fmt.Println("godb storage engine — type SQL statements, EXIT; to quit.")

	var buf strings.Builder
	for {
		prompt := "godb> "
		if buf.Len() > 0 {
			prompt = "...> "
		}
		rl.SetPrompt(prompt)

		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, readline.ErrInterrupt) {
				fmt.Println("\nbye.")
				return nil
			}
			return fmt.Errorf("readline: %w", err)
		}

		line = strings.TrimSpace(line)
		if buf.Len() == 0 && line == "" {
			continue
		}

		if buf.Len() > 0 {
			buf.WriteString(" ")
		}
		buf.WriteString(line)

		if !strings.HasSuffix(line, ";") {
			continue
		}

		statement := buf.String()
		buf.Reset()

		if err := dispatch(eng, log, statement); err != nil {
			if errors.Is(err, errExit) {
				fmt.Println("bye.")
				return nil
			}
			return err
		}
	}
}
