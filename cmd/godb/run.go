package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// newRunCmd executes a file of semicolon-terminated statements
// non-interactively, a scriptable driver over the same parser/engine
// path the REPL uses.
func newRunCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "run <script.sql>",
		Short: "execute a file of semicolon-terminated statements",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, cat, log, err := bootstrap(v)
			if err != nil {
				return err
			}
			defer cat.Close()

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open script: %w", err)
			}
			defer f.Close()

			var buf strings.Builder
			scanner := bufio.NewScanner(f)
			for scanner.Scan() {
				line := strings.TrimSpace(scanner.Text())
				if line == "" || strings.HasPrefix(line, "--") {
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
						return nil
					}
					return err
				}
			}
			return scanner.Err()
		},
	}
}
