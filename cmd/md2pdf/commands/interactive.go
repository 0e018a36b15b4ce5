// Copyright 2026 Conductor OSS
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.
package commands

import (
	"bufio"
	"context"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	md2pdf "github.com/nicholasgasior/md2pdf-go"
)

const interactiveHelp = `Enter one or more paths to convert the first of them.
Commands:
  status   show the current state
  reset    clear a ready result
  dismiss  clear an error
  help     show this help
  quit     wait for pending conversions and exit`

func newInteractiveCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "interactive",
		Aliases: []string{"i"},
		Short:   "Convert files as their paths are entered",
		Long: `Interactive reads paths from standard input and converts them without
waiting for the previous conversion to finish. A newer submission always
replaces an older one: the result of a superseded conversion is discarded.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}
			s := opts.newSession(cmd, cfg)
			cancel := s.controller.Subscribe(s.presenter.Render)
			defer cancel()

			return s.interact(cmd.Context(), cmd.InOrStdin())
		},
	}
}

func (s *session) interact(ctx context.Context, in io.Reader) error {
	s.presenter.Println(interactiveHelp)

	var pending sync.WaitGroup
	defer func() {
		pending.Wait()
		if s.controller.State().Phase == md2pdf.PhaseReady {
			_ = s.controller.Reset()
		}
	}()

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
		case "quit", "exit":
			return nil
		case "help":
			s.presenter.Println(interactiveHelp)
		case "status":
			s.presenter.Status(s.controller.State())
		case "reset":
			if err := s.controller.Reset(); err != nil {
				s.presenter.Warn("%v", err)
			}
		case "dismiss":
			if err := s.controller.Dismiss(); err != nil {
				s.presenter.Warn("%v", err)
			}
		default:
			req, err := s.acquisition.AcceptDrop(ctx, localFiles(splitPaths(line)))
			if err != nil {
				// The failure is rendered by the subscriber.
				continue
			}
			pending.Add(1)
			go func() {
				defer pending.Done()
				select {
				case <-req.Done():
				case <-ctx.Done():
					return
				}
				if req.Applied() && req.Result().OK() {
					_ = s.reportDelivery(req, req.Result().Artifact)
				}
			}()
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return scanner.Err()
}

// splitPaths treats a line naming an existing file as a single path,
// otherwise splits it on whitespace. Surrounding quotes are removed.
func splitPaths(line string) []string {
	if unquoted := strings.Trim(line, `"'`); fileExists(unquoted) {
		return []string{unquoted}
	}
	fields := strings.Fields(line)
	for i, f := range fields {
		fields[i] = strings.Trim(f, `"'`)
	}
	return fields
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
