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
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	md2pdf "github.com/nicholasgasior/md2pdf-go"
	"github.com/nicholasgasior/md2pdf-go/cmd/md2pdf/ui"
)

func newConvertCommand(opts *rootOptions) *cobra.Command {
	var (
		outDir    string
		overwrite bool
	)

	cmd := &cobra.Command{
		Use:   "convert FILE...",
		Short: "Convert a Markdown file to PDF",
		Long: `Convert uploads FILE to the conversion service and saves the PDF it
returns into the output directory. Only the first FILE is converted; the
rest are ignored, as with a multi-file drop.

An existing file is never replaced unless --overwrite is given; the new PDF
is saved as "name (1).pdf" instead.`,
		Example: `  md2pdf convert notes.md
  md2pdf convert -o ~/Downloads --service-url http://converter:8000 report.md`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("output") {
				cfg.Output.Dir = outDir
			}
			if cmd.Flags().Changed("overwrite") {
				cfg.Output.Overwrite = overwrite
			}

			var (
				view       *ui.UploadView
				clientOpts []md2pdf.ClientOption
			)
			if !opts.verbose && ui.IsTerminal(os.Stderr) {
				view = ui.NewUploadView(cmd.ErrOrStderr(), filepath.Base(args[0]))
				clientOpts = append(clientOpts, md2pdf.WithUploadProgress(view.Progress))
			}

			s := opts.newSession(cmd, cfg, clientOpts...)
			cancel := s.controller.Subscribe(func(st md2pdf.State) {
				if view != nil && st.Phase != md2pdf.PhaseUploading {
					view.Stop()
				}
				s.presenter.Render(st)
			})
			defer cancel()

			if len(args) > 1 {
				s.presenter.Warn("Converting %s only; %d more file(s) ignored", filepath.Base(args[0]), len(args)-1)
			}

			req, err := s.acquisition.AcceptDrop(cmd.Context(), localFiles(args))
			if err != nil {
				if s.controller.State().Phase == md2pdf.PhaseFailed {
					_ = s.controller.Dismiss()
					return ErrConversionFailed
				}
				return err
			}

			res, err := req.Wait(cmd.Context())
			if view != nil {
				view.Stop()
			}
			if err != nil {
				return err
			}
			if !res.OK() {
				_ = s.controller.Dismiss()
				return ErrConversionFailed
			}

			derr := s.reportDelivery(req, res.Artifact)
			_ = s.controller.Reset()
			if derr != nil {
				return ErrConversionFailed
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outDir, "output", "o", "", "directory to save the PDF in (default from config, else .)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "replace an existing file with the same name")
	return cmd
}
