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
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	md2pdf "github.com/nicholasgasior/md2pdf-go"
	"github.com/nicholasgasior/md2pdf-go/cmd/md2pdf/ui"
	"github.com/nicholasgasior/md2pdf-go/internal/config"
	"github.com/nicholasgasior/md2pdf-go/internal/logging"
	"github.com/nicholasgasior/md2pdf-go/internal/pdfinfo"
)

// loadConfig reads the config file and environment, then applies any flags
// set on the command line.
func (o *rootOptions) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(o.cfgFile)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("service-url") {
		cfg.Service.BaseURL = o.serviceURL
	}
	if flags.Changed("timeout") {
		cfg.Service.Timeout = o.timeout
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = o.logFormat
	}
	if flags.Changed("normalize-encoding") {
		cfg.Input.NormalizeEncoding = o.normalizeEncoding
	}
	if o.verbose {
		cfg.Log.Level = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid flags: %w", err)
	}

	ui.InitUI(o.noColor)
	return cfg, nil
}

// session wires the workflow for one command invocation.
type session struct {
	cfg         *config.Config
	logger      zerolog.Logger
	controller  *md2pdf.Controller
	acquisition *md2pdf.Acquisition
	presenter   *ui.Presenter
}

func (o *rootOptions) newSession(cmd *cobra.Command, cfg *config.Config, clientOpts ...md2pdf.ClientOption) *session {
	logger := logging.New(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cmd.ErrOrStderr(),
	})

	opts := []md2pdf.ClientOption{
		md2pdf.WithEndpoint(cfg.Service.Endpoint),
		md2pdf.WithFieldName(cfg.Service.FieldName),
		md2pdf.WithTimeout(cfg.Service.Timeout),
		md2pdf.WithMaxArtifactSize(cfg.Service.MaxArtifactBytes),
		md2pdf.WithSpoolThreshold(cfg.Service.SpoolThreshold, ""),
		md2pdf.WithUserAgent("md2pdf/" + Version),
		md2pdf.WithClientLogger(logger.With().Str("component", "client").Logger()),
	}
	client := md2pdf.NewClient(cfg.Service.BaseURL, append(opts, clientOpts...)...)

	ctrl := md2pdf.NewController(client,
		md2pdf.WithDeliverer(md2pdf.DirDeliverer{Dir: cfg.Output.Dir, Overwrite: cfg.Output.Overwrite}),
		md2pdf.WithLogger(logger.With().Str("component", "controller").Logger()),
	)

	acqOpts := []md2pdf.AcquisitionOption{
		md2pdf.WithAcquisitionLogger(logger.With().Str("component", "acquisition").Logger()),
	}
	if cfg.Input.NormalizeEncoding {
		acqOpts = append(acqOpts, md2pdf.WithUTF8Normalization())
	}

	return &session{
		cfg:         cfg,
		logger:      logger,
		controller:  ctrl,
		acquisition: md2pdf.NewAcquisition(ctrl, acqOpts...),
		presenter:   ui.NewPresenter(cmd.OutOrStdout(), o.verbose),
	}
}

// localFiles turns command line paths into acquisition input.
func localFiles(paths []string) []md2pdf.File {
	files := make([]md2pdf.File, 0, len(paths))
	for _, p := range paths {
		files = append(files, md2pdf.LocalFile(p))
	}
	return files
}

// reportDelivery prints where a finished request saved its artifact.
func (s *session) reportDelivery(req *md2pdf.Request, artifact *md2pdf.Artifact) error {
	path, err := req.Delivery()
	if errors.Is(err, md2pdf.ErrReleased) {
		s.logger.Debug().Uint64("request_id", req.ID).Msg("result cleared before it was saved")
		return nil
	}
	if err != nil {
		s.presenter.Fail("Could not save %s: %v", artifact.Filename, err)
		return err
	}
	s.presenter.Delivered(path, pageCount(s.logger, artifact))
	return nil
}

// pageCount returns the number of pages in a, or 0 when it cannot be read.
func pageCount(logger zerolog.Logger, a *md2pdf.Artifact) int {
	data, err := a.Bytes()
	if err != nil {
		return 0
	}
	info, err := pdfinfo.Inspect(data)
	if err != nil {
		logger.Debug().Err(err).Str("filename", a.Filename).Msg("could not inspect artifact")
		return 0
	}
	return info.Pages
}
