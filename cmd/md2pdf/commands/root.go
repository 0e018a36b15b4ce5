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
	"context"
	"errors"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
)

// Version is reported by --version.
var Version = "dev"

// ErrConversionFailed is returned when the workflow ended in Failed. The
// failure has already been shown to the user.
var ErrConversionFailed = errors.New("conversion failed")

type rootOptions struct {
	cfgFile           string
	serviceURL        string
	timeout           time.Duration
	verbose           bool
	noColor           bool
	logFormat         string
	normalizeEncoding bool
}

// NewRootCommand builds the md2pdf command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "md2pdf",
		Short: "Convert Markdown files to PDF with a remote conversion service",
		Long: `md2pdf uploads a Markdown document to a conversion service, waits for
the converted PDF and saves it next to your other downloads.

The service address, output directory and logging can be set in a YAML config
file, in a .env file or with MD2PDF_* environment variables.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.cfgFile, "config", "c", "", "config file path")
	flags.StringVar(&opts.serviceURL, "service-url", "", "conversion service base URL")
	flags.DurationVar(&opts.timeout, "timeout", 0, "per-request timeout (0 waits indefinitely)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "enable verbose output")
	flags.BoolVar(&opts.noColor, "no-color", false, "disable colored output")
	flags.StringVar(&opts.logFormat, "log-format", "", "log format: console or json")
	flags.BoolVar(&opts.normalizeEncoding, "normalize-encoding", false, "transcode non-UTF-8 input to UTF-8 before upload")

	cmd.AddCommand(newConvertCommand(opts))
	cmd.AddCommand(newInteractiveCommand(opts))
	return cmd
}

// Execute runs the root command. An interrupt cancels the running command.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return NewRootCommand().ExecuteContext(ctx)
}
