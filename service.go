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

package md2pdf

import "context"

// Service is the remote conversion service. Convert performs a single attempt
// and returns either an artifact or an error; a *ConversionError describes
// failures the service reported. Implementations must not retry.
type Service interface {
	Convert(ctx context.Context, file *CandidateFile) (*Artifact, error)
}

// ServiceFunc adapts a function to the Service interface.
type ServiceFunc func(ctx context.Context, file *CandidateFile) (*Artifact, error)

func (f ServiceFunc) Convert(ctx context.Context, file *CandidateFile) (*Artifact, error) {
	return f(ctx, file)
}
