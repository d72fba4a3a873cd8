// Copyright 2025 The packetd Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package common

// BuildInfo describes the binary's build provenance.
type BuildInfo struct {
	Version string
	GitHash string
	Time    string
}

// buildVersion/buildTime/buildHash are set at link time via
// -ldflags "-X github.com/packetd/amqpwire/common.buildVersion=... \
//           -X github.com/packetd/amqpwire/common.buildHash=... \
//           -X github.com/packetd/amqpwire/common.buildTime=...".
// Zero values mean a dev build with no release metadata baked in.
var (
	buildVersion string
	buildTime    string
	buildHash    string
)

func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version: buildVersion,
		GitHash: buildHash,
		Time:    buildTime,
	}
}
