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

package engine

import "github.com/hashicorp/go-multierror"

// multierrAppend aggregates teardown errors encountered while destroying a
// connection. Destroy only ever closes one socket today, but the
// aggregation keeps the contract stable if a future transport tears down
// more than one resource.
func multierrAppend(existing error, err error) error {
	return multierror.Append(existing, err)
}
