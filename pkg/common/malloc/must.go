// Copyright 2024 Matrix Origin
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package malloc

import (
	"github.com/zxlxz/sfc-sub001/pkg/common/moerr"
	"github.com/zxlxz/sfc-sub001/pkg/logutil"
	"go.uber.org/zap"
)

// Must unwraps the result of a typed allocation. Containers cannot report
// allocation failure through their APIs, so the error is logged and
// raised as a panic.
func Must[T any](v T, dec Deallocator, err error) (T, Deallocator) {
	if err != nil {
		Throw(err)
	}
	return v, dec
}

// Throw logs an allocation error and panics with it.
func Throw(err error) {
	fields := []zap.Field{zap.Error(err)}
	if e, ok := err.(*moerr.Error); ok && e.Detail() != "" {
		fields = append(fields, zap.String("detail", e.Detail()))
	}
	fields = append(fields, zap.Stack("stack"))
	logutil.GetSkip1Logger().Error("allocation failed", fields...)
	panic(err)
}
