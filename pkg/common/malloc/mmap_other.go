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

//go:build !unix

package malloc

import (
	"unsafe"

	"github.com/zxlxz/sfc-sub001/pkg/common/moerr"
)

const mmapSupported = false

func mapMem(length uint64) (unsafe.Pointer, error) {
	return nil, moerr.NewNotSupportedNoCtx("mmap")
}

func unmapMem(ptr unsafe.Pointer, length uint64) {
	panic(moerr.NewNotSupportedNoCtx("munmap"))
}
