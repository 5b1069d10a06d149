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

//go:build unix

package malloc

import (
	"unsafe"

	"github.com/zxlxz/sfc-sub001/pkg/common/moerr"
	"golang.org/x/sys/unix"
)

const mmapSupported = true

func mapMem(length uint64) (unsafe.Pointer, error) {
	slice, err := unix.Mmap(
		-1, 0,
		int(length),
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_PRIVATE|unix.MAP_ANON,
	)
	if err != nil {
		if err == unix.ENOMEM {
			return nil, moerr.NewOOMNoCtx()
		}
		return nil, moerr.ConvertGoError(moerr.Context(), err)
	}
	return unsafe.Pointer(unsafe.SliceData(slice)), nil
}

func unmapMem(ptr unsafe.Pointer, length uint64) {
	if err := unix.Munmap(
		unsafe.Slice((*byte)(ptr), length),
	); err != nil {
		panic(err)
	}
}
