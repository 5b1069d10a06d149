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

// Package malloc provides the raw memory allocation layer the containers
// are built on. An Allocator hands out blocks described by a Layout and
// returns a Deallocator that gives the block back.
package malloc

import "unsafe"

const (
	B = 1 << (10 * iota)
	KB
	MB
	GB
)

// maxAllocSize bounds a single request. Larger requests fail with ErrOOM
// instead of reaching the runtime, which would abort the process.
const maxAllocSize = 1 << 40

type Hints uint64

const (
	// NoClear skips zeroing of the returned block.
	NoClear Hints = 1 << iota
	// DoNotReuse asks pooling allocators to drop the block on free.
	DoNotReuse

	NoHints Hints = 0
)

// Trait is implemented by values that Deallocator.As can fill in, to expose
// allocator specific information about a block.
type Trait interface {
	IsTrait()
}

// zeroBase is the address handed out for zero-sized typed requests.
var zeroBase uint64

func zeroBasePointer() unsafe.Pointer {
	return unsafe.Pointer(&zeroBase)
}
