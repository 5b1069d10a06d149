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

import "sync"

// ClosureDeallocator runs fn with its captured args on Deallocate, then
// returns itself to the pool it came from.
type ClosureDeallocator[T any, P interface {
	*T
	As(Trait) bool
}] struct {
	argumentsSet bool
	arguments    T
	fn           func(Hints, *T)
	pool         *ClosureDeallocatorPool[T, P]
}

func (a *ClosureDeallocator[T, P]) SetArgument(arg T) {
	a.argumentsSet = true
	a.arguments = arg
}

var _ Deallocator = &ClosureDeallocator[metricsDeallocatorArgs, *metricsDeallocatorArgs]{}

func (a *ClosureDeallocator[T, P]) Deallocate(hints Hints) {
	if !a.argumentsSet {
		panic("arguments not set")
	}
	a.fn(hints, &a.arguments)
	var zero T
	a.arguments = zero
	a.argumentsSet = false
	if a.pool != nil {
		a.pool.pool.Put(a)
	}
}

func (a *ClosureDeallocator[T, P]) As(target Trait) bool {
	return P(&a.arguments).As(target)
}

// ClosureDeallocatorPool recycles ClosureDeallocators sharing one fn.
type ClosureDeallocatorPool[T any, P interface {
	*T
	As(Trait) bool
}] struct {
	pool sync.Pool
}

func NewClosureDeallocatorPool[T any, P interface {
	*T
	As(Trait) bool
}](
	deallocateFunc func(Hints, *T),
) *ClosureDeallocatorPool[T, P] {
	ret := new(ClosureDeallocatorPool[T, P])

	ret.pool.New = func() any {
		return &ClosureDeallocator[T, P]{
			fn:   deallocateFunc,
			pool: ret,
		}
	}

	return ret
}

func (c *ClosureDeallocatorPool[T, P]) Get(args T) Deallocator {
	closure := c.pool.Get().(*ClosureDeallocator[T, P])
	closure.SetArgument(args)
	return closure
}

type chainDeallocator []Deallocator

// ChainDeallocator runs every non-nil deallocator in order.
func ChainDeallocator(decs ...Deallocator) Deallocator {
	ret := make(chainDeallocator, 0, len(decs))
	for _, dec := range decs {
		if dec == nil {
			continue
		}
		if chain, ok := dec.(chainDeallocator); ok {
			ret = append(ret, chain...)
			continue
		}
		ret = append(ret, dec)
	}
	return ret
}

func (c chainDeallocator) Deallocate(hints Hints) {
	for _, dec := range c {
		dec.Deallocate(hints)
	}
}

func (c chainDeallocator) As(target Trait) bool {
	for _, dec := range c {
		if dec.As(target) {
			return true
		}
	}
	return false
}
