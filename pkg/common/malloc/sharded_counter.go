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
	"math/rand/v2"

	"golang.org/x/sys/cpu"
)

// ShardedCounter spreads updates over several cache-line padded atomics.
type ShardedCounter[T int64 | uint64, A any, P interface {
	*A
	Add(T) T
	Load() T
}] struct {
	shards []shardedCounterShard[A]
}

type shardedCounterShard[A any] struct {
	value A
	_     cpu.CacheLinePad
}

func NewShardedCounter[T int64 | uint64, A any, P interface {
	*A
	Add(T) T
	Load() T
}](shards int) *ShardedCounter[T, A, P] {
	if shards < 1 {
		shards = 1
	}
	return &ShardedCounter[T, A, P]{
		shards: make([]shardedCounterShard[A], shards),
	}
}

func (s *ShardedCounter[T, A, P]) Add(v T) {
	P(&s.shards[rand.IntN(len(s.shards))].value).Add(v)
}

func (s *ShardedCounter[T, A, P]) Load() (ret T) {
	for i := range s.shards {
		ret += P(&s.shards[i].value).Load()
	}
	return ret
}

func (s *ShardedCounter[T, A, P]) Each(fn func(*A)) {
	for i := range s.shards {
		fn(&s.shards[i].value)
	}
}
