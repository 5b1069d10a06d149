// Copyright 2021 Matrix Origin
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package hashtable

import (
	"hash/maphash"
	"math/bits"
	"math/rand"
	"reflect"
	"unsafe"

	"github.com/cespare/xxhash/v2"
)

var hashkey [4]uint64

func init() {
	hashkey[0] = rand.Uint64()
	hashkey[1] = rand.Uint64()
	hashkey[2] = rand.Uint64()
	hashkey[3] = rand.Uint64()
}

const (
	m1 = 0xa0761d6478bd642f
	m2 = 0xe7037ed1a0b428db
	m3 = 0x8ebc6af09c88c6e3
	m4 = 0x589965cc75374cc3
	m5 = 0x1d8e4e27c47d124f
)

func wyhash(data unsafe.Pointer, seed, s uint64) uint64 {
	var a, b uint64
	seed ^= hashkey[0] ^ m1
	switch {
	case s == 0:
		return seed
	case s < 4:
		a = uint64(*(*byte)(data))
		a |= uint64(*(*byte)(unsafe.Add(data, s>>1))) << 8
		a |= uint64(*(*byte)(unsafe.Add(data, s-1))) << 16
	case s == 4:
		a = r4(data, 0)
		b = a
	case s < 8:
		a = r4(data, 0)
		b = r4(data, s-4)
	case s == 8:
		a = r8(data, 0)
		b = a
	case s <= 16:
		a = r8(data, 0)
		b = r8(data, s-8)
	default:
		l := s
		if l > 48 {
			seed1 := seed
			seed2 := seed
			for ; l > 48; l -= 48 {
				seed = mix(r8(data, 0)^m2, r8(data, 8)^seed)
				seed1 = mix(r8(data, 16)^m3, r8(data, 24)^seed1)
				seed2 = mix(r8(data, 32)^m4, r8(data, 40)^seed2)
				data = unsafe.Add(data, 48)
			}
			seed ^= seed1 ^ seed2
		}
		for ; l > 16; l -= 16 {
			seed = mix(r8(data, 0)^m2, r8(data, 8)^seed)
			data = unsafe.Add(data, 16)
		}
		a = r8(data, l-16)
		b = r8(data, l-8)
	}

	return mix(m5^uint64(s), mix(a^m2, b^seed))
}

func mix(a, b uint64) uint64 {
	hi, lo := bits.Mul64(uint64(a), uint64(b))
	return hi ^ lo
}

func r4(data unsafe.Pointer, p uint64) uint64 {
	return uint64(*(*uint32)(unsafe.Add(data, p)))
}

func r8(data unsafe.Pointer, p uint64) uint64 {
	return *(*uint64)(unsafe.Add(data, p))
}

func wyhash64(x uint64) uint64 {
	return mix(m5^8, mix(x^m2, x^hashkey[1]^hashkey[0]^m1))
}

// Hasher maps a key to its hash. Equal keys must hash equally.
type Hasher[K comparable] func(K) uint64

var comparableSeed = maphash.MakeSeed()

// DefaultHasher picks a hasher by the key's kind: integers through
// wyhash64, strings through xxhash, anything else through
// maphash.Comparable.
func DefaultHasher[K comparable]() Hasher[K] {
	typ := reflect.TypeFor[K]()
	switch typ.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Uintptr, reflect.Bool:
		switch typ.Size() {
		case 8:
			return func(k K) uint64 {
				return wyhash64(*(*uint64)(unsafe.Pointer(&k)))
			}
		case 4:
			return func(k K) uint64 {
				return wyhash64(uint64(*(*uint32)(unsafe.Pointer(&k))))
			}
		case 2:
			return func(k K) uint64 {
				return wyhash64(uint64(*(*uint16)(unsafe.Pointer(&k))))
			}
		case 1:
			return func(k K) uint64 {
				return wyhash64(uint64(*(*uint8)(unsafe.Pointer(&k))))
			}
		}
	case reflect.String:
		return func(k K) uint64 {
			return xxhash.Sum64String(*(*string)(unsafe.Pointer(&k))) ^ hashkey[2]
		}
	}
	return func(k K) uint64 {
		return maphash.Comparable(comparableSeed, k)
	}
}

// BytesHash hashes data with wyhash.
func BytesHash(data []byte) uint64 {
	return wyhash(unsafe.Pointer(unsafe.SliceData(data)), hashkey[3], uint64(len(data)))
}
