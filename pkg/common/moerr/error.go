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

package moerr

import (
	"context"
	"fmt"
	"io"
)

const (
	Ok uint16 = 0

	// Group 1: internal errors
	ErrStart        uint16 = 20100
	ErrInternal     uint16 = 20101
	ErrOOM          uint16 = 20103
	ErrNotSupported uint16 = 20105

	// Group 2: ranges and arguments
	ErrOutOfRange uint16 = 20201
	ErrInvalidArg uint16 = 20203

	// Group 3: invalid input
	ErrBadConfig uint16 = 20300

	// Group 4: unexpected state
	ErrInvalidState uint16 = 20400
	ErrEmptyRange   uint16 = 20408
	ErrDoubleFree   uint16 = 20450
	ErrMemoryLeak   uint16 = 20451

	// Group End: max value of MOErrorCode
	ErrEnd uint16 = 65535
)

type moErrorMsgItem struct {
	errorMsgOrFormat string
}

var errorMsgRefer = map[uint16]moErrorMsgItem{
	Ok: {"ok"},

	// Group 1: internal errors
	ErrStart:        {"internal error: error code start"},
	ErrInternal:     {"internal error: %s"},
	ErrOOM:          {"out of memory"},
	ErrNotSupported: {"not supported: %s"},

	// Group 2: ranges and arguments
	ErrOutOfRange: {"%s out of range: %s"},
	ErrInvalidArg: {"invalid argument %s, bad value %s"},

	// Group 3: invalid input
	ErrBadConfig: {"invalid configuration: %s"},

	// Group 4: unexpected state
	ErrInvalidState: {"invalid state %s"},
	ErrEmptyRange:   {"empty range of %s"},
	ErrDoubleFree:   {"double free: %s"},
	ErrMemoryLeak:   {"memory leak: %s"},

	// Group End: max value of MOErrorCode
	ErrEnd: {"internal error: end of errcode code"},
}

func newError(ctx context.Context, code uint16, args ...any) *Error {
	var err *Error
	item, has := errorMsgRefer[code]
	if !has {
		panic(NewInternalError(ctx, "not exist MOErrorCode: %d", code))
	}
	if len(args) == 0 {
		err = &Error{
			code:    code,
			message: item.errorMsgOrFormat,
		}
	} else {
		err = &Error{
			code:    code,
			message: fmt.Sprintf(item.errorMsgOrFormat, args...),
		}
	}
	if ctx != nil {
		if v, ok := ctx.Value(detailKey{}).(string); ok {
			err.detail = v
		}
	}
	return err
}

type Error struct {
	code    uint16
	message string
	detail  string
}

func (e *Error) Error() string {
	return e.message
}

// Detail returns the extra information attached through the context the
// error was created with.
func (e *Error) Detail() string {
	return e.detail
}

func (e *Error) ErrorCode() uint16 {
	return e.code
}

func IsMoErrCode(e error, rc uint16) bool {
	if e == nil {
		return rc == Ok
	}

	me, ok := e.(*Error)
	if !ok {
		// This is not a moerr
		return false
	}
	return me.code == rc
}

// ConvertGoError converts a go error into mo error.
// Note here we must return error, because nil error
// is the same as nil *Error -- Go strangeness.
func ConvertGoError(ctx context.Context, err error) error {
	// nil is nil
	if err == nil {
		return err
	}

	// already a moerr, return it as is
	if _, ok := err.(*Error); ok {
		return err
	}

	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return newError(ctx, ErrInvalidState, fmt.Sprintf("unexpected end of file: %v", err))
	}

	return NewInternalError(ctx, "convert go error to mo error %v", err)
}

func NewInternalError(ctx context.Context, msg string, args ...any) *Error {
	xmsg := fmt.Sprintf(msg, args...)
	return newError(ctx, ErrInternal, xmsg)
}

func NewOOM(ctx context.Context) *Error {
	return newError(ctx, ErrOOM)
}

func NewInternalErrorNoCtx(msg string, args ...any) *Error {
	return NewInternalError(Context(), msg, args...)
}

func NewNotSupportedNoCtx(msg string, args ...any) *Error {
	return newError(Context(), ErrNotSupported, fmt.Sprintf(msg, args...))
}

func NewOOMNoCtx() *Error {
	return NewOOM(Context())
}

func NewOutOfRangeNoCtx(typ string, msg string, args ...any) *Error {
	return newError(Context(), ErrOutOfRange, typ, fmt.Sprintf(msg, args...))
}

func NewInvalidArgNoCtx(arg string, val any) *Error {
	return newError(Context(), ErrInvalidArg, arg, fmt.Sprintf("%v", val))
}

func NewBadConfigNoCtx(msg string, args ...any) *Error {
	return newError(Context(), ErrBadConfig, fmt.Sprintf(msg, args...))
}

func NewInvalidStateNoCtx(msg string, args ...any) *Error {
	return newError(Context(), ErrInvalidState, fmt.Sprintf(msg, args...))
}

func NewEmptyRangeNoCtx(name string) *Error {
	return newError(Context(), ErrEmptyRange, name)
}

func NewDoubleFreeNoCtx(msg string, args ...any) *Error {
	return newError(Context(), ErrDoubleFree, fmt.Sprintf(msg, args...))
}

func NewMemoryLeakNoCtx(msg string, args ...any) *Error {
	return newError(Context(), ErrMemoryLeak, fmt.Sprintf(msg, args...))
}

type detailKey struct{}

// AttachDetail returns a context whose errors carry detail as extra
// information.
func AttachDetail(ctx context.Context, detail string) context.Context {
	return context.WithValue(ctx, detailKey{}, detail)
}

// Context returns the context used by the NoCtx constructors.
func Context() context.Context {
	return context.Background()
}
