// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package fault

import (
	"errors"
	"fmt"
)

// GenericError - error base
type GenericError string

// to allow for different classes of errors
type AbortedError GenericError
type BackendError GenericError
type CancelledError GenericError
type CapacityError GenericError
type CorruptedError GenericError
type DeserError GenericError
type ExistsError GenericError
type InvalidError GenericError
type NotFoundError GenericError
type PanicError GenericError
type ProcessError GenericError
type TimeoutError GenericError

// common errors - keep in alphabetic order
var (
	AllCertificationsUsed     = CapacityError("all certifications used")
	AlreadyCertified          = ExistsError("link already exists")
	AlreadyInitialised        = ExistsError("already initialised")
	BeyondReorgHorizon        = InvalidError("block is beyond reorg horizon")
	BlockNotFound             = NotFoundError("block not found")
	BlockOutOfOrder           = InvalidError("block out of order")
	CannotDecodePublicKey     = InvalidError("cannot decode public key")
	CertificateFileExists     = ExistsError("certificate file already exists")
	CollectionAlreadyDeclared = ExistsError("collection already declared")
	CollectionPrefixInUse     = ExistsError("collection prefix already in use")
	CommentTooLong            = InvalidError("comment too long")
	DatabaseIsClosed          = ProcessError("database is closed")
	DatabaseNotOpen           = ProcessError("database is not open")
	DatabaseVersionTooNew     = InvalidError("database version is newer than this program")
	DoubleSpend               = ExistsError("input already reserved by a pending transaction")
	EmptyGraph                = NotFoundError("graph is empty")
	FileNotFound              = NotFoundError("file not found")
	IdentityNotFound          = NotFoundError("identity not found")
	IndexerHalted             = CorruptedError("indexer halted after corruption")
	InputNotFound             = NotFoundError("transaction input not found")
	InputsOutputsMismatch     = InvalidError("sum of inputs differs from sum of outputs")
	InvalidAmount             = InvalidError("invalid amount")
	InvalidBackend            = InvalidError("invalid database backend")
	InvalidBlock              = InvalidError("invalid block")
	InvalidBlockstamp         = InvalidError("invalid blockstamp")
	InvalidComment            = InvalidError("invalid comment")
	InvalidConfiguration      = InvalidError("invalid configuration")
	InvalidCount              = InvalidError("invalid count")
	InvalidCursor             = InvalidError("invalid cursor")
	InvalidDigest             = InvalidError("invalid digest")
	InvalidEndpoint           = InvalidError("invalid endpoint")
	InvalidFrame              = InvalidError("invalid frame")
	InvalidInput              = InvalidError("invalid transaction input")
	InvalidIpAddress          = InvalidError("invalid IP address")
	InvalidKey                = InvalidError("invalid key")
	InvalidLink               = InvalidError("invalid link")
	InvalidNode               = InvalidError("invalid node")
	InvalidOutput             = InvalidError("invalid transaction output")
	InvalidPidFile            = InvalidError("invalid pid file")
	InvalidPublicKeyLength    = InvalidError("invalid public key length")
	InvalidRegexp             = InvalidError("invalid regular expression")
	InvalidRequest            = InvalidError("invalid request")
	InvalidScript             = InvalidError("invalid wallet script")
	InvalidSignature          = InvalidError("invalid signature")
	InvalidSnapshot           = DeserError("invalid snapshot")
	InvalidStoreFile          = DeserError("invalid store file")
	InvalidSubscription       = InvalidError("invalid subscription")
	InvalidTransaction        = InvalidError("invalid transaction")
	InvalidUnlock             = InvalidError("invalid unlock")
	KeyFileExists             = ExistsError("key file already exists")
	LockBusy                  = AbortedError("collection lock busy")
	MempoolFull               = CapacityError("mempool full")
	MigrationMissing          = ProcessError("no migration path for database version")
	MissingParameters         = InvalidError("missing parameters")
	NotEnoughFunds            = InvalidError("not enough funds")
	NotInitialised            = NotFoundError("not initialised")
	NotListening              = ProcessError("no listening addresses")
	NotRunning                = NotFoundError("node is not running")
	NotTheTip                 = InvalidError("block is not the current tip")
	PendingTxNotFound         = NotFoundError("pending transaction not found")
	PidFileExists             = ExistsError("pid file already exists")
	RateLimiting              = CapacityError("rate limiting")
	ReadOnlyTransaction       = InvalidError("write in a read only transaction")
	ReqExecTooLong            = TimeoutError("request execution took too long")
	SelfLink                  = InvalidError("link to self")
	TooManyItemsToProcess     = CapacityError("too many items to process")
	TransactionAborted        = AbortedError("transaction aborted")
	TransactionAlreadyExists  = ExistsError("transaction already exists")
	TruncatedValue            = DeserError("truncated value")
	UnknownCert               = NotFoundError("unknown certification")
	UnknownCollection         = NotFoundError("unknown collection")
	WatcherStopped            = CancelledError("file watcher stopped")
	WorkerPanic               = PanicError("worker panicked")
	WorkerStopped             = CancelledError("worker pool stopped")
)

// the error interface base method
func (e GenericError) Error() string { return string(e) }

// the error interface methods
func (e AbortedError) Error() string   { return string(e) }
func (e BackendError) Error() string   { return string(e) }
func (e CancelledError) Error() string { return string(e) }
func (e CapacityError) Error() string  { return string(e) }
func (e CorruptedError) Error() string { return string(e) }
func (e DeserError) Error() string     { return string(e) }
func (e ExistsError) Error() string    { return string(e) }
func (e InvalidError) Error() string   { return string(e) }
func (e NotFoundError) Error() string  { return string(e) }
func (e PanicError) Error() string     { return string(e) }
func (e ProcessError) Error() string   { return string(e) }
func (e TimeoutError) Error() string   { return string(e) }

// determine the class of an error, following wrapped errors
func IsErrAborted(e error) bool   { var t AbortedError; return errors.As(e, &t) }
func IsErrBackend(e error) bool   { var t BackendError; return errors.As(e, &t) }
func IsErrCancelled(e error) bool { var t CancelledError; return errors.As(e, &t) }
func IsErrCapacity(e error) bool  { var t CapacityError; return errors.As(e, &t) }
func IsErrCorrupted(e error) bool { var t CorruptedError; return errors.As(e, &t) }
func IsErrDeser(e error) bool     { var t DeserError; return errors.As(e, &t) }
func IsErrExists(e error) bool    { var t ExistsError; return errors.As(e, &t) }
func IsErrInvalid(e error) bool   { var t InvalidError; return errors.As(e, &t) }
func IsErrNotFound(e error) bool  { var t NotFoundError; return errors.As(e, &t) }
func IsErrPanic(e error) bool     { var t PanicError; return errors.As(e, &t) }
func IsErrProcess(e error) bool   { var t ProcessError; return errors.As(e, &t) }
func IsErrTimeout(e error) bool   { var t TimeoutError; return errors.As(e, &t) }

// Backend - wrap an underlying storage error
func Backend(err error) error {
	if nil == err {
		return nil
	}
	return fmt.Errorf("%w: %s", BackendError("backend error"), err)
}

// Cancelled - wrap a context error
func Cancelled(err error) error {
	return fmt.Errorf("%w: %s", CancelledError("request cancelled"), err)
}

// Corrupted - build a corruption error carrying detail
func Corrupted(format string, arguments ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{CorruptedError("database corrupted")}, arguments...)...)
}

// Deser - wrap a decoding error
func Deser(what string, err error) error {
	return fmt.Errorf("%w: %s: %s", DeserError("deserialisation failed"), what, err)
}

// Kind - short machine readable name of the class of an error
func Kind(e error) string {
	switch {
	case nil == e:
		return ""
	case IsErrCorrupted(e):
		return "DbCorrupted"
	case IsErrBackend(e):
		return "BackendError"
	case IsErrDeser(e):
		return "DeserError"
	case IsErrNotFound(e):
		return "NotFound"
	case IsErrCapacity(e):
		return "CapacityExceeded"
	case IsErrTimeout(e):
		return "ReqExecTooLong"
	case IsErrAborted(e):
		return "TransactionAborted"
	case IsErrCancelled(e):
		return "Cancelled"
	case IsErrPanic(e):
		return "Panic"
	case IsErrExists(e):
		return "AlreadyExists"
	case IsErrInvalid(e):
		return "InvalidRequest"
	default:
		return "InternalError"
	}
}
