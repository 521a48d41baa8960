// internal/app/system/txn/txn.go

// Package txn runs multi-document MongoDB work atomically. Governance
// correctness depends on read-decide-write sequences (vote upsert, counter
// update, status compare-and-set, side-effect mutation) committing
// all-or-nothing, so every such sequence goes through Run.
//
// Transactions require a replica set. On standalone servers (local dev,
// some test setups) Run degrades to executing the callback without a
// transaction; the per-document compare-and-set guards still hold there.
package txn

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Run executes fn inside a MongoDB transaction. The context passed to fn is
// session-bound: collection operations made with it join the transaction.
// Returning an error from fn aborts the transaction.
func Run(ctx context.Context, db *mongo.Database, logger *zap.Logger, fn func(ctx context.Context) error) error {
	sess, err := db.Client().StartSession()
	if err != nil {
		if IsNotSupported(err) {
			logger.Debug("mongo sessions unavailable, running without transaction", zap.Error(err))
			return fn(ctx)
		}
		return err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	if err != nil && IsNotSupported(err) {
		logger.Debug("mongo transactions unavailable, running without transaction", zap.Error(err))
		return fn(ctx)
	}
	return err
}

// IsNotSupported reports whether err indicates the server cannot run
// multi-document transactions (standalone deployment, old wire version).
// Callers use it to fall back to non-transactional execution rather than
// failing the operation outright.
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}

	var ce mongo.CommandError
	if errors.As(err, &ce) {
		switch ce.Code {
		case 20, 51, 263: // IllegalOperation / transaction numbers / API version
			return true
		}
	}

	msg := strings.ToLower(err.Error())
	has := func(s string) bool { return strings.Contains(msg, s) }
	if has("transaction") && (has("replica set") || has("session") || has("illegal operation")) {
		return true
	}
	if has("session") && has("not supported") {
		return true
	}
	return false
}

// IsConflict reports whether err is a transient transaction conflict
// (write conflict, aborted transaction) the caller may retry.
func IsConflict(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) {
		if ce.HasErrorLabel("TransientTransactionError") {
			return true
		}
		if ce.Code == 112 { // WriteConflict
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "write conflict")
}
