// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package logging

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SlowQuery is the duration above which cache queries are logged as warnings.
const SlowQuery = 200 * time.Millisecond

// GormLogger routes gorm's query log for the seed cache onto zap.
type GormLogger struct {
	logLevel logger.LogLevel
	slow     time.Duration
}

func NewGormLogger(level logger.LogLevel) logger.Interface {
	return &GormLogger{logLevel: level, slow: SlowQuery}
}

func (l *GormLogger) LogMode(level logger.LogLevel) logger.Interface {
	return &GormLogger{logLevel: level, slow: l.slow}
}

func (l *GormLogger) log() *zap.Logger {
	return zap.L().With(zap.String("component", "cache"))
}

func (l *GormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.logLevel >= logger.Info {
		l.log().Sugar().Infof(msg, data...)
	}
}

func (l *GormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.logLevel >= logger.Warn {
		l.log().Sugar().Warnf(msg, data...)
	}
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.logLevel >= logger.Error {
		l.log().Sugar().Errorf(msg, data...)
	}
}

func (l *GormLogger) Trace(
	ctx context.Context,
	begin time.Time,
	fc func() (string, int64),
	err error,
) {
	if l.logLevel <= logger.Silent {
		return
	}

	sql, rows := fc()
	elapsed := time.Since(begin)

	fields := []zap.Field{
		zap.String("sql", sql),
		zap.Duration("duration", elapsed),
		zap.Int64("rows", rows),
	}

	switch {
	case err == nil:
	case errors.Is(err, gorm.ErrRecordNotFound):
		// cache miss
		l.log().Debug("cache document not found", fields...)
		return
	default:
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			// concurrent fetches of the same document race on insert
			l.log().Info("cache document already stored",
				append(fields, zap.String("constraint", pgErr.ConstraintName), zap.Error(err))...,
			)
			return
		}

		l.log().Warn("cache query failed", append(fields, zap.Error(err))...)
		return
	}

	if l.slow > 0 && elapsed > l.slow && l.logLevel >= logger.Warn {
		l.log().Warn("slow cache query", fields...)
		return
	}

	l.log().Debug("cache query", fields...)
}
