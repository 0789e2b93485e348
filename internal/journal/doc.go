// Package journal keeps the persisted debug log shown to administrators.
//
// Core is a zapcore.Core that mirrors log records at or above a threshold into
// the store, so every lifecycle step logged through zap also lands in the
// debug log. Only the newest entries are retained.
package journal
