// Package kv is the key-value gateway. Every caller works inside a namespace
// (the owning user) and only sees keys written there.
package kv

import (
	"context"
	"errors"
	"strings"
)

// ErrNotFound is returned by Get when the key is absent.
var ErrNotFound = errors.New("kv key not found")

// Entry is a listed key with its value when values were requested.
type Entry struct {
	Key   string `json:"key"`
	Value string `json:"value,omitempty"`
}

// Store is a single namespace of string keys to string values.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	// List returns keys matching a glob pattern ('*' and '?'), sorted by key.
	List(ctx context.Context, pattern string, withValues bool) ([]Entry, error)
	// Flush removes every key in the namespace.
	Flush(ctx context.Context) error
}

// Gateway hands out namespaced stores over one backing engine.
type Gateway interface {
	Namespace(ns string) Store
	Ping(ctx context.Context) error
	Close() error
}

// Match reports whether key matches the glob pattern. Only '*' (any run) and
// '?' (one byte) are special.
func Match(pattern, key string) bool {
	for len(pattern) > 0 {
		switch pattern[0] {
		case '*':
			pattern = strings.TrimLeft(pattern, "*")
			if pattern == "" {
				return true
			}
			for i := 0; i <= len(key); i++ {
				if Match(pattern, key[i:]) {
					return true
				}
			}
			return false
		case '?':
			if key == "" {
				return false
			}
		default:
			if key == "" || key[0] != pattern[0] {
				return false
			}
		}
		pattern = pattern[1:]
		key = key[1:]
	}
	return key == ""
}

// likePattern converts a glob to a SQL LIKE pattern escaped with backslash.
func likePattern(glob string) string {
	var b strings.Builder
	for i := 0; i < len(glob); i++ {
		switch c := glob[i]; c {
		case '*':
			b.WriteByte('%')
		case '?':
			b.WriteByte('_')
		case '%', '_', '\\':
			b.WriteByte('\\')
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// redisPattern escapes Redis glob metacharacters other than '*' and '?'.
func redisPattern(glob string) string {
	var b strings.Builder
	for i := 0; i < len(glob); i++ {
		switch c := glob[i]; c {
		case '[', ']', '\\':
			b.WriteByte('\\')
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
