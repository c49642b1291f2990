package log

// Package log provides a small opinionated wrapper around logrus. Its goal
// is to offer a consistent way to emit logs per service / provider.
//
// Key Features
//
//   - Per service / provider loggers via ForService(name)
//   - Automatic prefix in every line: `[name>]`  (example: `[twitter/twitter>] fetched 3 pages`)
//   - Convenience level helpers: Infof, Warnf, Errorf, Debugf
//   - Debug logging can be enabled globally (SetGlobalDebug) or per service
//     (EnableDebugFor / DisableDebugFor)
//   - Structured fields via With(key, value), rendered after the message
//   - Central output writer (SetOutput) shared by every logger
//   - Optional JSON output (SetJSON) for log shippers
//
// Basic Usage
//
//	import (
//		"github.com/rubiojr/glimpse/pkg/log"
//	)
//
//	func main() {
//		log.SetGlobalDebug(true)
//
//		l := log.ForService("reddit/pushshift")
//		l.Infof("starting")
//		l.With("url", u).Debugf("request")
//	}
//
// Selective Debug
//
//	// Only enable debug for the cache.
//	log.EnableDebugFor("cache")
//	log.ForService("cache").Debugf("visible")
//	log.ForService("api").Debugf("NOT visible")
//
// Thread Safety
//
// All exported functions are safe for concurrent use.
//
// Testing
//
// Tests can redirect output by calling SetOutput with a bytes.Buffer,
// enabling assertions on log contents.
