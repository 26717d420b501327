// Package watcher hot-reloads the policy directory used by pkg/router's
// caller so a running process picks up edited policies without a
// restart. A settled batch of filesystem events reloads the whole
// directory of named policies into one atomic snapshot.
package watcher
